// Package report turns raw sprint issues into normalized rows, aggregate
// statistics, and rendered artifacts (HTML, CSV, Excel).
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sprintdeck/sprint-reporter/internal/jira"
)

// Category tags a normalized row by its configured issue-type set.
type Category int

const (
	Excluded Category = iota
	Story
	Defect
)

func (c Category) String() string {
	switch c {
	case Story:
		return "story"
	case Defect:
		return "defect"
	default:
		return "excluded"
	}
}

// Sentinel values for absent optional fields.
const (
	Unassigned      = "Unassigned"
	UnknownReporter = "Unknown"
	NoPriority      = "None"
)

// doneVocabulary is matched case-insensitively as a substring against
// status names. Workflow names vary across projects ("Done", "Closed -
// Verified", "Resolved Upstream"), so the match is deliberately fuzzy;
// changing it silently would reclassify existing reports.
var doneVocabulary = []string{"done", "closed", "resolved"}

// inProgressVocabulary drives the summary-card breakdown only.
var inProgressVocabulary = []string{"in progress", "development"}

// Row is the flattened, typed view of one issue used by aggregation and
// rendering.
type Row struct {
	Key         string
	Summary     string
	Status      string
	Assignee    string
	Reporter    string
	Type        string
	Priority    string
	StoryPoints float64
	Created     time.Time
	Updated     time.Time
}

// issueFields mirrors the subset of Jira issue fields the report reads.
type issueFields struct {
	Summary  string `json:"summary"`
	Status   *struct {
		Name string `json:"name"`
	} `json:"status"`
	Assignee *struct {
		DisplayName string `json:"displayName"`
	} `json:"assignee"`
	Reporter *struct {
		DisplayName string `json:"displayName"`
	} `json:"reporter"`
	IssueType *struct {
		Name string `json:"name"`
	} `json:"issuetype"`
	Priority *struct {
		Name string `json:"name"`
	} `json:"priority"`
	Created string `json:"created"`
	Updated string `json:"updated"`
}

// NewRow flattens one raw issue. Optional fields fall back to sentinel
// values; story points are read from the configured custom field and
// default to zero when absent or malformed.
func NewRow(issue jira.Issue, pointsField string) (Row, error) {
	var fields issueFields
	if err := json.Unmarshal(issue.Fields, &fields); err != nil {
		return Row{}, fmt.Errorf("parse issue %s: %w", issue.Key, err)
	}

	row := Row{
		Key:      issue.Key,
		Summary:  fields.Summary,
		Status:   "Unknown",
		Assignee: Unassigned,
		Reporter: UnknownReporter,
		Type:     "Unknown",
		Priority: NoPriority,
	}
	if fields.Status != nil && fields.Status.Name != "" {
		row.Status = fields.Status.Name
	}
	if fields.Assignee != nil && fields.Assignee.DisplayName != "" {
		row.Assignee = fields.Assignee.DisplayName
	}
	if fields.Reporter != nil && fields.Reporter.DisplayName != "" {
		row.Reporter = fields.Reporter.DisplayName
	}
	if fields.IssueType != nil && fields.IssueType.Name != "" {
		row.Type = fields.IssueType.Name
	}
	if fields.Priority != nil && fields.Priority.Name != "" {
		row.Priority = fields.Priority.Name
	}
	row.Created = parseIssueDate(fields.Created)
	row.Updated = parseIssueDate(fields.Updated)

	if pointsField != "" {
		var extra map[string]json.RawMessage
		if err := json.Unmarshal(issue.Fields, &extra); err == nil {
			if raw, ok := extra[pointsField]; ok {
				var points float64
				if err := json.Unmarshal(raw, &points); err == nil {
					row.StoryPoints = points
				}
			}
		}
	}

	return row, nil
}

// parseIssueDate reads the date part of a Jira timestamp. The report works
// at day precision, so the zone offset suffix is ignored.
func parseIssueDate(s string) time.Time {
	if len(s) < 10 {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}
	}
	return t
}

// Classify returns the category for one row given the configured type-name
// sets. A type in neither set is Excluded; stories win when a type appears
// in both sets.
func Classify(row Row, storyTypes, defectTypes []string) Category {
	for _, t := range storyTypes {
		if row.Type == t {
			return Story
		}
	}
	for _, t := range defectTypes {
		if row.Type == t {
			return Defect
		}
	}
	return Excluded
}

// Partition converts raw issues into rows and splits them into the two
// report categories. Issues whose fields cannot be parsed are skipped and
// reported in the returned count; rows within each category are sorted by
// most recent update, matching the source data's presentation order.
func Partition(issues []jira.Issue, storyTypes, defectTypes []string, pointsField string) (stories, defects []Row, skipped int) {
	for _, issue := range issues {
		row, err := NewRow(issue, pointsField)
		if err != nil {
			skipped++
			continue
		}
		switch Classify(row, storyTypes, defectTypes) {
		case Story:
			stories = append(stories, row)
		case Defect:
			defects = append(defects, row)
		}
	}

	byUpdated := func(rows []Row) func(i, j int) bool {
		return func(i, j int) bool {
			if !rows[i].Updated.Equal(rows[j].Updated) {
				return rows[i].Updated.After(rows[j].Updated)
			}
			return rows[i].Key < rows[j].Key
		}
	}
	sort.Slice(stories, byUpdated(stories))
	sort.Slice(defects, byUpdated(defects))

	return stories, defects, skipped
}

// DoneLike reports whether a status name signifies completion. The match
// is a case-insensitive substring test against a small fixed vocabulary.
func DoneLike(status string) bool {
	return matchesAny(status, doneVocabulary)
}

// InProgressLike reports whether a status name signifies active work.
func InProgressLike(status string) bool {
	return matchesAny(status, inProgressVocabulary)
}

func matchesAny(status string, vocabulary []string) bool {
	s := strings.ToLower(status)
	for _, v := range vocabulary {
		if strings.Contains(s, v) {
			return true
		}
	}
	return false
}
