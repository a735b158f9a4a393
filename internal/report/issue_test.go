package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sprintdeck/sprint-reporter/internal/jira"
)

func issueFixture(t *testing.T, key string, fields map[string]any) jira.Issue {
	t.Helper()
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatal(err)
	}
	return jira.Issue{Key: key, Fields: data}
}

func TestNewRowFullFields(t *testing.T) {
	issue := issueFixture(t, "PROJ-1", map[string]any{
		"summary":           "Add export button",
		"status":            map[string]string{"name": "In Progress"},
		"assignee":          map[string]string{"displayName": "Jane Doe"},
		"reporter":          map[string]string{"displayName": "John Roe"},
		"issuetype":         map[string]string{"name": "Story"},
		"priority":          map[string]string{"name": "High"},
		"created":           "2026-08-03T09:15:00.000+0200",
		"updated":           "2026-08-20T17:40:00.000+0200",
		"customfield_10016": 5.0,
	})

	row, err := NewRow(issue, "customfield_10016")
	if err != nil {
		t.Fatalf("NewRow: %v", err)
	}
	if row.Key != "PROJ-1" || row.Summary != "Add export button" {
		t.Errorf("identity: got %+v", row)
	}
	if row.Assignee != "Jane Doe" || row.Reporter != "John Roe" {
		t.Errorf("people: got %q/%q", row.Assignee, row.Reporter)
	}
	if row.StoryPoints != 5 {
		t.Errorf("StoryPoints: got %v, want 5", row.StoryPoints)
	}
	want := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	if !row.Created.Equal(want) {
		t.Errorf("Created: got %v, want %v (date precision)", row.Created, want)
	}
}

func TestNewRowMissingOptionalFields(t *testing.T) {
	issue := issueFixture(t, "PROJ-2", map[string]any{
		"summary":   "Orphaned ticket",
		"status":    map[string]string{"name": "To Do"},
		"issuetype": map[string]string{"name": "Bug"},
	})

	row, err := NewRow(issue, "customfield_10016")
	if err != nil {
		t.Fatalf("NewRow: %v", err)
	}
	if row.Assignee != Unassigned {
		t.Errorf("Assignee: got %q, want %q", row.Assignee, Unassigned)
	}
	if row.Reporter != UnknownReporter {
		t.Errorf("Reporter: got %q, want %q", row.Reporter, UnknownReporter)
	}
	if row.Priority != NoPriority {
		t.Errorf("Priority: got %q, want %q", row.Priority, NoPriority)
	}
	if row.StoryPoints != 0 {
		t.Errorf("StoryPoints: got %v, want 0", row.StoryPoints)
	}
	if !row.Created.IsZero() {
		t.Errorf("Created: got %v, want zero", row.Created)
	}
}

func TestClassifyExactlyOneCategory(t *testing.T) {
	storyTypes := []string{"Story"}
	defectTypes := []string{"Escaped Defect", "Bug", "Defect"}

	tests := []struct {
		issueType string
		want      Category
	}{
		{"Story", Story},
		{"Bug", Defect},
		{"Escaped Defect", Defect},
		{"Epic", Excluded},
		{"Sub-task", Excluded},
		{"story", Excluded}, // type matching is exact, unlike status matching
	}

	for _, tc := range tests {
		got := Classify(Row{Type: tc.issueType}, storyTypes, defectTypes)
		if got != tc.want {
			t.Errorf("Classify(%q): got %v, want %v", tc.issueType, got, tc.want)
		}
	}
}

func TestClassifyStoryWinsOverlap(t *testing.T) {
	got := Classify(Row{Type: "Task"}, []string{"Task"}, []string{"Task"})
	if got != Story {
		t.Errorf("overlapping sets: got %v, want Story", got)
	}
}

func TestDoneLike(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"Done", true},
		{"done", true},
		{"CLOSED", true},
		{"Resolved", true},
		{"Resolved Upstream", true},
		{"Done-Pending-Review", true}, // substring match over-counts this
		{"In Progress", false},
		{"To Do", false},
		{"Open", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := DoneLike(tc.status); got != tc.want {
			t.Errorf("DoneLike(%q): got %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestInProgressLike(t *testing.T) {
	if !InProgressLike("In Progress") || !InProgressLike("Development") {
		t.Error("expected in-progress vocabulary match")
	}
	if InProgressLike("Done") {
		t.Error("Done should not match in-progress vocabulary")
	}
}

func TestPartition(t *testing.T) {
	issues := []jira.Issue{
		issueFixture(t, "PROJ-1", map[string]any{
			"issuetype": map[string]string{"name": "Story"},
			"status":    map[string]string{"name": "Done"},
			"updated":   "2026-08-21T10:00:00.000+0000",
		}),
		issueFixture(t, "PROJ-2", map[string]any{
			"issuetype": map[string]string{"name": "Bug"},
			"status":    map[string]string{"name": "Open"},
			"updated":   "2026-08-19T10:00:00.000+0000",
		}),
		issueFixture(t, "PROJ-3", map[string]any{
			"issuetype": map[string]string{"name": "Epic"},
		}),
		issueFixture(t, "PROJ-4", map[string]any{
			"issuetype": map[string]string{"name": "Story"},
			"status":    map[string]string{"name": "To Do"},
			"updated":   "2026-08-22T10:00:00.000+0000",
		}),
		{Key: "PROJ-5", Fields: json.RawMessage(`"not an object"`)},
	}

	stories, defects, skipped := Partition(issues, []string{"Story"}, []string{"Bug"}, "")
	if len(stories) != 2 || len(defects) != 1 {
		t.Fatalf("got %d stories / %d defects, want 2 / 1", len(stories), len(defects))
	}
	if skipped != 1 {
		t.Errorf("skipped: got %d, want 1", skipped)
	}
	// Most recently updated first.
	if stories[0].Key != "PROJ-4" || stories[1].Key != "PROJ-1" {
		t.Errorf("story order: got %s, %s", stories[0].Key, stories[1].Key)
	}
}

func TestPartitionEmpty(t *testing.T) {
	stories, defects, skipped := Partition(nil, []string{"Story"}, []string{"Bug"}, "")
	if len(stories) != 0 || len(defects) != 0 || skipped != 0 {
		t.Errorf("empty input: got %d/%d/%d", len(stories), len(defects), skipped)
	}
}
