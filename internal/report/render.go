package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/report.tmpl
var templateFS embed.FS

// Report is everything the HTML page is rendered from. GeneratedAt is
// supplied by the caller so rendering the same Report twice produces
// byte-identical output.
type Report struct {
	SprintName  string
	GeneratedAt time.Time
	Stories     []Row
	Defects     []Row
	StoryStats  Stats
	DefectStats Stats
}

// NewReport aggregates the classified rows into a renderable report.
func NewReport(sprintName string, generatedAt time.Time, stories, defects []Row) Report {
	return Report{
		SprintName:  sprintName,
		GeneratedAt: generatedAt,
		Stories:     stories,
		Defects:     defects,
		StoryStats:  Aggregate(stories),
		DefectStats: Aggregate(defects),
	}
}

type pageData struct {
	Report
	StoryCharts  []chartBlock
	DefectCharts []chartBlock
}

var funcMap = template.FuncMap{
	"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"points": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
	"title": cases.Title(language.English).String,
	"day": formatDate,
}

var pageTemplate = template.Must(
	template.New("report.tmpl").Funcs(funcMap).ParseFS(templateFS, "templates/report.tmpl"),
)

// Render produces the standalone HTML page. Chart element IDs are fixed,
// so the output is deterministic for a given Report.
func Render(rep Report) ([]byte, error) {
	data := pageData{
		Report:       rep,
		StoryCharts:  storyCharts(rep.StoryStats),
		DefectCharts: defectCharts(rep.DefectStats),
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering report for sprint %q: %w", rep.SprintName, err)
	}
	return buf.Bytes(), nil
}
