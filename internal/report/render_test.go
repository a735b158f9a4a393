package report

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func sampleReport() Report {
	at := time.Date(2026, 3, 17, 9, 30, 0, 0, time.UTC)
	stories := []Row{
		{Key: "PROJ-1", Summary: "Add login flow", Type: "Story", Status: "Done", Priority: "High", Assignee: "Alice", Reporter: "Carol", StoryPoints: 5, Created: at.AddDate(0, 0, -10), Updated: at.AddDate(0, 0, -1)},
		{Key: "PROJ-2", Summary: "Polish dashboard", Type: "Story", Status: "In Progress", Priority: "Medium", Assignee: "Bob", Reporter: "Carol", StoryPoints: 3, Created: at.AddDate(0, 0, -8), Updated: at.AddDate(0, 0, -2)},
	}
	defects := []Row{
		{Key: "PROJ-9", Summary: "Login 500s on bad password", Type: "Bug", Status: "Resolved", Priority: "Critical", Assignee: "Alice", Reporter: "Dave", Created: at.AddDate(0, 0, -4), Updated: at.AddDate(0, 0, -1)},
	}
	return NewReport("Sprint 42", at, stories, defects)
}

func TestRenderSections(t *testing.T) {
	out, err := Render(sampleReport())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	page := string(out)

	for _, anchor := range []string{
		`id="header-section"`,
		`id="summary-section"`,
		`id="story-charts-section"`,
		`id="defect-charts-section"`,
		`id="stories-table-section"`,
		`id="defects-table-section"`,
	} {
		if !strings.Contains(page, anchor) {
			t.Errorf("page missing %s", anchor)
		}
	}
	for _, want := range []string{
		"Sprint 42 Sprint Report",
		"Generated 2026-03-17 09:30 UTC",
		"PROJ-1", "PROJ-2", "PROJ-9",
		"50.0%",  // story completion 1/2
		"100.0%", // defect resolution 1/1
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	rep := sampleReport()
	first, err := Render(rep)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := Render(rep)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("rendering the same report twice produced different bytes")
	}
}

func TestRenderFixedChartIDs(t *testing.T) {
	out, err := Render(sampleReport())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, id := range []string{
		"story-status-chart",
		"story-assignee-chart",
		"defect-status-chart",
		"defect-assignee-chart",
		"defect-priority-chart",
	} {
		if !strings.Contains(string(out), id) {
			t.Errorf("page missing chart id %q", id)
		}
	}
}

func TestRenderEmptySprint(t *testing.T) {
	rep := NewReport("Sprint 0", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), nil, nil)
	out, err := Render(rep)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	page := string(out)
	if strings.Count(page, "No stories found in this sprint.") != 2 {
		t.Error("empty story sections not rendered")
	}
	if strings.Count(page, "No defects found in this sprint.") != 2 {
		t.Error("empty defect sections not rendered")
	}
	if strings.Contains(page, "story-status-chart") {
		t.Error("charts rendered for empty sprint")
	}
}

func TestRenderEscapesSummaries(t *testing.T) {
	at := time.Date(2026, 3, 17, 9, 30, 0, 0, time.UTC)
	rows := []Row{{Key: "PROJ-3", Summary: `<script>alert("x")</script>`, Type: "Story", Status: "Done", Assignee: Unassigned, Reporter: UnknownReporter, Priority: NoPriority}}
	out, err := Render(NewReport("Sprint 42", at, rows, nil))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(string(out), `<script>alert(`) {
		t.Error("issue summary not HTML-escaped")
	}
}
