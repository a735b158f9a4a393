package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/sprintdeck/sprint-reporter/internal/screenshot"
)

func allSections() []screenshot.Image {
	return []screenshot.Image{
		{Section: "header", Path: "/tmp/shots/header.png"},
		{Section: "summary", Path: "/tmp/shots/summary.png"},
		{Section: "story_charts", Path: "/tmp/shots/story_charts.png"},
		{Section: "defect_charts", Path: "/tmp/shots/defect_charts.png"},
		{Section: "stories_table", Path: "/tmp/shots/stories_table.png"},
		{Section: "defects_table", Path: "/tmp/shots/defects_table.png"},
	}
}

func TestBuildEmailHTMLSectionOrder(t *testing.T) {
	body := BuildEmailHTML(Message{Images: allSections()})

	wantOrder := []string{
		"cid:header.png",
		"cid:summary.png",
		"cid:story_charts.png",
		"cid:defect_charts.png",
		"cid:stories_table.png",
		"cid:defects_table.png",
	}
	last := -1
	for _, cid := range wantOrder {
		idx := strings.Index(body, cid)
		if idx < 0 {
			t.Fatalf("body missing %s", cid)
		}
		if idx < last {
			t.Errorf("%s appears out of order", cid)
		}
		last = idx
	}
}

func TestBuildEmailHTMLSkipsMissingSections(t *testing.T) {
	// Capture order in the input must not matter either.
	images := []screenshot.Image{
		{Section: "defects_table", Path: "/tmp/shots/defects_table.png"},
		{Section: "header", Path: "/tmp/shots/header.png"},
	}
	body := BuildEmailHTML(Message{Images: images})

	if strings.Contains(body, "cid:summary.png") {
		t.Error("body references an uncaptured section")
	}
	header := strings.Index(body, "cid:header.png")
	defects := strings.Index(body, "cid:defects_table.png")
	if header < 0 || defects < 0 {
		t.Fatal("captured sections missing from body")
	}
	if header > defects {
		t.Error("sections not in page order")
	}
}

func TestBuildEmailHTMLReportLink(t *testing.T) {
	msg := Message{
		SprintName:  "Sprint 42",
		GeneratedAt: time.Date(2026, 3, 17, 9, 30, 0, 0, time.UTC),
		Images:      allSections(),
		ReportURL:   "https://reports.example.com/sprint-42/report.html",
	}
	body := BuildEmailHTML(msg)
	if !strings.Contains(body, msg.ReportURL) {
		t.Error("body missing report link")
	}

	if strings.Contains(BuildEmailHTML(Message{Images: allSections()}), "View the full") {
		t.Error("link rendered without a report URL")
	}
}
