package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sprintdeck/sprint-reporter/internal/config"
	"github.com/sprintdeck/sprint-reporter/internal/jira"
	"github.com/sprintdeck/sprint-reporter/internal/notify"
	"github.com/sprintdeck/sprint-reporter/internal/screenshot"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		SprintID:           "451",
		SprintName:         "Sprint 42",
		StoryTypes:         []string{"Story"},
		DefectTypes:        []string{"Bug", "Defect", "Escaped Defect"},
		StoryPointsField:   "customfield_10016",
		OutputDir:          t.TempDir(),
		ScreenshotWidth:    1400,
		EmailImageMaxWidth: 1000,
		Timeout:            time.Minute,
	}
}

type stubFetcher struct {
	issues  []jira.Issue
	err     error
	selfErr error
}

func (s *stubFetcher) Self(ctx context.Context) error { return s.selfErr }

func (s *stubFetcher) SprintIssues(ctx context.Context, sprintID string, onPage func(int, int)) ([]jira.Issue, error) {
	if onPage != nil {
		onPage(len(s.issues), len(s.issues))
	}
	return s.issues, s.err
}

type stubCapturer struct {
	err error
}

func (s *stubCapturer) Capture(ctx context.Context, htmlPath, outDir string) ([]screenshot.Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	var images []screenshot.Image
	for _, section := range []string{"header", "summary"} {
		path := filepath.Join(outDir, section+".png")
		file, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		if err := png.Encode(file, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
			return nil, err
		}
		file.Close()
		images = append(images, screenshot.Image{Section: section, Path: path})
	}
	return images, nil
}

type stubChannel struct {
	name  string
	err   error
	calls int
	last  notify.Message
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(ctx context.Context, msg notify.Message) error {
	s.calls++
	s.last = msg
	return s.err
}

func testIssue(key, issueType, status string, points float64) jira.Issue {
	fields := fmt.Sprintf(`{
		"summary": "work on %s",
		"status": {"name": %q},
		"issuetype": {"name": %q},
		"assignee": {"displayName": "Alice"},
		"reporter": {"displayName": "Carol"},
		"priority": {"name": "Medium"},
		"created": "2026-03-01T10:00:00.000+0000",
		"updated": "2026-03-10T10:00:00.000+0000",
		"customfield_10016": %g
	}`, key, status, issueType, points)
	return jira.Issue{Key: key, Fields: []byte(fields)}
}

func testPipeline(t *testing.T, cfg *config.Config, fetcher Fetcher, capturer Capturer, channels ...notify.Channel) *Pipeline {
	t.Helper()
	return &Pipeline{
		cfg:      cfg,
		logger:   testLogger(),
		fetcher:  fetcher,
		capturer: capturer,
		channels: channels,
		now:      func() time.Time { return time.Date(2026, 3, 17, 9, 30, 0, 0, time.UTC) },
	}
}

func TestPipelineRun(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &stubFetcher{issues: []jira.Issue{
		testIssue("PROJ-1", "Story", "Done", 5),
		testIssue("PROJ-2", "Story", "In Progress", 3),
		testIssue("PROJ-3", "Bug", "Resolved", 0),
		testIssue("PROJ-4", "Epic", "Done", 0),
	}}
	channel := &stubChannel{name: "webhook"}

	p := testPipeline(t, cfg, fetcher, &stubCapturer{}, channel)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, name := range []string{
		"report.html",
		"sprint_stories.csv",
		"sprint_defects.csv",
		"sprint_report.xlsx",
		filepath.Join("report_screenshots", "header.png"),
		filepath.Join("report_screenshots_resized", "header.png"),
	} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	if channel.calls != 1 {
		t.Fatalf("channel calls: got %d", channel.calls)
	}
	msg := channel.last
	if msg.StoryStats.Total != 2 || msg.StoryStats.Done != 1 {
		t.Errorf("story stats: %+v", msg.StoryStats)
	}
	if msg.DefectStats.Total != 1 || msg.DefectStats.Done != 1 {
		t.Errorf("defect stats: %+v", msg.DefectStats)
	}
	if len(msg.Images) != 2 {
		t.Errorf("images: got %d", len(msg.Images))
	}
	for _, img := range msg.Images {
		if filepath.Base(filepath.Dir(img.Path)) != "report_screenshots_resized" {
			t.Errorf("message should carry resized copies, got %s", img.Path)
		}
	}
	if msg.Subject != "Sprint 42 Sprint Report" {
		t.Errorf("subject: got %q", msg.Subject)
	}
}

func TestPipelineFetchErrorAborts(t *testing.T) {
	cfg := testConfig(t)
	channel := &stubChannel{name: "webhook"}
	p := testPipeline(t, cfg, &stubFetcher{err: jira.ErrAuth}, &stubCapturer{}, channel)

	err := p.Run(context.Background())
	if !errors.Is(err, jira.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if channel.calls != 0 {
		t.Error("channels must not run after a fetch failure")
	}
	if _, statErr := os.Stat(filepath.Join(cfg.OutputDir, "report.html")); statErr == nil {
		t.Error("report written despite fetch failure")
	}
}

func TestPipelinePreflightFailureAborts(t *testing.T) {
	cfg := testConfig(t)
	p := testPipeline(t, cfg, &stubFetcher{selfErr: jira.ErrAuth}, &stubCapturer{})

	err := p.Run(context.Background())
	if !errors.Is(err, jira.ErrAuth) {
		t.Fatalf("expected auth error from preflight, got %v", err)
	}
}

func TestPipelineCaptureFailureDegrades(t *testing.T) {
	cfg := testConfig(t)
	channel := &stubChannel{name: "webhook"}
	p := testPipeline(t, cfg, &stubFetcher{issues: []jira.Issue{testIssue("PROJ-1", "Story", "Done", 5)}},
		&stubCapturer{err: errors.New("no chromium")}, channel)

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("capture failure should surface in the run error")
	}
	if channel.calls != 1 {
		t.Error("channels must still run without screenshots")
	}
	if len(channel.last.Images) != 0 {
		t.Error("message should carry no images")
	}
	if _, statErr := os.Stat(filepath.Join(cfg.OutputDir, "report.html")); statErr != nil {
		t.Error("report should still be written")
	}
}

func TestPipelineChannelFailureDoesNotStopOthers(t *testing.T) {
	cfg := testConfig(t)
	failing := &stubChannel{name: "email", err: errors.New("smtp down")}
	healthy := &stubChannel{name: "wiki"}
	p := testPipeline(t, cfg, &stubFetcher{issues: []jira.Issue{testIssue("PROJ-1", "Story", "Done", 5)}},
		&stubCapturer{}, failing, healthy)

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("channel failure should surface in the run error")
	}
	if healthy.calls != 1 {
		t.Error("healthy channel skipped after earlier failure")
	}
}

func TestBuildChannels(t *testing.T) {
	cfg := testConfig(t)
	if got := buildChannels(cfg, testLogger()); len(got) != 0 {
		t.Errorf("no channels expected, got %d", len(got))
	}

	cfg.EmailRecipients = []string{"team@example.com"}
	channels := buildChannels(cfg, testLogger())
	if len(channels) != 1 || channels[0].Name() != "local" {
		t.Errorf("recipients without SMTP should get the local channel: %v", names(channels))
	}

	cfg.SMTPServer = "smtp.example.com"
	cfg.EmailUser = "bot@example.com"
	cfg.EmailPassword = "secret"
	cfg.WebhookURL = "https://chat.example.com/hook"
	cfg.WikiBaseURL = "https://wiki.example.com"
	cfg.WikiSpace = "ENG"
	cfg.WikiToken = "token"
	channels = buildChannels(cfg, testLogger())
	want := []string{"email", "webhook", "wiki"}
	got := names(channels)
	if len(got) != len(want) {
		t.Fatalf("channels: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("channel %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func names(channels []notify.Channel) []string {
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		out = append(out, c.Name())
	}
	return out
}

func TestRunScheduledRejectsBadSpec(t *testing.T) {
	p := testPipeline(t, testConfig(t), &stubFetcher{}, &stubCapturer{})
	err := RunScheduled(context.Background(), "not a cron spec", p, testLogger())
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
