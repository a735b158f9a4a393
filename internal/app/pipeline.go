// Package app wires the pipeline stages together: fetch, classify,
// render, export, capture, upload, distribute, record.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sprintdeck/sprint-reporter/internal/config"
	"github.com/sprintdeck/sprint-reporter/internal/jira"
	"github.com/sprintdeck/sprint-reporter/internal/notify"
	"github.com/sprintdeck/sprint-reporter/internal/report"
	"github.com/sprintdeck/sprint-reporter/internal/screenshot"
	"github.com/sprintdeck/sprint-reporter/internal/store"
	"github.com/sprintdeck/sprint-reporter/internal/upload"
)

const (
	reportName    = "report.html"
	screenshotDir = "report_screenshots"
	resizedDir    = "report_screenshots_resized"
)

// Fetcher pulls the sprint issues. Satisfied by *jira.Client.
type Fetcher interface {
	Self(ctx context.Context) error
	SprintIssues(ctx context.Context, sprintID string, onPage func(fetched, total int)) ([]jira.Issue, error)
}

// Capturer renders report sections to images. Satisfied by
// *screenshot.Capturer.
type Capturer interface {
	Capture(ctx context.Context, htmlPath, outDir string) ([]screenshot.Image, error)
}

// Uploader publishes run artifacts. Satisfied by *upload.Client.
type Uploader interface {
	PutRun(ctx context.Context, sprintName, runID, reportPath string, extraPaths []string) (string, error)
}

// Pipeline executes one report run end to end.
type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	fetcher  Fetcher
	capturer Capturer
	channels []notify.Channel
	history  *store.Store
	uploader Uploader

	now    func() time.Time
	onPage func(fetched, total int)
}

// New assembles a Pipeline from the configuration. Optional stages
// (history, upload) are wired only when configured.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	p := &Pipeline{
		cfg:    cfg,
		logger: logger.With("component", "pipeline"),
		fetcher: jira.New(jira.Config{
			BaseURL:          cfg.BaseURL,
			Username:         cfg.Username,
			Token:            cfg.APIToken,
			StoryPointsField: cfg.StoryPointsField,
			PageSize:         cfg.PageSize,
			MaxPages:         cfg.MaxPages,
		}),
		capturer: screenshot.New(cfg.ScreenshotWidth, cfg.ChromiumPath, logger),
		channels: buildChannels(cfg, logger),
		now:      time.Now,
	}

	if cfg.DBPath != "" {
		history, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
		p.history = history
	}

	if cfg.S3Enabled() {
		uploader, err := upload.New(ctx, upload.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("configure upload: %w", err)
		}
		p.uploader = uploader
	}

	return p, nil
}

// SetProgress installs a per-page fetch progress callback.
func (p *Pipeline) SetProgress(fn func(fetched, total int)) {
	p.onPage = fn
}

// Close releases pipeline resources.
func (p *Pipeline) Close() error {
	if p.history != nil {
		return p.history.Close()
	}
	return nil
}

// buildChannels derives the delivery channels from configuration.
// Recipients without an SMTP host get a local .eml draft so a run always
// produces something deliverable.
func buildChannels(cfg *config.Config, logger *slog.Logger) []notify.Channel {
	var channels []notify.Channel

	if cfg.EmailEnabled() {
		to := append(append([]string{}, cfg.EmailRecipients...), cfg.EmailCC...)
		if cfg.SMTPServer != "" {
			channels = append(channels, notify.NewEmailChannel(notify.EmailConfig{
				Host:     cfg.SMTPServer,
				Port:     cfg.SMTPPort,
				Username: cfg.EmailUser,
				Password: cfg.EmailPassword,
				From:     cfg.EmailUser,
				To:       to,
			}, logger))
		} else {
			channels = append(channels, notify.NewLocalChannel(cfg.OutputDir, cfg.EmailUser, to, logger))
		}
	}

	if cfg.WebhookURL != "" {
		channels = append(channels, notify.NewWebhookChannel(cfg.WebhookURL, logger))
	}

	if cfg.WikiBaseURL != "" {
		channels = append(channels, notify.NewWikiChannel(notify.WikiConfig{
			BaseURL:   cfg.WikiBaseURL,
			Username:  cfg.WikiUsername,
			Token:     cfg.WikiToken,
			SpaceKey:  cfg.WikiSpace,
			ParentID:  cfg.WikiParentID,
			PageTitle: cfg.WikiPage,
		}, logger))
	}

	return channels
}

// Run executes one full report run. The whole run is bounded by the
// configured timeout.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	runID := p.beginHistory(ctx)
	err := p.run(ctx, runID)
	p.finishHistory(ctx, runID, err)
	return err
}

func (p *Pipeline) run(ctx context.Context, runID string) error {
	cfg := p.cfg

	// Credentials are verified before any paginated fetch so a typo in
	// JIRA_USERNAME or JIRA_API_KEY fails fast.
	if err := p.fetcher.Self(ctx); err != nil {
		return fmt.Errorf("jira preflight: %w", err)
	}

	p.logger.Info("fetching sprint issues", "sprint", cfg.SprintID, "board", cfg.BoardID)
	issues, err := p.fetcher.SprintIssues(ctx, cfg.SprintID, p.onPage)
	if err != nil {
		return fmt.Errorf("fetch sprint issues: %w", err)
	}

	stories, defects, skipped := report.Partition(issues, cfg.StoryTypes, cfg.DefectTypes, cfg.StoryPointsField)
	p.logger.Info("classified issues",
		"total", len(issues), "stories", len(stories), "defects", len(defects), "skipped", skipped)

	rep := report.NewReport(cfg.SprintName, p.now().UTC(), stories, defects)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	page, err := report.Render(rep)
	if err != nil {
		return err
	}
	reportPath := filepath.Join(cfg.OutputDir, reportName)
	if err := os.WriteFile(reportPath, page, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	p.logger.Info("rendered report", "path", reportPath, "bytes", len(page))

	storiesCSV, defectsCSV, err := report.NewCSVExporter(cfg.OutputDir).Export(stories, defects)
	if err != nil {
		return err
	}
	excelPath, err := report.NewExcelExporter(cfg.OutputDir).Export(rep)
	if err != nil {
		return err
	}

	// Capture failures degrade the run rather than abort it: link-only
	// channels still deliver.
	images, captureErr := p.capturer.Capture(ctx, reportPath, filepath.Join(cfg.OutputDir, screenshotDir))
	var emailImages []screenshot.Image
	if captureErr != nil {
		p.logger.Error("screenshot capture failed, continuing without images", "error", captureErr)
		captureErr = fmt.Errorf("capture screenshots: %w", captureErr)
	} else {
		emailImages, err = screenshot.ResizeInto(images, cfg.EmailImageMaxWidth, filepath.Join(cfg.OutputDir, resizedDir))
		if err != nil {
			return fmt.Errorf("resize screenshots: %w", err)
		}
	}

	reportURL := ""
	if p.uploader != nil {
		extras := []string{storiesCSV, defectsCSV, excelPath}
		for _, img := range images {
			extras = append(extras, img.Path)
		}
		reportURL, err = p.uploader.PutRun(ctx, cfg.SprintName, runID, reportPath, extras)
		if err != nil {
			return fmt.Errorf("upload artifacts: %w", err)
		}
		p.logger.Info("uploaded report", "url", reportURL)
	}

	msg := notify.Message{
		Subject:     cfg.SprintName + " Sprint Report",
		SprintName:  cfg.SprintName,
		GeneratedAt: rep.GeneratedAt,
		StoryStats:  rep.StoryStats,
		DefectStats: rep.DefectStats,
		Images:      emailImages,
		ReportURL:   reportURL,
	}

	results := notify.SendAll(ctx, p.channels, msg, p.logger)
	p.recordChannels(ctx, runID, results)

	if runID != "" {
		if err := p.history.CompleteRun(ctx, runID, store.RunSummary{
			StoriesTotal: rep.StoryStats.Total,
			StoriesDone:  rep.StoryStats.Done,
			DefectsTotal: rep.DefectStats.Total,
			DefectsDone:  rep.DefectStats.Done,
			Velocity:     rep.StoryStats.Velocity(),
			ReportPath:   reportPath,
			ReportURL:    reportURL,
		}); err != nil {
			p.logger.Error("recording run summary failed", "error", err)
		}
	}

	return errors.Join(captureErr, notify.CombinedErr(results))
}

func (p *Pipeline) beginHistory(ctx context.Context) string {
	if p.history == nil {
		return ""
	}
	runID, err := p.history.BeginRun(ctx, p.cfg.SprintID, p.cfg.SprintName)
	if err != nil {
		p.logger.Error("recording run start failed", "error", err)
		return ""
	}
	return runID
}

func (p *Pipeline) finishHistory(ctx context.Context, runID string, runErr error) {
	if runID == "" || runErr == nil {
		return
	}
	if err := p.history.FailRun(context.WithoutCancel(ctx), runID, runErr); err != nil {
		p.logger.Error("recording run failure failed", "error", err)
	}
}

func (p *Pipeline) recordChannels(ctx context.Context, runID string, results []notify.Result) {
	if runID == "" {
		return
	}
	for _, r := range results {
		if err := p.history.RecordChannel(ctx, runID, r.Channel, r.Err); err != nil {
			p.logger.Error("recording channel result failed", "channel", r.Channel, "error", err)
		}
	}
}
