// Package notify distributes a finished sprint report over the configured
// channels. Channels are independent; a failure on one never stops the
// others.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sprintdeck/sprint-reporter/internal/report"
	"github.com/sprintdeck/sprint-reporter/internal/screenshot"
)

// Message is the channel-independent payload assembled once per run.
type Message struct {
	Subject     string
	SprintName  string
	GeneratedAt time.Time
	StoryStats  report.Stats
	DefectStats report.Stats

	// Images are the captured report sections in page order. A section
	// that failed to capture is simply absent.
	Images []screenshot.Image

	// ReportURL links to the uploaded full report when an upload target
	// is configured, empty otherwise.
	ReportURL string
}

// Channel delivers a message to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Result records the outcome of one channel delivery.
type Result struct {
	Channel string
	Err     error
}

// SendAll delivers the message on every channel, collecting per-channel
// outcomes. It never short-circuits.
func SendAll(ctx context.Context, channels []Channel, msg Message, logger *slog.Logger) []Result {
	results := make([]Result, 0, len(channels))
	for _, ch := range channels {
		err := ch.Send(ctx, msg)
		if err != nil {
			logger.Error("channel delivery failed", "channel", ch.Name(), "error", err)
		} else {
			logger.Info("channel delivered", "channel", ch.Name())
		}
		results = append(results, Result{Channel: ch.Name(), Err: err})
	}
	return results
}

// CombinedErr folds the per-channel results into a single error, nil when
// every delivery succeeded.
func CombinedErr(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Channel, r.Err))
		}
	}
	return errors.Join(errs...)
}
