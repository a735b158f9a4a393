package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const draftName = "sprint_report.eml"

// LocalChannel writes the composed email as an .eml draft instead of
// sending it. It is the fallback channel when no SMTP host is configured,
// so a run always produces an inspectable artifact.
type LocalChannel struct {
	outputDir string
	from      string
	to        []string
	logger    *slog.Logger
}

func NewLocalChannel(outputDir, from string, to []string, logger *slog.Logger) *LocalChannel {
	return &LocalChannel{
		outputDir: outputDir,
		from:      from,
		to:        to,
		logger:    logger.With("component", "local"),
	}
}

func (c *LocalChannel) Name() string { return "local" }

func (c *LocalChannel) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(c.outputDir, draftName)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating draft %s: %w", path, err)
	}
	defer file.Close()

	m := composeMail(c.from, c.to, msg)
	if _, err := m.WriteTo(file); err != nil {
		return fmt.Errorf("writing draft %s: %w", path, err)
	}

	c.logger.Info("wrote email draft", "path", path)
	return nil
}
