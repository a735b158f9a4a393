package screenshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// Section is one report region captured as a standalone image.
type Section struct {
	Name     string
	Selector string
}

// ReportSections lists the capture regions in the order they appear in
// the report page and in the distributed email.
var ReportSections = []Section{
	{Name: "header", Selector: "#header-section"},
	{Name: "summary", Selector: "#summary-section"},
	{Name: "story_charts", Selector: "#story-charts-section"},
	{Name: "defect_charts", Selector: "#defect-charts-section"},
	{Name: "stories_table", Selector: "#stories-table-section"},
	{Name: "defects_table", Selector: "#defects-table-section"},
}

// Image is one captured section on disk.
type Image struct {
	Section string
	Path    string
}

type Capturer struct {
	width        int
	chromiumPath string
	settle       time.Duration
	logger       *slog.Logger
}

// New returns a Capturer rendering pages at the given viewport width.
// chromiumPath overrides browser discovery when non-empty.
func New(width int, chromiumPath string, logger *slog.Logger) *Capturer {
	return &Capturer{
		width:        width,
		chromiumPath: chromiumPath,
		settle:       2 * time.Second,
		logger:       logger.With("component", "screenshot"),
	}
}

// Capture loads the HTML file in headless Chromium and writes one PNG per
// report section into outDir. A section that fails to capture is logged
// and skipped; Capture fails only when the browser session itself fails
// or no section could be captured.
func (c *Capturer) Capture(ctx context.Context, htmlPath, outDir string) ([]Image, error) {
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return nil, fmt.Errorf("resolving report path: %w", err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating screenshot directory: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(c.width, 1000),
		chromedp.Flag("hide-scrollbars", true),
	)
	if c.chromiumPath != "" {
		opts = append(opts, chromedp.ExecPath(c.chromiumPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// One navigation, then per-section element screenshots. The settle
	// pause lets the chart scripts finish drawing before capture.
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+abs),
		chromedp.WaitReady("body"),
		chromedp.Sleep(c.settle),
	); err != nil {
		return nil, fmt.Errorf("loading report page: %w", err)
	}

	var images []Image
	for _, section := range ReportSections {
		var buf []byte
		err := chromedp.Run(browserCtx,
			chromedp.Screenshot(section.Selector, &buf, chromedp.NodeVisible, chromedp.ByQuery),
		)
		if err != nil {
			c.logger.Warn("section capture failed, skipping", "section", section.Name, "error", err)
			continue
		}

		path := filepath.Join(outDir, section.Name+".png")
		if err := os.WriteFile(path, buf, 0644); err != nil {
			return nil, fmt.Errorf("writing screenshot %s: %w", path, err)
		}
		images = append(images, Image{Section: section.Name, Path: path})
		c.logger.Debug("captured section", "section", section.Name, "bytes", len(buf))
	}

	if len(images) == 0 {
		return nil, errors.New("no report section could be captured")
	}
	return images, nil
}
