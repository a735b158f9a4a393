package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WikiConfig addresses a Confluence space. When ParentID is set, newly
// created pages are attached under that page.
type WikiConfig struct {
	BaseURL  string
	Username string
	Token    string
	SpaceKey string
	ParentID string

	// PageTitle overrides the per-sprint page title. With a fixed title
	// the same page is updated sprint after sprint.
	PageTitle string
}

// WikiChannel publishes the sprint summary as a Confluence page, creating
// it on first run and bumping the version on later runs.
type WikiChannel struct {
	cfg    WikiConfig
	client *http.Client
	logger *slog.Logger
}

func NewWikiChannel(cfg WikiConfig, logger *slog.Logger) *WikiChannel {
	return &WikiChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.With("component", "wiki"),
	}
}

func (c *WikiChannel) Name() string { return "wiki" }

type wikiPage struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
}

func (c *WikiChannel) Send(ctx context.Context, msg Message) error {
	title := c.cfg.PageTitle
	if title == "" {
		title = msg.SprintName + " Sprint Report"
	}
	body := wikiStorageBody(msg)

	existing, err := c.findPage(ctx, title)
	if err != nil {
		return err
	}
	if existing != nil {
		c.logger.Info("updating wiki page", "id", existing.ID, "version", existing.Version.Number+1)
		return c.updatePage(ctx, existing, title, body)
	}
	c.logger.Info("creating wiki page", "title", title)
	return c.createPage(ctx, title, body)
}

func (c *WikiChannel) findPage(ctx context.Context, title string) (*wikiPage, error) {
	q := url.Values{}
	q.Set("spaceKey", c.cfg.SpaceKey)
	q.Set("title", title)
	q.Set("expand", "version")

	var result struct {
		Results []wikiPage `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/rest/api/content?"+q.Encode(), nil, &result); err != nil {
		return nil, fmt.Errorf("searching for page %q: %w", title, err)
	}
	if len(result.Results) == 0 {
		return nil, nil
	}
	return &result.Results[0], nil
}

func (c *WikiChannel) createPage(ctx context.Context, title, body string) error {
	payload := map[string]any{
		"type":  "page",
		"title": title,
		"space": map[string]string{"key": c.cfg.SpaceKey},
		"body": map[string]any{
			"storage": map[string]string{"value": body, "representation": "storage"},
		},
	}
	if c.cfg.ParentID != "" {
		payload["ancestors"] = []map[string]string{{"id": c.cfg.ParentID}}
	}
	if err := c.do(ctx, http.MethodPost, "/rest/api/content", payload, nil); err != nil {
		return fmt.Errorf("creating page %q: %w", title, err)
	}
	return nil
}

func (c *WikiChannel) updatePage(ctx context.Context, page *wikiPage, title, body string) error {
	payload := map[string]any{
		"id":    page.ID,
		"type":  "page",
		"title": title,
		"body": map[string]any{
			"storage": map[string]string{"value": body, "representation": "storage"},
		},
		"version": map[string]int{"number": page.Version.Number + 1},
	}
	if err := c.do(ctx, http.MethodPut, "/rest/api/content/"+page.ID, payload, nil); err != nil {
		return fmt.Errorf("updating page %s: %w", page.ID, err)
	}
	return nil
}

func (c *WikiChannel) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("wiki returned %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// wikiStorageBody renders the summary in Confluence storage format. The
// page links to the full report rather than embedding screenshots, which
// keeps the publish a single API call.
func wikiStorageBody(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Sprint report for <strong>%s</strong>, generated %s.</p>",
		html.EscapeString(msg.SprintName), msg.GeneratedAt.Format("2006-01-02 15:04 MST"))

	b.WriteString("<table><tbody>")
	rows := []struct {
		label string
		value string
	}{
		{"Stories", fmt.Sprintf("%d", msg.StoryStats.Total)},
		{"Stories Done", fmt.Sprintf("%d", msg.StoryStats.Done)},
		{"Story Completion", fmt.Sprintf("%.1f%%", msg.StoryStats.CompletionRate())},
		{"Defects", fmt.Sprintf("%d", msg.DefectStats.Total)},
		{"Defects Resolved", fmt.Sprintf("%d", msg.DefectStats.Done)},
		{"Defect Resolution", fmt.Sprintf("%.1f%%", msg.DefectStats.CompletionRate())},
		{"Velocity", fmt.Sprintf("%g", msg.StoryStats.Velocity())},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "<tr><th>%s</th><td>%s</td></tr>", r.label, r.value)
	}
	b.WriteString("</tbody></table>")

	if msg.ReportURL != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Full interactive report</a></p>`, html.EscapeString(msg.ReportURL))
	}
	return b.String()
}
