package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// WebhookChannel posts a compact JSON summary of the run to a single URL,
// for chat integrations and downstream automation.
type WebhookChannel struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewWebhookChannel(url string, logger *slog.Logger) *WebhookChannel {
	return &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.With("component", "webhook"),
	}
}

func (c *WebhookChannel) Name() string { return "webhook" }

type webhookPayload struct {
	Sprint           string         `json:"sprint"`
	GeneratedAt      string         `json:"generated_at"`
	StoriesTotal     int            `json:"stories_total"`
	StoriesDone      int            `json:"stories_done"`
	StoryCompletion  float64        `json:"story_completion"`
	DefectsTotal     int            `json:"defects_total"`
	DefectsResolved  int            `json:"defects_resolved"`
	DefectResolution float64        `json:"defect_resolution"`
	Velocity         float64        `json:"velocity"`
	ReportURL        string         `json:"report_url,omitempty"`
	Action           *webhookAction `json:"action,omitempty"`
}

// webhookAction renders as a clickable button in receivers that support
// interactive cards.
type webhookAction struct {
	Type string `json:"type"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

func (c *WebhookChannel) Send(ctx context.Context, msg Message) error {
	payload := webhookPayload{
		Sprint:           msg.SprintName,
		GeneratedAt:      msg.GeneratedAt.UTC().Format(time.RFC3339),
		StoriesTotal:     msg.StoryStats.Total,
		StoriesDone:      msg.StoryStats.Done,
		StoryCompletion:  msg.StoryStats.CompletionRate(),
		DefectsTotal:     msg.DefectStats.Total,
		DefectsResolved:  msg.DefectStats.Done,
		DefectResolution: msg.DefectStats.CompletionRate(),
		Velocity:         msg.StoryStats.Velocity(),
		ReportURL:        msg.ReportURL,
	}
	if msg.ReportURL != "" {
		payload.Action = &webhookAction{Type: "button", Text: "View Report", URL: msg.ReportURL}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	c.logger.Debug("webhook accepted", "status", resp.StatusCode)
	return nil
}
