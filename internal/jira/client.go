// Package jira provides a client for the Jira Agile REST API
// (rest/agile/1.0/), scoped to the endpoints the sprint report needs.
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Classified failures. Callers check these with errors.Is to decide how a
// run fails; neither is ever retried.
var (
	// ErrAuth covers 401 and 403 responses. Check credentials.
	ErrAuth = errors.New("jira: authentication failed")
	// ErrNotFound covers 404 responses. Verify the sprint/board identifier.
	ErrNotFound = errors.New("jira: resource not found")
)

const (
	maxAttempts  = 3
	issueFields  = "key,summary,status,assignee,updated,issuetype,priority,created,reporter"
	agilePrefix  = "/rest/agile/1.0"
	defaultDelay = 200 * time.Millisecond
)

// Config holds Jira connection settings.
type Config struct {
	BaseURL  string // e.g. https://yourcompany.atlassian.net
	Username string // account email
	Token    string // API token, sent as Basic auth with Username

	// StoryPointsField is the custom field id carrying story points,
	// e.g. customfield_10016. Requested in addition to the fixed fields.
	StoryPointsField string

	// PageSize and MaxPages bound the pagination loop. Zero values fall
	// back to 50 and 40.
	PageSize int
	MaxPages int
}

// Client is a Jira Agile API client.
type Client struct {
	baseURL    string
	username   string
	token      string
	fields     string
	pageSize   int
	maxPages   int
	httpClient *http.Client
	limiter    *rate.Limiter
	backoff    time.Duration
}

// New creates a Jira client from cfg.
func New(cfg Config) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 40
	}
	fields := issueFields
	if cfg.StoryPointsField != "" {
		fields += "," + cfg.StoryPointsField
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		token:    cfg.Token,
		fields:   fields,
		pageSize: pageSize,
		maxPages: maxPages,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(defaultDelay), 1),
		backoff: time.Second,
	}
}

// BaseURL returns the configured Jira base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Issue is the raw Agile API representation of one work item. Fields stays
// raw JSON so the parser can read both the fixed fields and the
// configurable story-points custom field.
type Issue struct {
	Key    string          `json:"key"`
	Fields json.RawMessage `json:"fields"`
}

// Sprint holds sprint metadata from /sprint/{id}.
type Sprint struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Goal      string `json:"goal"`
}

// Board holds one entry from /board.
type Board struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type issuePage struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

type boardPage struct {
	IsLast bool    `json:"isLast"`
	Values []Board `json:"values"`
}

// SprintIssues fetches every issue in the sprint, following pagination
// until the API returns a short page or the page cap is reached. The
// onPage callback, when non-nil, receives running (fetched, total) counts
// after each page.
func (c *Client) SprintIssues(ctx context.Context, sprintID string, onPage func(fetched, total int)) ([]Issue, error) {
	var all []Issue
	startAt := 0

	for page := 0; page < c.maxPages; page++ {
		params := url.Values{
			"startAt":    {strconv.Itoa(startAt)},
			"maxResults": {strconv.Itoa(c.pageSize)},
			"fields":     {c.fields},
		}
		reqURL := fmt.Sprintf("%s%s/sprint/%s/issue?%s", c.baseURL, agilePrefix, url.PathEscape(sprintID), params.Encode())

		body, err := c.doGet(ctx, reqURL)
		if err != nil {
			return nil, fmt.Errorf("fetch sprint %s issues: %w", sprintID, err)
		}

		var resp issuePage
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode sprint issues: %w", err)
		}

		all = append(all, resp.Issues...)
		if onPage != nil {
			onPage(len(all), resp.Total)
		}

		if len(resp.Issues) < c.pageSize {
			break
		}
		startAt += c.pageSize
	}

	return all, nil
}

// GetSprint fetches metadata for one sprint.
func (c *Client) GetSprint(ctx context.Context, sprintID string) (*Sprint, error) {
	reqURL := fmt.Sprintf("%s%s/sprint/%s", c.baseURL, agilePrefix, url.PathEscape(sprintID))
	body, err := c.doGet(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("get sprint %s: %w", sprintID, err)
	}
	var s Sprint
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode sprint: %w", err)
	}
	return &s, nil
}

// Boards lists every board visible to the configured account.
func (c *Client) Boards(ctx context.Context) ([]Board, error) {
	var all []Board
	startAt := 0

	for {
		params := url.Values{
			"startAt": {strconv.Itoa(startAt)},
		}
		reqURL := fmt.Sprintf("%s%s/board?%s", c.baseURL, agilePrefix, params.Encode())
		body, err := c.doGet(ctx, reqURL)
		if err != nil {
			return nil, fmt.Errorf("list boards: %w", err)
		}

		var resp boardPage
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode boards: %w", err)
		}

		all = append(all, resp.Values...)
		if resp.IsLast || len(resp.Values) == 0 {
			break
		}
		startAt += len(resp.Values)
	}

	return all, nil
}

// Self verifies connectivity and credentials with a cheap request. It is
// the preflight check run before the pipeline starts.
func (c *Client) Self(ctx context.Context) error {
	if _, err := c.doGet(ctx, c.baseURL+"/rest/api/2/myself"); err != nil {
		return fmt.Errorf("connectivity check: %w", err)
	}
	return nil
}

// doGet performs a GET with Basic auth, retrying transient failures up to
// maxAttempts. Authentication and not-found failures are surfaced
// immediately.
func (c *Client) doGet(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryAfter, err := c.get(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrAuth) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		delay := c.backoff * time.Duration(1<<(attempt-1))
		if retryAfter > delay {
			delay = retryAfter
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) get(ctx context.Context, reqURL string) (body []byte, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.username, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, 0, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, 0, fmt.Errorf("%w (status %d): check JIRA_USERNAME and JIRA_API_KEY", ErrAuth, resp.StatusCode)
	case http.StatusNotFound:
		return nil, 0, fmt.Errorf("%w: verify the sprint/board identifier (%s)", ErrNotFound, pathOf(reqURL))
	case http.StatusTooManyRequests:
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, perr := strconv.Atoi(s); perr == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return nil, retryAfter, fmt.Errorf("jira API rate limited (status 429)")
	default:
		return nil, 0, fmt.Errorf("jira API returned %d: %s", resp.StatusCode, string(body[:min(len(body), 200)]))
	}
}

func pathOf(reqURL string) string {
	u, err := url.Parse(reqURL)
	if err != nil {
		return reqURL
	}
	return u.Path
}
