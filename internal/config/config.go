// Package config loads sprint-reporter settings from the environment into
// an immutable Config consumed by every pipeline stage.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// requiredVars must all be present before any network call is made.
var requiredVars = []string{
	"JIRA_BASE_URL",
	"JIRA_API_KEY",
	"JIRA_USERNAME",
	"JIRA_BOARD_ID",
	"JIRA_SPRINT_ID",
	"JIRA_PROJECT",
	"SPRINT_NAME",
}

// Config holds every setting the pipeline needs. It is created once by
// Load and never mutated afterwards.
type Config struct {
	// Jira connection and sprint identity.
	BaseURL    string
	Username   string
	APIToken   string
	BoardID    string
	SprintID   string
	ProjectKey string
	SprintName string

	// Issue classification.
	StoryTypes       []string
	DefectTypes      []string
	StoryPointsField string

	// Fetch behavior.
	PageSize int
	MaxPages int

	// Report output.
	OutputDir string

	// Screenshot capture.
	ScreenshotWidth    int
	EmailImageMaxWidth int
	ChromiumPath       string

	// Email delivery.
	EmailRecipients []string
	EmailCC         []string
	SMTPServer      string
	SMTPPort        int
	EmailUser       string
	EmailPassword   string

	// Chat webhook delivery.
	WebhookURL string

	// Wiki publishing.
	WikiBaseURL  string
	WikiSpace    string
	WikiPage     string
	WikiParentID string
	WikiUsername string
	WikiToken    string

	// Optional integrations.
	DBPath   string
	S3       S3Config
	Schedule string

	Timeout time.Duration
}

// S3Config holds settings for the optional artifact upload stage.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Load reads a .env file when present, then the process environment, then
// an optional YAML override file named by REPORT_CONFIG. It returns an
// error listing every missing required variable.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var missing []string
	for _, v := range requiredVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		BaseURL:    strings.TrimRight(os.Getenv("JIRA_BASE_URL"), "/"),
		Username:   os.Getenv("JIRA_USERNAME"),
		APIToken:   os.Getenv("JIRA_API_KEY"),
		BoardID:    os.Getenv("JIRA_BOARD_ID"),
		SprintID:   os.Getenv("JIRA_SPRINT_ID"),
		ProjectKey: os.Getenv("JIRA_PROJECT"),
		SprintName: os.Getenv("SPRINT_NAME"),

		StoryTypes:       splitList(getenv("STORY_TYPES", "Story")),
		DefectTypes:      splitList(getenv("DEFECT_TYPES", "Escaped Defect,Bug,Defect")),
		StoryPointsField: getenv("STORY_POINTS_FIELD", "customfield_10016"),

		PageSize: atoi("FETCH_PAGE_SIZE", 50),
		MaxPages: atoi("FETCH_MAX_PAGES", 40),

		OutputDir: getenv("OUTPUT_DIR", "."),

		ScreenshotWidth:    atoi("SCREENSHOT_WIDTH", 1400),
		EmailImageMaxWidth: atoi("EMAIL_IMAGE_MAX_WIDTH", 1000),
		ChromiumPath:       os.Getenv("CHROMIUM_PATH"),

		EmailRecipients: splitList(os.Getenv("EMAIL_RECIPIENTS")),
		EmailCC:         splitList(os.Getenv("EMAIL_CC_RECIPIENTS")),
		SMTPServer:      os.Getenv("SMTP_SERVER"),
		SMTPPort:        atoi("SMTP_PORT", 587),
		EmailUser:       os.Getenv("EMAIL_USER"),
		EmailPassword:   os.Getenv("EMAIL_PASSWORD"),

		WebhookURL: os.Getenv("WEBHOOK_URL"),

		WikiBaseURL:  strings.TrimRight(os.Getenv("WIKI_BASE_URL"), "/"),
		WikiSpace:    os.Getenv("WIKI_SPACE"),
		WikiPage:     os.Getenv("WIKI_PAGE_TITLE"),
		WikiParentID: os.Getenv("WIKI_PARENT_ID"),
		WikiUsername: os.Getenv("WIKI_USERNAME"),
		WikiToken:    os.Getenv("WIKI_TOKEN"),

		DBPath: os.Getenv("REPORT_DB"),
		S3: S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    getenv("S3_REGION", "us-east-1"),
			Bucket:    os.Getenv("S3_BUCKET"),
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		Schedule: os.Getenv("REPORT_SCHEDULE"),

		Timeout: dur("REPORT_TIMEOUT", 10*time.Minute),
	}

	if path := os.Getenv("REPORT_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("apply config file %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileConfig is the YAML override surface. Only fields that benefit from
// living in a checked-in file are exposed; credentials stay in the
// environment.
type fileConfig struct {
	StoryTypes       []string `yaml:"storyTypes"`
	DefectTypes      []string `yaml:"defectTypes"`
	StoryPointsField string   `yaml:"storyPointsField"`
	PageSize         int      `yaml:"pageSize"`
	MaxPages         int      `yaml:"maxPages"`
	OutputDir        string   `yaml:"outputDir"`
	ScreenshotWidth  int      `yaml:"screenshotWidth"`
	EmailImageWidth  int      `yaml:"emailImageMaxWidth"`
	Schedule         string   `yaml:"schedule"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse YAML: %w", err)
	}

	if len(fc.StoryTypes) > 0 {
		c.StoryTypes = fc.StoryTypes
	}
	if len(fc.DefectTypes) > 0 {
		c.DefectTypes = fc.DefectTypes
	}
	if fc.StoryPointsField != "" {
		c.StoryPointsField = fc.StoryPointsField
	}
	if fc.PageSize > 0 {
		c.PageSize = fc.PageSize
	}
	if fc.MaxPages > 0 {
		c.MaxPages = fc.MaxPages
	}
	if fc.OutputDir != "" {
		c.OutputDir = fc.OutputDir
	}
	if fc.ScreenshotWidth > 0 {
		c.ScreenshotWidth = fc.ScreenshotWidth
	}
	if fc.EmailImageWidth > 0 {
		c.EmailImageMaxWidth = fc.EmailImageWidth
	}
	if fc.Schedule != "" {
		c.Schedule = fc.Schedule
	}
	return nil
}

func (c *Config) validate() error {
	if len(c.StoryTypes) == 0 && len(c.DefectTypes) == 0 {
		return fmt.Errorf("STORY_TYPES and DEFECT_TYPES are both empty; nothing would be classified")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("FETCH_PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if len(c.EmailRecipients) > 0 && c.SMTPServer != "" {
		if c.EmailUser == "" || c.EmailPassword == "" {
			return fmt.Errorf("SMTP_SERVER set but EMAIL_USER or EMAIL_PASSWORD missing")
		}
	}
	if c.WikiBaseURL != "" && (c.WikiSpace == "" || c.WikiToken == "") {
		return fmt.Errorf("WIKI_BASE_URL set but WIKI_SPACE or WIKI_TOKEN missing")
	}
	return nil
}

// EmailEnabled reports whether any email delivery path is configured.
func (c *Config) EmailEnabled() bool {
	return len(c.EmailRecipients) > 0
}

// S3Enabled reports whether the artifact upload stage is configured.
func (c *Config) S3Enabled() bool {
	return c.S3.Bucket != ""
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func atoi(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func dur(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
