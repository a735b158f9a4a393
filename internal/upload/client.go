// Package upload publishes run artifacts to an S3-compatible bucket so
// the interactive report outlives the machine that generated it.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds the settings needed to connect to an S3-compatible store.
type Config struct {
	Endpoint  string // custom endpoint URL (e.g. http://localhost:3900)
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether an upload target is configured at all.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

// Client wraps an S3 client scoped to a single bucket.
type Client struct {
	s3     *s3.Client
	bucket string
	logger *slog.Logger
}

// New creates an upload Client from the given Config.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &Client{
		s3:     s3.NewFromConfig(awsCfg, opts...),
		bucket: cfg.Bucket,
		logger: logger.With("component", "upload"),
	}, nil
}

// PutRun uploads the given local files under {sprintSlug}/{runID}/ and
// returns a presigned URL for the report page, valid for seven days.
func (c *Client) PutRun(ctx context.Context, sprintName, runID, reportPath string, extraPaths []string) (string, error) {
	prefix := path.Join(slug(sprintName), runID)

	reportKey := path.Join(prefix, filepath.Base(reportPath))
	if err := c.putFile(ctx, reportKey, reportPath); err != nil {
		return "", err
	}
	for _, p := range extraPaths {
		if err := c.putFile(ctx, path.Join(prefix, filepath.Base(p)), p); err != nil {
			return "", err
		}
	}

	presigner := s3.NewPresignClient(c.s3)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &reportKey,
	}, s3.WithPresignExpires(7*24*time.Hour))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", reportKey, err)
	}

	c.logger.Info("uploaded run artifacts",
		"prefix", prefix, "files", 1+len(extraPaths))
	return req.URL, nil
}

func (c *Client) putFile(ctx context.Context, key, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}

	contentType := contentTypeFor(localPath)
	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	c.logger.Debug("uploaded object", "key", key, "bytes", len(data))
	return nil
}

func contentTypeFor(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".csv":
		return "text/csv"
	case ".png":
		return "image/png"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".eml":
		return "message/rfc822"
	default:
		return "application/octet-stream"
	}
}

// slug lowercases the sprint name into a safe key prefix,
// "Sprint 42" becoming "sprint-42".
func slug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
