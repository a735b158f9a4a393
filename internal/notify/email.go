package notify

import (
	"context"
	"fmt"
	"log/slog"

	gomail "gopkg.in/gomail.v2"
)

// EmailConfig carries the SMTP settings and addressing for the email
// channel.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

type EmailChannel struct {
	cfg    EmailConfig
	logger *slog.Logger
}

func NewEmailChannel(cfg EmailConfig, logger *slog.Logger) *EmailChannel {
	return &EmailChannel{cfg: cfg, logger: logger.With("component", "email")}
}

func (c *EmailChannel) Name() string { return "email" }

// Send builds the inline-image message and delivers it over SMTP with
// STARTTLS. The context deadline is honored up front; the SMTP dialog
// itself is bounded by the dialer.
func (c *EmailChannel) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := composeMail(c.cfg.From, c.cfg.To, msg)

	c.logger.Info("sending report email",
		"host", c.cfg.Host, "recipients", len(c.cfg.To), "images", len(msg.Images))

	d := gomail.NewDialer(c.cfg.Host, c.cfg.Port, c.cfg.Username, c.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("SMTP delivery via %s:%d: %w", c.cfg.Host, c.cfg.Port, err)
	}
	return nil
}

// composeMail is shared with the local channel so the .eml draft matches
// what the email channel would send.
func composeMail(from string, to []string, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	if len(to) > 0 {
		m.SetHeader("To", to...)
	}
	m.SetHeader("Subject", msg.Subject)
	for _, img := range msg.Images {
		m.Embed(img.Path)
	}
	m.SetBody("text/html", BuildEmailHTML(msg))
	return m
}
