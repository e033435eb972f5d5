package notifications

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/kariuki00743/safipay/pkg/config"
	"github.com/kariuki00743/safipay/pkg/logger"
)

const sendgridEndpoint = "/v3/mail/send"

// Email is one rendered message for one recipient.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// LogSender writes emails to the log instead of delivering them. Used when no
// SendGrid key is configured.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, email Email) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"to":      email.To,
		"subject": email.Subject,
	})
	s.logg.Info(ctx, "notifications.email.logged")
	return nil
}

// SendgridSender delivers through the SendGrid v3 mail API.
type SendgridSender struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendgridSender builds a sender for cfg. host overrides the API host in
// tests; pass "" for the public endpoint.
func NewSendgridSender(cfg config.NotificationsConfig, host string) *SendgridSender {
	request := sendgrid.GetRequest(cfg.SendgridAPIKey, sendgridEndpoint, host)
	request.Method = http.MethodPost
	return &SendgridSender{
		client: &sendgrid.Client{Request: request},
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

func (s *SendgridSender) Send(ctx context.Context, email Email) error {
	to := mail.NewEmail("", email.To)
	msg := mail.NewSingleEmail(s.from, email.Subject, to, "", email.HTML)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}

// NewSender picks SendGrid when a key is configured and the log sender otherwise.
func NewSender(cfg config.NotificationsConfig, logg *logger.Logger) Sender {
	if cfg.UseSendgrid() {
		return NewSendgridSender(cfg, "")
	}
	return NewLogSender(logg)
}
