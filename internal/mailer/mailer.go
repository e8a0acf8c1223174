// Package mailer delivers outbound e-mail through SendGrid, AWS SES or the
// log, with optional failover between them.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Provider sends a single message
type Provider interface {
	Send(ctx context.Context, message *Message) (*SendResult, error)
	Name() string
}

// Message is an outbound e-mail
type Message struct {
	To       string
	Subject  string
	Body     string
	BodyHTML string
	From     string
	FromName string
}

// SendResult reports the outcome of a send
type SendResult struct {
	Delivered bool
	MessageID string
	Provider  string
}

// Config selects and configures the providers
type Config struct {
	Providers          []string
	From               string
	FromName           string
	SendGridAPIKey     string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

// New builds the provider chain named in cfg.Providers. Unknown names and
// providers missing credentials are skipped with a warning. An empty chain
// falls back to the log provider.
func New(ctx context.Context, cfg Config, log *logrus.Entry) (Provider, error) {
	var providers []Provider

	for _, name := range cfg.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "sendgrid":
			if cfg.SendGridAPIKey == "" {
				log.Warn("SENDGRID_API_KEY not set, skipping SendGrid provider")
				continue
			}
			providers = append(providers, NewSendGrid(cfg.SendGridAPIKey, cfg.From, cfg.FromName))
		case "ses":
			ses, err := NewSES(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to create SES provider: %w", err)
			}
			providers = append(providers, ses)
		case "log":
			providers = append(providers, NewLog(log))
		case "":
		default:
			log.WithField("provider", name).Warn("Unknown mail provider, skipping")
		}
	}

	switch len(providers) {
	case 0:
		log.Warn("No mail provider configured, e-mail will only be logged")
		return NewLog(log), nil
	case 1:
		return providers[0], nil
	}
	return NewFailover(log, providers...), nil
}
