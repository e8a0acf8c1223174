package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGrid sends e-mail through the SendGrid v3 API
type SendGrid struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

// NewSendGrid creates a SendGrid provider
func NewSendGrid(apiKey, from, fromName string) *SendGrid {
	return &SendGrid{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
	}
}

// Name returns the provider name
func (p *SendGrid) Name() string {
	return "sendgrid"
}

// Send sends message
func (p *SendGrid) Send(ctx context.Context, message *Message) (*SendResult, error) {
	from := mail.NewEmail(p.fromName, p.from)
	if message.From != "" {
		from = mail.NewEmail(message.FromName, message.From)
	}
	to := mail.NewEmail("", message.To)
	m := mail.NewSingleEmail(from, message.Subject, to, message.Body, message.BodyHTML)

	// Codes in the body must not be rewritten by click tracking
	tracking := mail.NewTrackingSettings()
	clickTracking := mail.NewClickTrackingSetting()
	clickTracking.SetEnable(false)
	tracking.SetClickTracking(clickTracking)
	m.SetTrackingSettings(tracking)

	response, err := p.client.SendWithContext(ctx, m)
	if err != nil {
		return &SendResult{Provider: p.Name()}, err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &SendResult{Provider: p.Name()}, fmt.Errorf("SendGrid API error: %d - %s", response.StatusCode, response.Body)
	}

	var messageID string
	if ids, ok := response.Headers["X-Message-Id"]; ok && len(ids) > 0 {
		messageID = ids[0]
	}
	return &SendResult{Delivered: true, MessageID: messageID, Provider: p.Name()}, nil
}
