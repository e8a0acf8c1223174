package mailer

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Log writes messages to the log instead of sending them. It always
// reports delivery.
type Log struct {
	log *logrus.Entry
}

// NewLog creates a log provider
func NewLog(log *logrus.Entry) *Log {
	return &Log{log: log}
}

// Name returns the provider name
func (p *Log) Name() string {
	return "log"
}

// Send logs message
func (p *Log) Send(ctx context.Context, message *Message) (*SendResult, error) {
	id := uuid.NewString()
	p.log.WithFields(logrus.Fields{
		"message_id": id,
		"to":         message.To,
		"subject":    message.Subject,
	}).Info(message.Body)
	return &SendResult{Delivered: true, MessageID: id, Provider: p.Name()}, nil
}
