package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Failover tries each provider in order until one delivers
type Failover struct {
	providers []Provider
	log       *logrus.Entry
}

// NewFailover creates a failover chain. Nil providers are dropped.
func NewFailover(log *logrus.Entry, providers ...Provider) *Failover {
	valid := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			valid = append(valid, p)
		}
	}
	return &Failover{providers: valid, log: log}
}

// Name returns the names of the chained providers
func (f *Failover) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return "failover(" + strings.Join(names, ",") + ")"
}

// Send sends message through the first provider that delivers it
func (f *Failover) Send(ctx context.Context, message *Message) (*SendResult, error) {
	if len(f.providers) == 0 {
		return &SendResult{Provider: f.Name()}, errors.New("no email providers configured")
	}

	var errs []error
	for i, provider := range f.providers {
		if err := ctx.Err(); err != nil {
			return &SendResult{Provider: f.Name()}, err
		}

		result, err := provider.Send(ctx, message)
		if err == nil && result != nil && result.Delivered {
			if i > 0 {
				f.log.WithFields(logrus.Fields{
					"provider": provider.Name(),
					"attempt":  i + 1,
				}).Info("Delivered after failover")
			}
			return result, nil
		}
		if err == nil {
			err = errors.New("send failed without error")
		}

		f.log.WithError(err).WithField("provider", provider.Name()).Warn("Mail provider failed")
		errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
	}

	return &SendResult{Provider: f.Name()}, fmt.Errorf("all email providers failed: %w", errors.Join(errs...))
}
