// Package notify records in-app notifications and sends the matching e-mail.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/localnerve/propmarket/internal/mailer"
	"github.com/localnerve/propmarket/internal/metrics"
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/repository"
	"github.com/sirupsen/logrus"
)

// Notice is a message addressed to one user
type Notice struct {
	UserID     string
	Template   string
	EntityType models.EntityType
	EntityID   string
	Vars       Vars
	// EmailOnly skips the in-app notification row
	EmailOnly bool
}

// Dispatcher writes notifications and hands e-mail to a mail provider
type Dispatcher struct {
	store    *repository.Store
	mailer   mailer.Provider
	renderer *Renderer
	baseURL  string
	log      *logrus.Entry
}

// NewDispatcher creates a dispatcher. baseURL is used to build entity links.
func NewDispatcher(store *repository.Store, provider mailer.Provider, renderer *Renderer, baseURL string, log *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		store:    store,
		mailer:   provider,
		renderer: renderer,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      log,
	}
}

// Link returns the public URL of an entity
func (d *Dispatcher) Link(entityType models.EntityType, entityID string) string {
	if d.baseURL == "" || entityID == "" {
		return ""
	}
	collection := "properties"
	if entityType == models.EntityDemand {
		collection = "demands"
	}
	return fmt.Sprintf("%s/%s/%s", d.baseURL, collection, entityID)
}

// Dispatch records the notice and e-mails it. The in-app row is written
// before the mail is attempted; a mail failure is returned to the caller
// but the row stays.
func (d *Dispatcher) Dispatch(ctx context.Context, notice Notice) (*mailer.SendResult, error) {
	user, err := d.store.FindUser(ctx, notice.UserID)
	if err != nil {
		return nil, err
	}

	vars := notice.Vars
	if vars.Name == "" {
		vars.Name = user.Name
	}
	if vars.Link == "" {
		vars.Link = d.Link(notice.EntityType, notice.EntityID)
	}
	if vars.EntityType == "" {
		vars.EntityType = string(notice.EntityType)
	}

	rendered, err := d.renderer.Render(notice.Template, vars)
	if err != nil {
		return nil, err
	}

	var row *models.Notification
	if !notice.EmailOnly {
		row = &models.Notification{
			UserID:     user.ID,
			Type:       notice.Template,
			Title:      rendered.Subject,
			Message:    rendered.Text,
			EntityType: notice.EntityType,
			EntityID:   notice.EntityID,
		}
		if err := d.store.Create(ctx, row); err != nil {
			return nil, fmt.Errorf("failed to store notification: %w", err)
		}
	}

	if user.Email == "" {
		return nil, fmt.Errorf("user %s has no e-mail address", user.ID)
	}

	result, err := d.mailer.Send(ctx, &mailer.Message{
		To:       user.Email,
		Subject:  rendered.Subject,
		Body:     rendered.Text,
		BodyHTML: rendered.HTML,
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(notice.Template, "failed").Inc()
		return result, err
	}
	metrics.NotificationsSent.WithLabelValues(notice.Template, "delivered").Inc()

	if row != nil && result != nil {
		if err := d.store.DB(ctx).Model(row).Updates(map[string]interface{}{
			"emailed":  true,
			"provider": result.Provider,
		}).Error; err != nil {
			d.log.WithError(err).WithField("notification_id", row.ID).Warn("Failed to mark notification as e-mailed")
		}
	}
	return result, nil
}

// Notify dispatches notice and logs a failure instead of returning it
func (d *Dispatcher) Notify(ctx context.Context, notice Notice) {
	if _, err := d.Dispatch(ctx, notice); err != nil {
		d.log.WithError(err).WithFields(logrus.Fields{
			"user_id":   notice.UserID,
			"template":  notice.Template,
			"entity_id": notice.EntityID,
		}).Warn("Notification delivery failed")
	}
}

// NotifyAdmins sends notice to every active administrator
func (d *Dispatcher) NotifyAdmins(ctx context.Context, notice Notice) {
	admins, err := d.store.Admins(ctx)
	if err != nil {
		d.log.WithError(err).Warn("Failed to load administrators")
		return
	}
	for _, admin := range admins {
		n := notice
		n.UserID = admin.ID
		d.Notify(ctx, n)
	}
}
