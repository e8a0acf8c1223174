// audit.go
//
// Real-estate marketplace service: listings, demands, entitlements and matching
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of propmarket.
// propmarket is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// propmarket is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with propmarket.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package audit appends audit log entries and optionally publishes them to NATS.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/repository"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Publisher is the part of a NATS connection the recorder needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Entry is one audited action
type Entry struct {
	UserID     string                 `json:"user_id"`
	Action     string                 `json:"action"`
	EntityType models.EntityType      `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Details    map[string]interface{} `json:"details,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Subject returns the NATS subject the entry is published on
func (e Entry) Subject() string {
	scope := string(e.EntityType)
	if scope == "" {
		scope = "user"
	}
	return fmt.Sprintf("audit.%s.%s", scope, e.Action)
}

// Recorder writes audit entries. Failures are logged and never returned.
type Recorder struct {
	store     *repository.Store
	publisher Publisher
	log       *logrus.Entry
}

// NewRecorder creates a recorder. publisher may be nil.
func NewRecorder(store *repository.Store, publisher Publisher, log *logrus.Entry) *Recorder {
	return &Recorder{store: store, publisher: publisher, log: log}
}

// Record appends entry to the audit log
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	fields := logrus.Fields{
		"user_id":     entry.UserID,
		"action":      entry.Action,
		"entity_type": entry.EntityType,
		"entity_id":   entry.EntityID,
	}

	row := models.AuditLog{
		UserID:     entry.UserID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		IPAddress:  entry.IPAddress,
		CreatedAt:  entry.Timestamp,
	}
	if len(entry.Details) > 0 {
		details, err := json.Marshal(entry.Details)
		if err != nil {
			r.log.WithFields(fields).WithError(err).Warn("Failed to encode audit details")
		} else {
			row.Details = models.JSON{JSON: datatypes.JSON(details)}
		}
	}

	if err := r.store.Create(ctx, &row); err != nil {
		r.log.WithFields(fields).WithError(err).Error("Failed to write audit log")
	}

	if r.publisher == nil {
		return
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		r.log.WithFields(fields).WithError(err).Warn("Failed to encode audit event")
		return
	}
	if err := r.publisher.Publish(entry.Subject(), payload); err != nil {
		r.log.WithFields(fields).WithError(err).Warn("Failed to publish audit event")
	}
}

// Connect opens a NATS connection that keeps reconnecting in the background
func Connect(url string, log *logrus.Entry) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("propmarket-audit"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.WithError(err).Warn("[NATS] Disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("[NATS] Reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("[NATS] Connection closed")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}
