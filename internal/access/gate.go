// gate.go
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

// Package access decides who may see the full details of a property or
// demand and manages the access codes and letters of intent that grant it.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/localnerve/propmarket/internal/audit"
	"github.com/localnerve/propmarket/internal/codes"
	"github.com/localnerve/propmarket/internal/metrics"
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/notify"
	"github.com/localnerve/propmarket/internal/repository"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultCodeDays is the expiry of a code a viewer asks for
	DefaultCodeDays = 30
	// LOICodeTTL is how long a letter of intent code can be used to sign
	LOICodeTTL = 7 * 24 * time.Hour
	// SignedLOITTL is how long a signed letter of intent grants access
	SignedLOITTL = 365 * 24 * time.Hour
)

// Auditor records audit entries
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Notifier sends notices, logging failures
type Notifier interface {
	Notify(ctx context.Context, notice notify.Notice)
}

// Gate is the access decision service
type Gate struct {
	store    *repository.Store
	audit    Auditor
	notifier Notifier
	gen      codes.Generator
	now      func() time.Time
	log      *logrus.Entry
}

// NewGate creates an access gate
func NewGate(store *repository.Store, auditor Auditor, notifier Notifier, log *logrus.Entry) *Gate {
	return &Gate{
		store:    store,
		audit:    auditor,
		notifier: notifier,
		gen:      codes.RandomGenerator{},
		now:      time.Now,
		log:      log,
	}
}

// CheckAccess decides what viewer may see of an entity. code is the access
// code supplied with this request, if any. Denials are not errors; the
// returned decision carries the stub and the reason.
func (g *Gate) CheckAccess(ctx context.Context, viewer types.Actor, entityType models.EntityType, entityID, code string) (*Decision, error) {
	entity, err := g.store.FindEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	decision, err := g.decide(ctx, viewer, entity, code)
	if err != nil {
		return nil, err
	}
	decision.Entity = entity
	metrics.AccessDecisions.WithLabelValues(string(entityType), string(decision.Reason)).Inc()

	if decision.HasAccess {
		g.audit.Record(ctx, audit.Entry{
			UserID:     viewer.ID,
			Action:     models.ActionView,
			EntityType: entityType,
			EntityID:   entityID,
			Details:    map[string]interface{}{"reason": decision.Reason},
		})
	}
	return decision, nil
}

func (g *Gate) decide(ctx context.Context, viewer types.Actor, entity models.Entity, code string) (*Decision, error) {
	if viewer.IsAdmin() {
		return &Decision{HasAccess: true, Reason: ReasonAdmin}, nil
	}
	if viewer.ID != "" && viewer.ID == entity.OwnerID() {
		return &Decision{HasAccess: true, Reason: ReasonOwner}, nil
	}
	if entity.CurrentStatus() != models.StatusActive {
		return &Decision{Reason: ReasonNotPublished}, nil
	}

	now := g.now()
	stub := StubOf(entity)
	entityType, entityID := entity.Kind(), entity.EntityID()

	if entityType == models.EntityProperty {
		lois, err := g.store.LOIsForProperty(ctx, viewer.ID, entityID)
		if err != nil {
			return nil, err
		}
		for i := range lois {
			if lois[i].IsSigned(now) {
				return &Decision{HasAccess: true, Reason: ReasonSignedLOI}, nil
			}
		}
	}

	if code != "" {
		err := g.VerifyCode(ctx, viewer.ID, entityType, entityID, code)
		if err == nil {
			return &Decision{HasAccess: true, Reason: ReasonVerifiedCode}, nil
		}
		if !errors.Is(err, types.ErrInvalidOrExpiredCode) {
			return nil, err
		}
		return &Decision{Reason: ReasonInvalidCode, Stub: stub}, nil
	}

	held, err := g.store.HasLiveAccessCode(ctx, viewer.ID, entityType, entityID, now)
	if err != nil {
		return nil, err
	}
	if held {
		return &Decision{Reason: ReasonCodeRequired, Stub: stub}, nil
	}

	if entityType == models.EntityProperty {
		lois, err := g.store.LOIsForProperty(ctx, viewer.ID, entityID)
		if err != nil {
			return nil, err
		}
		for i := range lois {
			if lois[i].SignedAt == nil && now.Before(lois[i].ExpiresAt) {
				return &Decision{Reason: ReasonLOIPending, Stub: stub}, nil
			}
		}
	}

	return &Decision{Reason: ReasonNoEntitlement, Stub: stub}, nil
}

// VerifyCode checks that userID holds code for the entity and that it has
// not expired. The code stays valid afterwards.
func (g *Gate) VerifyCode(ctx context.Context, userID string, entityType models.EntityType, entityID, code string) error {
	ac, err := g.store.FindAccessCode(ctx, userID, entityType, entityID, codes.Normalize(code))
	if errors.Is(err, types.ErrNotFound) || (err == nil && !ac.Live(g.now())) {
		metrics.CodeVerifications.WithLabelValues("access", "failure").Inc()
		return types.ErrInvalidOrExpiredCode
	}
	if err != nil {
		return err
	}

	metrics.CodeVerifications.WithLabelValues("access", "success").Inc()
	g.audit.Record(ctx, audit.Entry{
		UserID:     userID,
		Action:     models.ActionAccessCode,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    map[string]interface{}{"code_id": ac.ID},
	})
	return nil
}

// IssueRequest describes a code to issue
type IssueRequest struct {
	UserID        string
	IssuedBy      string
	EntityType    models.EntityType
	EntityID      string
	ExpiresInDays int
	SendEmail     bool
}

// IssueCode creates a fresh access code for a user and entity. Older codes
// for the same pair stay valid until their own expiry. A delivery failure
// is logged and does not fail the issuance.
func (g *Gate) IssueCode(ctx context.Context, req IssueRequest) (*models.AccessCode, error) {
	entity, err := g.store.FindEntity(ctx, req.EntityType, req.EntityID)
	if err != nil {
		return nil, err
	}
	if _, err := g.store.FindUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	ac := &models.AccessCode{
		UserID:     req.UserID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		IssuedBy:   req.IssuedBy,
		IsActive:   true,
	}
	if req.ExpiresInDays > 0 {
		expires := g.now().Add(time.Duration(req.ExpiresInDays) * 24 * time.Hour)
		ac.ExpiresAt = &expires
	}

	_, err = codes.Issue(g.gen, func(code string) error {
		ac.ID = ""
		ac.Code = code
		return g.store.Create(ctx, ac)
	})
	if err != nil {
		return nil, err
	}
	metrics.CodesIssued.WithLabelValues("access").Inc()

	issuer := req.IssuedBy
	if issuer == "" {
		issuer = req.UserID
	}
	g.audit.Record(ctx, audit.Entry{
		UserID:     issuer,
		Action:     models.ActionIssueCode,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Details:    map[string]interface{}{"recipient_id": req.UserID, "code_id": ac.ID},
	})

	if req.SendEmail {
		g.notifier.Notify(ctx, notify.Notice{
			UserID:     req.UserID,
			Template:   notify.AccessCode,
			EntityType: req.EntityType,
			EntityID:   req.EntityID,
			EmailOnly:  true,
			Vars: notify.Vars{
				Title:     entity.Heading(),
				Code:      ac.Code,
				ExpiresAt: formatExpiry(ac.ExpiresAt),
			},
		})
	}
	return ac, nil
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}

func forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", types.ErrForbidden, fmt.Sprintf(format, args...))
}
