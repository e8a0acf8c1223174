// controller.go
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

package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/localnerve/propmarket/internal/audit"
	"github.com/localnerve/propmarket/internal/matching"
	"github.com/localnerve/propmarket/internal/metrics"
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/notify"
	"github.com/localnerve/propmarket/internal/repository"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/sirupsen/logrus"
)

// Auditor records audit entries
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Notifier sends notices to one user or to every administrator
type Notifier interface {
	Notify(ctx context.Context, notice notify.Notice)
	NotifyAdmins(ctx context.Context, notice notify.Notice)
}

// Matcher runs the match pass for a newly active entity
type Matcher interface {
	ComputeMatchesFor(ctx context.Context, entityType models.EntityType, entityID string) (*matching.Result, error)
}

// Controller applies lifecycle operations to properties and demands
type Controller struct {
	store    *repository.Store
	audit    Auditor
	notifier Notifier
	matcher  Matcher
	log      *logrus.Entry
}

// NewController creates a lifecycle controller
func NewController(store *repository.Store, auditor Auditor, notifier Notifier, matcher Matcher, log *logrus.Entry) *Controller {
	return &Controller{
		store:    store,
		audit:    auditor,
		notifier: notifier,
		matcher:  matcher,
		log:      log,
	}
}

// Submit stores a new property as pending. An agent must have verified an
// agent declaration before anything else about the draft is looked at.
func (c *Controller) Submit(ctx context.Context, actor types.Actor, draft *PropertyDraft) (*models.Property, error) {
	if actor.Role != types.RoleAgent && !actor.IsAdmin() {
		return nil, forbidden("only agents may list properties")
	}
	if actor.Role == types.RoleAgent {
		ok, err := c.store.HasVerifiedDeclaration(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: agent %s has no verified declaration", types.ErrComplianceRequired, actor.ID)
		}
	}
	if err := draft.validate(); err != nil {
		return nil, err
	}

	ownerID, err := c.owner(ctx, actor, draft.AgentID)
	if err != nil {
		return nil, err
	}

	property := draft.property(ownerID)
	if err := c.store.Create(ctx, property); err != nil {
		return nil, err
	}

	c.created(ctx, actor, property)
	return property, nil
}

// SubmitDemand stores one pending demand per selected transaction type and
// property type. Either every row is stored or none is.
func (c *Controller) SubmitDemand(ctx context.Context, actor types.Actor, draft *DemandDraft) ([]*models.Demand, error) {
	if err := draft.validate(); err != nil {
		return nil, err
	}

	ownerID, err := c.owner(ctx, actor, draft.ClientID)
	if err != nil {
		return nil, err
	}

	demands := draft.demands(ownerID)
	err = c.store.Transaction(ctx, func(tx *repository.Store) error {
		for _, d := range demands {
			if err := tx.Create(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, d := range demands {
		c.created(ctx, actor, d)
	}
	return demands, nil
}

// owner resolves who a submission belongs to. Administrators may submit on
// behalf of an existing user.
func (c *Controller) owner(ctx context.Context, actor types.Actor, onBehalfOf string) (string, error) {
	if onBehalfOf == "" || onBehalfOf == actor.ID {
		return actor.ID, nil
	}
	if !actor.IsAdmin() {
		return "", forbidden("only administrators may submit on behalf of another user")
	}
	if _, err := c.store.FindUser(ctx, onBehalfOf); err != nil {
		return "", err
	}
	return onBehalfOf, nil
}

func (c *Controller) created(ctx context.Context, actor types.Actor, entity models.Entity) {
	c.audit.Record(ctx, audit.Entry{
		UserID:     actor.ID,
		Action:     models.ActionCreate,
		EntityType: entity.Kind(),
		EntityID:   entity.EntityID(),
		Details:    map[string]interface{}{"owner_id": entity.OwnerID()},
	})
	c.notifier.NotifyAdmins(ctx, notify.Notice{
		Template:   notify.EntitySubmitted,
		EntityType: entity.Kind(),
		EntityID:   entity.EntityID(),
		Vars: notify.Vars{
			Title:      entity.Heading(),
			EntityType: string(entity.Kind()),
		},
	})
}

// UpdateProperty replaces the fields of a pending property
func (c *Controller) UpdateProperty(ctx context.Context, actor types.Actor, id string, draft *PropertyDraft) (*models.Property, error) {
	if err := c.updatable(ctx, actor, models.EntityProperty, id); err != nil {
		return nil, err
	}
	if err := draft.validate(); err != nil {
		return nil, err
	}
	if err := c.store.UpdatePending(ctx, models.EntityProperty, id, draft.fields()); err != nil {
		return nil, err
	}
	c.updated(ctx, actor, models.EntityProperty, id)
	return c.store.FindProperty(ctx, id)
}

// UpdateDemand replaces the fields of a pending demand. The draft must name
// exactly one transaction type; existing rows never fan out.
func (c *Controller) UpdateDemand(ctx context.Context, actor types.Actor, id string, draft *DemandDraft) (*models.Demand, error) {
	if err := c.updatable(ctx, actor, models.EntityDemand, id); err != nil {
		return nil, err
	}
	if err := draft.validate(); err != nil {
		return nil, err
	}
	values, err := draft.fields()
	if err != nil {
		return nil, err
	}
	if err := c.store.UpdatePending(ctx, models.EntityDemand, id, values); err != nil {
		return nil, err
	}
	c.updated(ctx, actor, models.EntityDemand, id)
	return c.store.FindDemand(ctx, id)
}

func (c *Controller) updatable(ctx context.Context, actor types.Actor, entityType models.EntityType, id string) error {
	entity, err := c.store.FindEntity(ctx, entityType, id)
	if err != nil {
		return err
	}
	if !canManage(actor, entity) {
		return forbidden("%s %s belongs to another user", entityType, id)
	}
	if entity.CurrentStatus() != models.StatusPending {
		return fmt.Errorf("%w: %s %s is %s, only pending entries can be edited",
			types.ErrInvalidTransition, entityType, id, entity.CurrentStatus())
	}
	return nil
}

func (c *Controller) updated(ctx context.Context, actor types.Actor, entityType models.EntityType, id string) {
	c.audit.Record(ctx, audit.Entry{
		UserID:     actor.ID,
		Action:     models.ActionUpdate,
		EntityType: entityType,
		EntityID:   id,
	})
}

// Decide applies an administrator's verdict to a pending entity. Approval
// stores the commission terms and waits for the owner's contract, unless
// the owner is an administrator, in which case the entity goes live.
func (c *Controller) Decide(ctx context.Context, actor types.Actor, entityType models.EntityType, id string, verdict *Verdict) (models.Status, error) {
	if !actor.IsAdmin() {
		return "", forbidden("only administrators may decide on submissions")
	}
	if err := types.Validate(verdict); err != nil {
		return "", err
	}
	entity, err := c.store.FindEntity(ctx, entityType, id)
	if err != nil {
		return "", err
	}

	event := EventReject
	if verdict.Decision == "approve" {
		event = EventApprove
		owner, err := c.store.FindUser(ctx, entity.OwnerID())
		if err != nil {
			return "", err
		}
		if owner.Role == string(types.RoleAdmin) {
			event = EventApproveDirect
		}
	}

	from := entity.CurrentStatus()
	to, err := Next(from, event)
	if err != nil {
		return "", err
	}

	extra := map[string]interface{}{}
	if event != EventReject {
		if err := verdict.validateApproval(); err != nil {
			return "", err
		}
		extra["commission_rate"] = verdict.CommissionRate
		extra["commission_terms"] = verdict.CommissionTerms
	}

	if err := c.store.TransitionStatus(ctx, entityType, id, from, to, extra); err != nil {
		return "", err
	}
	metrics.Transitions.WithLabelValues(string(entityType), string(event)).Inc()

	details := map[string]interface{}{"from": from, "to": to}
	action := models.ActionReject
	vars := notify.Vars{Title: entity.Heading(), EntityType: string(entityType), Reason: verdict.Reason}
	template := notify.EntityRejected
	if event != EventReject {
		action = models.ActionApprove
		details["commission_rate"] = verdict.CommissionRate.String()
		vars.CommissionRate = verdict.CommissionRate.String()
		vars.CommissionTerms = verdict.CommissionTerms
		template = notify.EntityApproved
	} else if verdict.Reason != "" {
		details["reason"] = verdict.Reason
	}

	c.audit.Record(ctx, audit.Entry{
		UserID:     actor.ID,
		Action:     action,
		EntityType: entityType,
		EntityID:   id,
		Details:    details,
	})

	if event == EventApproveDirect {
		c.activated(ctx, actor.ID, entity)
		return to, nil
	}
	c.notifier.Notify(ctx, notify.Notice{
		UserID:     entity.OwnerID(),
		Template:   template,
		EntityType: entityType,
		EntityID:   id,
		Vars:       vars,
	})
	return to, nil
}

// OnContractSigned activates the entity a contract was signed for. It runs
// inside the signing transaction, so tx is the transaction's store.
func (c *Controller) OnContractSigned(ctx context.Context, tx *repository.Store, contract *models.BrokerageContract) error {
	if !contract.IsSigned() {
		return fmt.Errorf("%w: contract %s is not signed", types.ErrInvalidTransition, contract.ID)
	}
	entity, err := tx.FindEntity(ctx, contract.EntityType, contract.EntityID)
	if err != nil {
		return err
	}
	if entity.OwnerID() != contract.UserID {
		return forbidden("contract %s was not signed by the owner of %s %s", contract.ID, contract.EntityType, contract.EntityID)
	}
	signed, err := tx.HasSignedContract(ctx, contract.UserID, contract.EntityType, contract.EntityID)
	if err != nil {
		return err
	}
	if !signed {
		return fmt.Errorf("%w: no signed contract for %s %s", types.ErrInvalidTransition, contract.EntityType, contract.EntityID)
	}

	from := entity.CurrentStatus()
	to, err := Next(from, EventContractSigned)
	if err != nil {
		return err
	}
	return tx.TransitionStatus(ctx, contract.EntityType, contract.EntityID, from, to, nil)
}

// Activated runs the follow-up of a committed contract signature
func (c *Controller) Activated(ctx context.Context, contract *models.BrokerageContract) {
	metrics.Transitions.WithLabelValues(string(contract.EntityType), string(EventContractSigned)).Inc()
	entity, err := c.store.FindEntity(ctx, contract.EntityType, contract.EntityID)
	if err != nil {
		c.log.WithError(err).WithField("contract_id", contract.ID).Error("Failed to load activated entity")
		return
	}
	c.activated(ctx, contract.UserID, entity)
}

func (c *Controller) activated(ctx context.Context, actorID string, entity models.Entity) {
	c.audit.Record(ctx, audit.Entry{
		UserID:     actorID,
		Action:     models.ActionActivate,
		EntityType: entity.Kind(),
		EntityID:   entity.EntityID(),
	})
	c.notifier.Notify(ctx, notify.Notice{
		UserID:     entity.OwnerID(),
		Template:   notify.EntityActivated,
		EntityType: entity.Kind(),
		EntityID:   entity.EntityID(),
		Vars:       notify.Vars{Title: entity.Heading(), EntityType: string(entity.Kind())},
	})
	c.match(ctx, entity.Kind(), entity.EntityID())
}

func (c *Controller) match(ctx context.Context, entityType models.EntityType, id string) {
	result, err := c.matcher.ComputeMatchesFor(ctx, entityType, id)
	log := c.log.WithFields(logrus.Fields{"entity_type": entityType, "entity_id": id})
	if err != nil {
		log.WithError(err).Error("Match pass failed")
		return
	}
	log.WithFields(logrus.Fields{
		"matches":  len(result.Matches),
		"notified": result.Notified,
	}).Info("Match pass complete")
}

// ToggleActive archives an active entity or reactivates an archived one.
// Reactivation runs the match pass again.
func (c *Controller) ToggleActive(ctx context.Context, actor types.Actor, entityType models.EntityType, id string) (models.Status, error) {
	entity, err := c.store.FindEntity(ctx, entityType, id)
	if err != nil {
		return "", err
	}
	if !canManage(actor, entity) {
		return "", forbidden("%s %s belongs to another user", entityType, id)
	}

	from := entity.CurrentStatus()
	event, action := EventArchive, models.ActionArchive
	if from == models.StatusArchived {
		event, action = EventReactivate, models.ActionReactivate
	}
	to, err := Next(from, event)
	if err != nil {
		return "", err
	}
	if err := c.store.TransitionStatus(ctx, entityType, id, from, to, nil); err != nil {
		return "", err
	}
	metrics.Transitions.WithLabelValues(string(entityType), string(event)).Inc()

	c.audit.Record(ctx, audit.Entry{
		UserID:     actor.ID,
		Action:     action,
		EntityType: entityType,
		EntityID:   id,
		Details:    map[string]interface{}{"from": from, "to": to},
	})
	if to == models.StatusActive {
		c.match(ctx, entityType, id)
	}
	return to, nil
}

// Reserve marks an active property as reserved. A nil until keeps the
// reservation open ended.
func (c *Controller) Reserve(ctx context.Context, actor types.Actor, propertyID string, until *time.Time) (*models.Property, error) {
	return c.reservation(ctx, actor, propertyID, true, until)
}

// ReleaseReservation clears the reservation of an active property
func (c *Controller) ReleaseReservation(ctx context.Context, actor types.Actor, propertyID string) (*models.Property, error) {
	return c.reservation(ctx, actor, propertyID, false, nil)
}

func (c *Controller) reservation(ctx context.Context, actor types.Actor, propertyID string, reserved bool, until *time.Time) (*models.Property, error) {
	property, err := c.store.FindProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, property) {
		return nil, forbidden("property %s belongs to another user", propertyID)
	}
	if reserved && until != nil && !until.After(time.Now()) {
		return nil, types.Invalid("reserved_until: must be in the future")
	}
	if err := c.store.SetReservation(ctx, propertyID, reserved, until); err != nil {
		return nil, err
	}

	action := models.ActionRelease
	details := map[string]interface{}{}
	if reserved {
		action = models.ActionReserve
		if until != nil {
			details["reserved_until"] = until.UTC().Format(time.RFC3339)
		}
	}
	c.audit.Record(ctx, audit.Entry{
		UserID:     actor.ID,
		Action:     action,
		EntityType: models.EntityProperty,
		EntityID:   propertyID,
		Details:    details,
	})
	return c.store.FindProperty(ctx, propertyID)
}

// Delete removes an entity and everything that depends on it
func (c *Controller) Delete(ctx context.Context, actor types.Actor, entityType models.EntityType, id string) error {
	if !actor.IsAdmin() {
		return forbidden("only administrators may delete")
	}
	if !entityType.IsValid() {
		return types.Invalid("entity_type: must be one of: property demand")
	}
	if err := c.store.DeleteEntity(ctx, entityType, id); err != nil {
		return err
	}
	c.audit.Record(ctx, audit.Entry{
		UserID:     actor.ID,
		Action:     models.ActionDelete,
		EntityType: entityType,
		EntityID:   id,
	})
	return nil
}

func canManage(actor types.Actor, entity models.Entity) bool {
	return actor.IsAdmin() || (actor.ID != "" && actor.ID == entity.OwnerID())
}

func forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", types.ErrForbidden, fmt.Sprintf(format, args...))
}
