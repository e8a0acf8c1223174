// entities.go
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

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/types"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// FindProperty loads a property by id
func (s *Store) FindProperty(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	if err := s.quiet(ctx).First(&property, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "property %s", id)
	}
	return &property, nil
}

// FindDemand loads a demand by id
func (s *Store) FindDemand(ctx context.Context, id string) (*models.Demand, error) {
	var demand models.Demand
	if err := s.quiet(ctx).First(&demand, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "demand %s", id)
	}
	return &demand, nil
}

// FindEntity loads a property or demand by type and id
func (s *Store) FindEntity(ctx context.Context, entityType models.EntityType, id string) (models.Entity, error) {
	switch entityType {
	case models.EntityProperty:
		return s.FindProperty(ctx, id)
	case models.EntityDemand:
		return s.FindDemand(ctx, id)
	}
	return nil, fmt.Errorf("%w: unknown entity type %q", types.ErrValidation, entityType)
}

// TransitionStatus moves an entity from one status to another. The update is
// conditional on the current status, so a concurrent transition that got
// there first makes this one fail with ErrInvalidTransition.
func (s *Store) TransitionStatus(ctx context.Context, entityType models.EntityType, id string, from, to models.Status, extra map[string]interface{}) error {
	values := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		values[k] = v
	}

	result := s.db.WithContext(ctx).
		Table(models.TableFor(entityType)).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s is no longer %s", types.ErrInvalidTransition, entityType, id, from)
	}
	return nil
}

// UpdatePending applies field changes to an entity that is still pending
func (s *Store) UpdatePending(ctx context.Context, entityType models.EntityType, id string, values map[string]interface{}) error {
	values["updated_at"] = time.Now()
	result := s.db.WithContext(ctx).
		Table(models.TableFor(entityType)).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s is not pending", types.ErrInvalidTransition, entityType, id)
	}
	return nil
}

// SetReservation sets or clears the reservation of an active property
func (s *Store) SetReservation(ctx context.Context, id string, reserved bool, until *time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("id = ? AND status = ?", id, models.StatusActive).
		Updates(map[string]interface{}{
			"is_reserved":    reserved,
			"reserved_until": until,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: property %s is not active", types.ErrInvalidTransition, id)
	}
	return nil
}

// DeleteEntity removes an entity and every row that depends on it
func (s *Store) DeleteEntity(ctx context.Context, entityType models.EntityType, id string) error {
	return s.Transaction(ctx, func(tx *Store) error {
		db := tx.db.WithContext(ctx)

		if err := db.Where("entity_type = ? AND entity_id = ?", entityType, id).
			Delete(&models.AccessCode{}).Error; err != nil {
			return err
		}
		if err := db.Where("entity_type = ? AND entity_id = ?", entityType, id).
			Delete(&models.BrokerageContract{}).Error; err != nil {
			return err
		}

		column := "property_id"
		if entityType == models.EntityDemand {
			column = "demand_id"
		}
		if err := db.Where(column+" = ?", id).Delete(&models.Match{}).Error; err != nil {
			return err
		}
		if err := db.Where(column+" = ?", id).Delete(&models.LOISignature{}).Error; err != nil {
			return err
		}

		var result *gorm.DB
		if entityType == models.EntityDemand {
			result = db.Delete(&models.Demand{}, "id = ?", id)
		} else {
			result = db.Delete(&models.Property{}, "id = ?", id)
		}
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s %s", types.ErrNotFound, entityType, id)
		}
		return nil
	})
}

// recipients selects owners who may receive match notifications
func (s *Store) recipients(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.User{}).
		Select("id").
		Where("is_active = ? AND notify_matches = ?", true, true)
}

// ActiveDemandCandidates returns active demands of the given transaction type
// whose owners accept match notifications, excluding excludeOwner.
func (s *Store) ActiveDemandCandidates(ctx context.Context, transactionType, excludeOwner string) ([]models.Demand, error) {
	var demands []models.Demand
	err := s.db.WithContext(ctx).
		Clauses(hints.CommentBefore("select", "match_candidates")).
		Where("status = ? AND transaction_type = ?", models.StatusActive, transactionType).
		Where("client_id <> ?", excludeOwner).
		Where("client_id IN (?)", s.recipients(ctx)).
		Order("created_at").
		Find(&demands).Error
	return demands, err
}

// ActivePropertyCandidates returns active properties of the given transaction
// type whose owners accept match notifications, excluding excludeOwner.
func (s *Store) ActivePropertyCandidates(ctx context.Context, transactionType, excludeOwner string) ([]models.Property, error) {
	var properties []models.Property
	err := s.db.WithContext(ctx).
		Clauses(hints.CommentBefore("select", "match_candidates")).
		Where("status = ? AND transaction_type = ?", models.StatusActive, transactionType).
		Where("agent_id <> ?", excludeOwner).
		Where("agent_id IN (?)", s.recipients(ctx)).
		Order("created_at").
		Find(&properties).Error
	return properties, err
}
