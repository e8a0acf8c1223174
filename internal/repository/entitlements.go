// entitlements.go
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
	"time"

	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/types"
)

// FindAccessCode returns the active code matching all four fields.
// Expiry is left to the caller.
func (s *Store) FindAccessCode(ctx context.Context, userID string, entityType models.EntityType, entityID, code string) (*models.AccessCode, error) {
	var ac models.AccessCode
	err := s.quiet(ctx).
		Where("user_id = ? AND entity_type = ? AND entity_id = ? AND code = ? AND is_active = ?",
			userID, entityType, entityID, code, true).
		First(&ac).Error
	if err != nil {
		return nil, notFound(err, "access code")
	}
	return &ac, nil
}

// HasLiveAccessCode reports whether the user holds any active, unexpired
// code for the entity.
func (s *Store) HasLiveAccessCode(ctx context.Context, userID string, entityType models.EntityType, entityID string, now time.Time) (bool, error) {
	var codes []models.AccessCode
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND entity_type = ? AND entity_id = ? AND is_active = ?", userID, entityType, entityID, true).
		Find(&codes).Error
	if err != nil {
		return false, err
	}
	for i := range codes {
		if codes[i].Live(now) {
			return true, nil
		}
	}
	return false, nil
}

// LOIsForProperty returns the active letters of intent of a user for a property
func (s *Store) LOIsForProperty(ctx context.Context, userID, propertyID string) ([]models.LOISignature, error) {
	var lois []models.LOISignature
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND property_id = ? AND is_active = ?", userID, propertyID, true).
		Find(&lois).Error
	return lois, err
}

// FindLOI returns the letter of intent row for the triple, if any
func (s *Store) FindLOI(ctx context.Context, userID, propertyID, demandID string) (*models.LOISignature, error) {
	var loi models.LOISignature
	err := s.quiet(ctx).
		Where("user_id = ? AND property_id = ? AND demand_id = ?", userID, propertyID, demandID).
		First(&loi).Error
	if err != nil {
		return nil, notFound(err, "letter of intent")
	}
	return &loi, nil
}

// FindContract returns the contract slot of a user for an entity
func (s *Store) FindContract(ctx context.Context, userID string, entityType models.EntityType, entityID string) (*models.BrokerageContract, error) {
	var contract models.BrokerageContract
	err := s.quiet(ctx).
		Where("user_id = ? AND entity_type = ? AND entity_id = ?", userID, entityType, entityID).
		First(&contract).Error
	if err != nil {
		return nil, notFound(err, "brokerage contract for %s %s", entityType, entityID)
	}
	return &contract, nil
}

// HasSignedContract reports whether a signed contract exists for exactly
// this user and entity.
func (s *Store) HasSignedContract(ctx context.Context, userID string, entityType models.EntityType, entityID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.BrokerageContract{}).
		Where("user_id = ? AND entity_type = ? AND entity_id = ? AND is_active = ?", userID, entityType, entityID, true).
		Where("signed_at IS NOT NULL").
		Count(&count).Error
	return count > 0, err
}

// HasVerifiedDeclaration reports whether a verified declaration row has ever
// existed for the agent.
func (s *Store) HasVerifiedDeclaration(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.AgentDeclaration{}).
		Where("user_id = ? AND verified_at IS NOT NULL", userID).
		Count(&count).Error
	return count > 0, err
}

// FindDeclaration returns the declaration of a user carrying code
func (s *Store) FindDeclaration(ctx context.Context, userID, code string) (*models.AgentDeclaration, error) {
	var decl models.AgentDeclaration
	err := s.quiet(ctx).Where("user_id = ? AND code = ?", userID, code).First(&decl).Error
	if err != nil {
		return nil, notFound(err, "declaration")
	}
	return &decl, nil
}

// MarkDeclarationVerified stamps verified_at on an unverified declaration
func (s *Store) MarkDeclarationVerified(ctx context.Context, id string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.AgentDeclaration{}).
		Where("id = ? AND verified_at IS NULL", id).
		Update("verified_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrInvalidOrExpiredCode
	}
	return nil
}

// MarkContractSigned stamps signed_at on an unsigned contract still carrying
// code. A contract that was re-issued or signed in the meantime is left
// alone and ErrInvalidOrExpiredCode returned.
func (s *Store) MarkContractSigned(ctx context.Context, id, code string, at time.Time, ip, userAgent string) error {
	result := s.db.WithContext(ctx).Model(&models.BrokerageContract{}).
		Where("id = ? AND code = ? AND signed_at IS NULL AND is_active = ?", id, code, true).
		Updates(map[string]interface{}{
			"signed_at":  at,
			"ip_address": ip,
			"user_agent": userAgent,
			"updated_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrInvalidOrExpiredCode
	}
	return nil
}
