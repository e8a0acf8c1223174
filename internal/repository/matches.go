// matches.go
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
	"gorm.io/gorm/clause"
)

// UpsertMatch stores the score of a (demand, property) pair. An existing pair
// is updated in place and reset to new. The stored row is returned.
func (s *Store) UpsertMatch(ctx context.Context, demandID, propertyID string, score int) (*models.Match, error) {
	now := time.Now()
	match := models.Match{
		DemandID:   demandID,
		PropertyID: propertyID,
		Score:      score,
		Status:     models.MatchNew,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "demand_id"}, {Name: "property_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"match_score", "status", "updated_at"}),
	}).Create(&match).Error
	if err != nil {
		return nil, err
	}

	var stored models.Match
	if err := s.db.WithContext(ctx).
		Where("demand_id = ? AND property_id = ?", demandID, propertyID).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// MatchesForUser returns the matches touching any property or demand the
// user owns, best first.
func (s *Store) MatchesForUser(ctx context.Context, userID string, status models.MatchStatus) ([]models.Match, error) {
	db := s.db.WithContext(ctx)
	owned := db.Model(&models.Property{}).Select("id").Where("agent_id = ?", userID)
	requested := db.Model(&models.Demand{}).Select("id").Where("client_id = ?", userID)

	query := s.db.WithContext(ctx).
		Where("property_id IN (?) OR demand_id IN (?)", owned, requested)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var matches []models.Match
	err := query.Order("match_score DESC, updated_at DESC").Find(&matches).Error
	return matches, err
}

// FindMatch loads a match by id
func (s *Store) FindMatch(ctx context.Context, id string) (*models.Match, error) {
	var match models.Match
	if err := s.quiet(ctx).First(&match, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "match %s", id)
	}
	return &match, nil
}

// SetMatchStatus changes the viewer-side status of a match
func (s *Store) SetMatchStatus(ctx context.Context, id string, status models.MatchStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown match status %q", types.ErrValidation, status)
	}
	result := s.db.WithContext(ctx).Model(&models.Match{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: match %s", types.ErrNotFound, id)
	}
	return nil
}

// Notifications returns the in-app notifications of a user, newest first
func (s *Store) Notifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var notifications []models.Notification
	err := query.Order("created_at DESC").Find(&notifications).Error
	return notifications, err
}

// MarkNotificationRead flags a notification of the user as read
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	var notification models.Notification
	if err := s.quiet(ctx).Where("id = ? AND user_id = ?", id, userID).First(&notification).Error; err != nil {
		return notFound(err, "notification %s", id)
	}
	if notification.IsRead {
		return nil
	}
	return s.db.WithContext(ctx).Model(&notification).Update("is_read", true).Error
}
