// store.go
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
	"errors"
	"fmt"
	"strings"

	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is the storage abstraction the core services depend on.
// A Store returned inside Transaction is bound to that transaction.
type Store struct {
	db *gorm.DB
}

// New wraps an open gorm connection
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying gorm handle bound to ctx
func (s *Store) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// quiet suppresses gorm's per-statement logging for lookups whose
// not-found result is an expected outcome.
func (s *Store) quiet(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Session(&gorm.Session{Logger: s.db.Logger.LogMode(logger.Silent)})
}

// Transaction runs fn inside a database transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// IsDuplicateKey reports whether err is a unique constraint violation.
// Drivers that gorm cannot translate are matched on their message.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", types.ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}

// Create inserts a new record
func (s *Store) Create(ctx context.Context, value interface{}) error {
	return s.db.WithContext(ctx).Create(value).Error
}

// Save updates every column of a record
func (s *Store) Save(ctx context.Context, value interface{}) error {
	return s.db.WithContext(ctx).Save(value).Error
}

// FindUser loads a user by id
func (s *Store) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.quiet(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user %s", id)
	}
	return &user, nil
}

// SyncUser creates the user on first sight and refreshes identity fields
// on later calls. Preferences are left untouched.
func (s *Store) SyncUser(ctx context.Context, actor types.Actor) (*models.User, error) {
	user, err := s.FindUser(ctx, actor.ID)
	if errors.Is(err, types.ErrNotFound) {
		user = &models.User{
			ID:            actor.ID,
			Email:         actor.Email,
			Name:          actor.Name,
			Role:          string(actor.Role),
			IsActive:      true,
			NotifyMatches: true,
			MinMatchScore: models.DefaultMinMatchScore,
		}
		if err := s.Create(ctx, user); err != nil && !IsDuplicateKey(err) {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	if user.Email != actor.Email || user.Name != actor.Name || user.Role != string(actor.Role) {
		err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
			"email": actor.Email,
			"name":  actor.Name,
			"role":  string(actor.Role),
		}).Error
		if err != nil {
			return nil, err
		}
	}
	return user, nil
}

// UpdatePreferences stores the match notification preferences of a user
func (s *Store) UpdatePreferences(ctx context.Context, userID string, notify bool, minScore int) (*models.User, error) {
	user, err := s.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"notify_matches":  notify,
		"min_match_score": minScore,
	}).Error
	if err != nil {
		return nil, err
	}
	user.NotifyMatches = notify
	user.MinMatchScore = minScore
	return user, nil
}

// UsersByID loads the users with the given ids, keyed by id
func (s *Store) UsersByID(ctx context.Context, ids []string) (map[string]*models.User, error) {
	result := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		result[users[i].ID] = &users[i]
	}
	return result, nil
}

// Admins returns every active administrator
func (s *Store) Admins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", string(types.RoleAdmin), true).
		Find(&users).Error
	return users, err
}
