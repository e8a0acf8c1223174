package models

import (
	"time"
)

// DefaultMinMatchScore is the notification threshold for users who never set one
const DefaultMinMatchScore = 70

// User mirrors an Authorizer account and carries marketplace preferences
type User struct {
	ID            string    `gorm:"type:char(36);primaryKey" json:"id"`
	Email         string    `gorm:"size:255;not null;index" json:"email"`
	Name          string    `gorm:"size:255" json:"name"`
	Role          string    `gorm:"size:16;not null;index" json:"role"`
	IsActive      bool      `gorm:"not null" json:"is_active"`
	NotifyMatches bool      `gorm:"not null" json:"notify_matches"`
	MinMatchScore int       `gorm:"not null" json:"min_match_score"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// Threshold returns the minimum score for match notifications
func (u *User) Threshold() int {
	if u.MinMatchScore <= 0 {
		return DefaultMinMatchScore
	}
	return u.MinMatchScore
}
