package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification is an in-app message. Delivery by e-mail is recorded on the
// same row.
type Notification struct {
	ID         string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     string     `gorm:"type:char(36);not null;index" json:"user_id"`
	Type       string     `gorm:"size:32;not null" json:"type"`
	Title      string     `gorm:"size:255;not null" json:"title"`
	Message    string     `gorm:"type:text" json:"message"`
	EntityType EntityType `gorm:"size:16" json:"entity_type,omitempty"`
	EntityID   string     `gorm:"type:char(36)" json:"entity_id,omitempty"`
	Emailed    bool       `gorm:"not null" json:"emailed"`
	Provider   string     `gorm:"size:32" json:"provider,omitempty"`
	IsRead     bool       `gorm:"not null;index" json:"is_read"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName overrides the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
