package models

import (
	"time"

	"gorm.io/gorm"
)

// Match is a scored pairing of a property and a demand. A pair is stored once;
// rescoring updates the row.
type Match struct {
	ID         string      `gorm:"type:char(36);primaryKey" json:"id"`
	DemandID   string      `gorm:"type:char(36);not null;uniqueIndex:idx_matches_pair,priority:1" json:"demand_id"`
	PropertyID string      `gorm:"type:char(36);not null;uniqueIndex:idx_matches_pair,priority:2;index" json:"property_id"`
	Score      int         `gorm:"column:match_score;not null" json:"match_score"`
	Status     MatchStatus `gorm:"size:16;not null" json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TableName overrides the table name for Match
func (Match) TableName() string {
	return "matches"
}

func (m *Match) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
