package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Property is a listing owned by an agent
type Property struct {
	ID              string           `gorm:"type:char(36);primaryKey" json:"id"`
	AgentID         string           `gorm:"type:char(36);not null;index" json:"agent_id"`
	Title           string           `gorm:"size:255;not null" json:"title"`
	Description     string           `gorm:"type:text" json:"description,omitempty"`
	TransactionType string           `gorm:"size:16;not null;index:idx_properties_candidates,priority:2" json:"transaction_type"`
	PropertyType    string           `gorm:"size:64;not null" json:"property_type"`
	PropertySubtype string           `gorm:"size:64" json:"property_subtype,omitempty"`
	Price           decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"price"`
	Area            *float64         `json:"area,omitempty"`
	Rooms           *int             `json:"rooms,omitempty"`
	Floor           *int             `json:"floor,omitempty"`
	City            string           `gorm:"size:128;not null" json:"city"`
	District        string           `gorm:"size:128" json:"district,omitempty"`
	Address         string           `gorm:"size:255" json:"address,omitempty"`
	Latitude        *float64         `json:"latitude,omitempty"`
	Longitude       *float64         `json:"longitude,omitempty"`
	ContactPhone    string           `gorm:"size:64" json:"contact_phone,omitempty"`
	ContactEmail    string           `gorm:"size:255" json:"contact_email,omitempty"`
	PhotoCount      int              `gorm:"not null" json:"photo_count"`
	Status          Status           `gorm:"size:32;not null;index:idx_properties_candidates,priority:1" json:"status"`
	CommissionRate  *decimal.Decimal `gorm:"type:decimal(5,2)" json:"commission_rate,omitempty"`
	CommissionTerms string           `gorm:"type:text" json:"commission_terms,omitempty"`
	IsReserved      bool             `gorm:"not null" json:"is_reserved"`
	ReservedUntil   *time.Time       `json:"reserved_until,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName overrides the table name for Property
func (Property) TableName() string {
	return "properties"
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// OwnerID returns the owning agent
func (p *Property) OwnerID() string {
	return p.AgentID
}
