package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Demand is a client's search request. One row covers exactly one
// transaction type and one primary property type.
type Demand struct {
	ID              string           `gorm:"type:char(36);primaryKey" json:"id"`
	ClientID        string           `gorm:"type:char(36);not null;index" json:"client_id"`
	Title           string           `gorm:"size:255;not null" json:"title"`
	Description     string           `gorm:"type:text" json:"description,omitempty"`
	TransactionType string           `gorm:"size:16;not null;index:idx_demands_candidates,priority:2" json:"transaction_type"`
	PropertyTypes   StringList       `json:"property_types"`
	Cities          StringList       `json:"cities"`
	Districts       StringList       `json:"districts"`
	PriceMin        *decimal.Decimal `gorm:"type:decimal(15,2)" json:"price_min,omitempty"`
	PriceMax        *decimal.Decimal `gorm:"type:decimal(15,2)" json:"price_max,omitempty"`
	AreaMin         *float64         `json:"area_min,omitempty"`
	AreaMax         *float64         `json:"area_max,omitempty"`
	RoomsMin        *int             `json:"rooms_min,omitempty"`
	RoomsMax        *int             `json:"rooms_max,omitempty"`
	ContactPhone    string           `gorm:"size:64" json:"contact_phone,omitempty"`
	ContactEmail    string           `gorm:"size:255" json:"contact_email,omitempty"`
	Status          Status           `gorm:"size:32;not null;index:idx_demands_candidates,priority:1" json:"status"`
	CommissionRate  *decimal.Decimal `gorm:"type:decimal(5,2)" json:"commission_rate,omitempty"`
	CommissionTerms string           `gorm:"type:text" json:"commission_terms,omitempty"`
	IsReserved      bool             `gorm:"not null" json:"is_reserved"`
	ReservedUntil   *time.Time       `json:"reserved_until,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName overrides the table name for Demand
func (Demand) TableName() string {
	return "demands"
}

func (d *Demand) BeforeCreate(tx *gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// OwnerID returns the owning client
func (d *Demand) OwnerID() string {
	return d.ClientID
}
