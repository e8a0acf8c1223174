package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccessCode grants its user a view of one gated entity until it expires.
type AccessCode struct {
	ID         string     `gorm:"type:char(36);primaryKey" json:"id"`
	Code       string     `gorm:"size:16;not null;uniqueIndex" json:"code"`
	UserID     string     `gorm:"type:char(36);not null;index:idx_access_codes_target,priority:1" json:"user_id"`
	EntityType EntityType `gorm:"size:16;not null;index:idx_access_codes_target,priority:2" json:"entity_type"`
	EntityID   string     `gorm:"type:char(36);not null;index:idx_access_codes_target,priority:3" json:"entity_id"`
	IssuedBy   string     `gorm:"type:char(36)" json:"issued_by,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Live reports whether the code is active and unexpired at now
func (a *AccessCode) Live(now time.Time) bool {
	return a.IsActive && (a.ExpiresAt == nil || now.Before(*a.ExpiresAt))
}

// TableName overrides the table name for AccessCode
func (AccessCode) TableName() string {
	return "access_codes"
}

func (a *AccessCode) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// LOISignature is a letter of intent a demand owner signs to see a property
type LOISignature struct {
	ID         string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     string     `gorm:"type:char(36);not null;uniqueIndex:idx_loi_triple,priority:1" json:"user_id"`
	PropertyID string     `gorm:"type:char(36);not null;uniqueIndex:idx_loi_triple,priority:2" json:"property_id"`
	DemandID   string     `gorm:"type:char(36);not null;uniqueIndex:idx_loi_triple,priority:3" json:"demand_id"`
	Code       string     `gorm:"size:16;not null;uniqueIndex" json:"-"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	SignedAt   *time.Time `json:"signed_at,omitempty"`
	IsActive   bool       `gorm:"not null" json:"is_active"`
	IPAddress  string     `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent  string     `gorm:"size:255" json:"user_agent,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName overrides the table name for LOISignature
func (LOISignature) TableName() string {
	return "loi_signatures"
}

func (l *LOISignature) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// IsSigned reports whether the letter is signed and still in force
func (l *LOISignature) IsSigned(now time.Time) bool {
	return l.IsActive && l.SignedAt != nil && now.Before(l.ExpiresAt)
}

// IsSigned reports whether the contract has been executed
func (b *BrokerageContract) IsSigned() bool {
	return b.IsActive && b.SignedAt != nil
}

// BrokerageContract is the per-entity agreement that gates activation.
type BrokerageContract struct {
	ID              string           `gorm:"type:char(36);primaryKey" json:"id"`
	UserID          string           `gorm:"type:char(36);not null;uniqueIndex:idx_contracts_slot,priority:1" json:"user_id"`
	EntityType      EntityType       `gorm:"size:16;not null;uniqueIndex:idx_contracts_slot,priority:2" json:"entity_type"`
	EntityID        string           `gorm:"type:char(36);not null;uniqueIndex:idx_contracts_slot,priority:3" json:"entity_id"`
	Code            string           `gorm:"size:16;not null;uniqueIndex" json:"-"`
	ExpiresAt       time.Time        `gorm:"not null" json:"expires_at"`
	CommissionRate  *decimal.Decimal `gorm:"type:decimal(5,2)" json:"commission_rate,omitempty"`
	CommissionTerms string           `gorm:"type:text" json:"commission_terms,omitempty"`
	SignedAt        *time.Time       `json:"signed_at,omitempty"`
	IsActive        bool             `gorm:"not null" json:"is_active"`
	IPAddress       string           `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent       string           `gorm:"size:255" json:"user_agent,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName overrides the table name for BrokerageContract
func (BrokerageContract) TableName() string {
	return "brokerage_contracts"
}

func (b *BrokerageContract) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// AgentDeclaration is the verified statement an agent makes before
// publishing listings.
type AgentDeclaration struct {
	ID         string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     string     `gorm:"type:char(36);not null;index" json:"user_id"`
	Code       string     `gorm:"size:16;not null;uniqueIndex" json:"-"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	IPAddress  string     `gorm:"size:64" json:"ip_address,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName overrides the table name for AgentDeclaration
func (AgentDeclaration) TableName() string {
	return "agent_declarations"
}

func (a *AgentDeclaration) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
