package models

import (
	"time"

	"gorm.io/gorm"
)

// Audit actions
const (
	ActionView         = "view"
	ActionAccessCode   = "access_code"
	ActionIssueCode    = "issue_code"
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionContractReq  = "contract_request"
	ActionLOIRequest   = "loi_request"
	ActionLOISign      = "loi_sign"
	ActionContractSign = "contract_sign"
	ActionDeclRequest  = "declaration_request"
	ActionDeclVerify   = "declaration_verify"
	ActionApprove      = "approve"
	ActionReject       = "reject"
	ActionActivate     = "activate"
	ActionArchive      = "archive"
	ActionReactivate   = "reactivate"
	ActionReserve      = "reserve"
	ActionRelease      = "release"
	ActionDelete       = "delete"
)

// AuditLog is an append-only record of a sensitive action
type AuditLog struct {
	ID         string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     string     `gorm:"type:char(36);not null;index" json:"user_id"`
	Action     string     `gorm:"size:32;not null;index" json:"action"`
	EntityType EntityType `gorm:"size:16;not null;index:idx_audit_entity,priority:1" json:"entity_type"`
	EntityID   string     `gorm:"type:char(36);not null;index:idx_audit_entity,priority:2" json:"entity_id"`
	Details    JSON       `json:"details,omitempty"`
	IPAddress  string     `gorm:"size:64" json:"ip_address,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

// TableName overrides the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
