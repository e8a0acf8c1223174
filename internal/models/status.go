package models

// EntityType names the kind of entity an entitlement, match or audit entry refers to
type EntityType string

const (
	EntityProperty EntityType = "property"
	EntityDemand   EntityType = "demand"
)

// IsValid reports whether t is a gated entity type
func (t EntityType) IsValid() bool {
	return t == EntityProperty || t == EntityDemand
}

// Opposite returns the collection a newly active entity is matched against
func (t EntityType) Opposite() EntityType {
	if t == EntityProperty {
		return EntityDemand
	}
	return EntityProperty
}

// Status is the lifecycle state of a Property or Demand
type Status string

const (
	StatusPending                 Status = "pending"
	StatusApprovedPendingContract Status = "approved_pending_contract"
	StatusActive                  Status = "active"
	StatusRejected                Status = "rejected"
	StatusArchived                Status = "archived"
)

// IsValid checks if the status is a known lifecycle status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApprovedPendingContract, StatusActive, StatusRejected, StatusArchived:
		return true
	}
	return false
}

// Transaction types
const (
	TransactionSale = "sale"
	TransactionRent = "rent"
)

// MatchStatus is the viewer-side state of a Match
type MatchStatus string

const (
	MatchNew       MatchStatus = "new"
	MatchViewed    MatchStatus = "viewed"
	MatchDismissed MatchStatus = "dismissed"
)

// IsValid reports whether s is a known match status
func (s MatchStatus) IsValid() bool {
	return s == MatchNew || s == MatchViewed || s == MatchDismissed
}
