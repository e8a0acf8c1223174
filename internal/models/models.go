package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Property{},
		&Demand{},
		&Match{},
		&AccessCode{},
		&LOISignature{},
		&BrokerageContract{},
		&AgentDeclaration{},
		&Notification{},
		&AuditLog{},
	}
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// Entity is the lifecycle view shared by Property and Demand
type Entity interface {
	EntityID() string
	OwnerID() string
	Kind() EntityType
	CurrentStatus() Status
	Heading() string
}

func (p *Property) EntityID() string      { return p.ID }
func (p *Property) Kind() EntityType      { return EntityProperty }
func (p *Property) CurrentStatus() Status { return p.Status }
func (p *Property) Heading() string       { return p.Title }

func (d *Demand) EntityID() string      { return d.ID }
func (d *Demand) Kind() EntityType      { return EntityDemand }
func (d *Demand) CurrentStatus() Status { return d.Status }
func (d *Demand) Heading() string       { return d.Title }

// TableFor returns the table that stores entities of type t
func TableFor(t EntityType) string {
	if t == EntityDemand {
		return Demand{}.TableName()
	}
	return Property{}.TableName()
}

// OwnerColumn returns the owner column for entities of type t
func OwnerColumn(t EntityType) string {
	if t == EntityDemand {
		return "client_id"
	}
	return "agent_id"
}
