package types

// Role is the marketplace role of an authenticated user
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
	RoleClient Role = "client"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleClient:
		return true
	}
	return false
}

// Actor is the caller of a core operation
type Actor struct {
	ID    string
	Email string
	Name  string
	Role  Role
}

// IsAdmin reports whether the actor has the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// System is the actor used for side effects not caused by a user request
var System = Actor{ID: "system", Role: RoleAdmin}
