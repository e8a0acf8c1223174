package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/repository"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Actors used across package tests
var (
	Admin  = types.Actor{ID: "00000000-0000-0000-0000-00000000000a", Email: "admin@example.com", Name: "Admin", Role: types.RoleAdmin}
	Agent  = types.Actor{ID: "00000000-0000-0000-0000-0000000000a1", Email: "agent@example.com", Name: "Agent", Role: types.RoleAgent}
	Agent2 = types.Actor{ID: "00000000-0000-0000-0000-0000000000a2", Email: "agent2@example.com", Name: "Agent Two", Role: types.RoleAgent}
	Client = types.Actor{ID: "00000000-0000-0000-0000-0000000000c1", Email: "client@example.com", Name: "Client", Role: types.RoleClient}
)

// SeedUsers creates the standard actors
func SeedUsers(t *testing.T, store *repository.Store, actors ...types.Actor) {
	t.Helper()
	if len(actors) == 0 {
		actors = []types.Actor{Admin, Agent, Agent2, Client}
	}
	for _, a := range actors {
		_, err := store.SyncUser(context.Background(), a)
		require.NoError(t, err)
	}
}

// Dec parses a decimal literal
func Dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// Float returns a pointer to f
func Float(f float64) *float64 {
	return &f
}

// Property returns a sale flat in Praha with area 70 at 3,000,000
func Property(ownerID string, status models.Status) *models.Property {
	return &models.Property{
		AgentID:         ownerID,
		Title:           "Two room flat",
		Description:     "Bright flat near the park",
		TransactionType: models.TransactionSale,
		PropertyType:    "flat",
		Price:           decimal.NewFromInt(3000000),
		Area:            Float(70),
		City:            "Praha",
		District:        "Vinohrady",
		Address:         "Mánesova 12",
		ContactPhone:    "+420 123 456 789",
		ContactEmail:    "agent@example.com",
		PhotoCount:      4,
		Status:          status,
	}
}

// Demand returns a sale demand for flats, 2M to 5M, 60 to 80 m2
func Demand(ownerID string, status models.Status) *models.Demand {
	return &models.Demand{
		ClientID:        ownerID,
		Title:           "Looking for a flat",
		TransactionType: models.TransactionSale,
		PropertyTypes:   models.StringList{"flat"},
		Cities:          models.StringList{"praha"},
		PriceMin:        Dec("2000000"),
		PriceMax:        Dec("5000000"),
		AreaMin:         Float(60),
		AreaMax:         Float(80),
		ContactEmail:    "client@example.com",
		Status:          status,
	}
}

// Create inserts records and fails the test on error
func Create(t *testing.T, store *repository.Store, values ...interface{}) {
	t.Helper()
	for _, v := range values {
		require.NoError(t, store.Create(context.Background(), v))
	}
}

// VerifiedDeclaration inserts a verified declaration for userID
func VerifiedDeclaration(t *testing.T, store *repository.Store, userID string) {
	t.Helper()
	now := time.Now()
	Create(t, store, &models.AgentDeclaration{
		UserID:     userID,
		Code:       "DECL" + userID[len(userID)-2:],
		ExpiresAt:  now.Add(24 * time.Hour),
		VerifiedAt: &now,
	})
}

// Clock is a settable time source
type Clock struct {
	Now time.Time
}

// Time returns the clock's current time
func (c *Clock) Time() time.Time {
	return c.Now
}

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) {
	c.Now = c.Now.Add(d)
}
