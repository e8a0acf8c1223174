package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localnerve/propmarket/internal/audit"
	"github.com/localnerve/propmarket/internal/matching"
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/notify"
	"github.com/localnerve/propmarket/internal/repository"
	"github.com/localnerve/propmarket/internal/testutil"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type auditSpy struct {
	entries []audit.Entry
}

func (a *auditSpy) Record(ctx context.Context, entry audit.Entry) {
	a.entries = append(a.entries, entry)
}

func (a *auditSpy) actions() []string {
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

type notifySpy struct {
	notices []notify.Notice
	admin   []notify.Notice
}

func (n *notifySpy) Notify(ctx context.Context, notice notify.Notice) {
	n.notices = append(n.notices, notice)
}

func (n *notifySpy) NotifyAdmins(ctx context.Context, notice notify.Notice) {
	n.admin = append(n.admin, notice)
}

type matcherSpy struct {
	calls []string
	err   error
}

func (m *matcherSpy) ComputeMatchesFor(ctx context.Context, entityType models.EntityType, entityID string) (*matching.Result, error) {
	m.calls = append(m.calls, string(entityType)+":"+entityID)
	if m.err != nil {
		return nil, m.err
	}
	return &matching.Result{}, nil
}

type fixture struct {
	ctrl     *Controller
	store    *repository.Store
	audit    *auditSpy
	notifier *notifySpy
	matcher  *matcherSpy
}

func newFixture(t *testing.T) *fixture {
	store := testutil.NewStore(t)
	testutil.SeedUsers(t, store)

	logger, _ := test.NewNullLogger()
	f := &fixture{
		store:    store,
		audit:    &auditSpy{},
		notifier: &notifySpy{},
		matcher:  &matcherSpy{},
	}
	f.ctrl = NewController(store, f.audit, f.notifier, f.matcher, logrus.NewEntry(logger))
	return f
}

func (f *fixture) status(t *testing.T, entityType models.EntityType, id string) models.Status {
	t.Helper()
	entity, err := f.store.FindEntity(context.Background(), entityType, id)
	require.NoError(t, err)
	return entity.CurrentStatus()
}

func propertyDraft() *PropertyDraft {
	rooms := types.FlexInt(3)
	return &PropertyDraft{
		Title:           "Two room flat",
		TransactionType: models.TransactionSale,
		PropertyType:    "flat",
		Price:           decimal.NewFromInt(3000000),
		Area:            testutil.Float(70),
		Rooms:           &rooms,
		City:            "Praha",
		ContactEmail:    "agent@example.com",
	}
}

func approval(rate string) *Verdict {
	return &Verdict{Decision: "approve", CommissionRate: testutil.Dec(rate), CommissionTerms: "Paid on completion"}
}

func TestSubmitRequiresDeclaration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// An invalid draft still reports the missing declaration.
	_, err := f.ctrl.Submit(ctx, testutil.Agent, &PropertyDraft{})
	assert.ErrorIs(t, err, types.ErrComplianceRequired)

	_, err = f.ctrl.Submit(ctx, testutil.Agent, propertyDraft())
	assert.ErrorIs(t, err, types.ErrComplianceRequired)
	assert.Empty(t, f.audit.entries)

	testutil.VerifiedDeclaration(t, f.store, testutil.Agent.ID)

	_, err = f.ctrl.Submit(ctx, testutil.Agent, &PropertyDraft{})
	assert.ErrorIs(t, err, types.ErrValidation)

	property, err := f.ctrl.Submit(ctx, testutil.Agent, propertyDraft())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, property.Status)
	assert.Equal(t, testutil.Agent.ID, property.AgentID)
	require.NotNil(t, property.Rooms)
	assert.Equal(t, 3, *property.Rooms)

	assert.Equal(t, []string{models.ActionCreate}, f.audit.actions())
	require.Len(t, f.notifier.admin, 1)
	assert.Equal(t, notify.EntitySubmitted, f.notifier.admin[0].Template)
}

func TestSubmitRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.Submit(ctx, testutil.Client, propertyDraft())
	assert.ErrorIs(t, err, types.ErrForbidden)

	// Administrators need no declaration and may list for an agent.
	draft := propertyDraft()
	draft.AgentID = testutil.Agent2.ID
	property, err := f.ctrl.Submit(ctx, testutil.Admin, draft)
	require.NoError(t, err)
	assert.Equal(t, testutil.Agent2.ID, property.AgentID)

	testutil.VerifiedDeclaration(t, f.store, testutil.Agent.ID)
	draft = propertyDraft()
	draft.AgentID = testutil.Agent2.ID
	_, err = f.ctrl.Submit(ctx, testutil.Agent, draft)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestSubmitRejectsNonPositivePrice(t *testing.T) {
	f := newFixture(t)
	draft := propertyDraft()
	draft.Price = decimal.Zero
	_, err := f.ctrl.Submit(context.Background(), testutil.Admin, draft)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestSubmitDemandFansOut(t *testing.T) {
	f := newFixture(t)
	draft := &DemandDraft{
		Title:            "Family home",
		TransactionTypes: types.FlexList[string]{"sale", "rent"},
		PropertyTypes:    types.FlexList[string]{"Flat", "house", "flat"},
		Cities:           types.FlexList[string]{"Praha"},
		PriceMin:         testutil.Dec("2000000"),
		PriceMax:         testutil.Dec("5000000"),
	}

	demands, err := f.ctrl.SubmitDemand(context.Background(), testutil.Client, draft)
	require.NoError(t, err)
	require.Len(t, demands, 4)

	combos := map[string]bool{}
	for _, d := range demands {
		assert.Equal(t, models.StatusPending, d.Status)
		assert.Equal(t, testutil.Client.ID, d.ClientID)
		require.Len(t, d.PropertyTypes, 1)
		assert.Equal(t, models.StringList{"praha"}, d.Cities)
		combos[d.TransactionType+"/"+d.PropertyTypes[0]] = true
	}
	assert.Len(t, combos, 4)
	assert.True(t, combos["rent/house"])
	assert.Len(t, f.audit.entries, 4)
}

func TestSubmitDemandRejectsInvertedRanges(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		draft DemandDraft
	}{
		{"price", DemandDraft{PriceMin: testutil.Dec("5"), PriceMax: testutil.Dec("4")}},
		{"area", DemandDraft{AreaMin: testutil.Float(90), AreaMax: testutil.Float(60)}},
		{"no types", DemandDraft{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := tt.draft
			draft.Title = "Broken"
			if tt.name != "no types" {
				draft.TransactionTypes = types.FlexList[string]{"sale"}
				draft.PropertyTypes = types.FlexList[string]{"flat"}
			}
			_, err := f.ctrl.SubmitDemand(context.Background(), testutil.Client, &draft)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}

	var count int64
	require.NoError(t, f.store.DB(context.Background()).Model(&models.Demand{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateOnlyWhilePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := testutil.Property(testutil.Agent.ID, models.StatusPending)
	active := testutil.Property(testutil.Agent.ID, models.StatusActive)
	testutil.Create(t, f.store, pending, active)

	draft := propertyDraft()
	draft.Title = "Renovated flat"

	_, err := f.ctrl.UpdateProperty(ctx, testutil.Agent2, pending.ID, draft)
	assert.ErrorIs(t, err, types.ErrForbidden)

	updated, err := f.ctrl.UpdateProperty(ctx, testutil.Agent, pending.ID, draft)
	require.NoError(t, err)
	assert.Equal(t, "Renovated flat", updated.Title)

	_, err = f.ctrl.UpdateProperty(ctx, testutil.Admin, active.ID, draft)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestUpdateDemand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	demand := testutil.Demand(testutil.Client.ID, models.StatusPending)
	testutil.Create(t, f.store, demand)

	draft := &DemandDraft{
		Title:            "Bigger flat",
		TransactionTypes: types.FlexList[string]{"sale", "rent"},
		PropertyTypes:    types.FlexList[string]{"flat"},
	}
	_, err := f.ctrl.UpdateDemand(ctx, testutil.Client, demand.ID, draft)
	assert.ErrorIs(t, err, types.ErrValidation)

	draft.TransactionTypes = types.FlexList[string]{"rent"}
	updated, err := f.ctrl.UpdateDemand(ctx, testutil.Client, demand.ID, draft)
	require.NoError(t, err)
	assert.Equal(t, "Bigger flat", updated.Title)
	assert.Equal(t, models.TransactionRent, updated.TransactionType)
	assert.Nil(t, updated.PriceMin)
}

func TestDecideApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	property := testutil.Property(testutil.Agent.ID, models.StatusPending)
	testutil.Create(t, f.store, property)

	_, err := f.ctrl.Decide(ctx, testutil.Agent, models.EntityProperty, property.ID, approval("3"))
	assert.ErrorIs(t, err, types.ErrForbidden)

	_, err = f.ctrl.Decide(ctx, testutil.Admin, models.EntityProperty, property.ID, &Verdict{Decision: "approve"})
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = f.ctrl.Decide(ctx, testutil.Admin, models.EntityProperty, property.ID, approval("101"))
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, models.StatusPending, f.status(t, models.EntityProperty, property.ID))

	to, err := f.ctrl.Decide(ctx, testutil.Admin, models.EntityProperty, property.ID, approval("3"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusApprovedPendingContract, to)

	stored, err := f.store.FindProperty(ctx, property.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CommissionRate)
	assert.True(t, stored.CommissionRate.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, "Paid on completion", stored.CommissionTerms)

	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, notify.EntityApproved, f.notifier.notices[0].Template)
	assert.Equal(t, testutil.Agent.ID, f.notifier.notices[0].UserID)
	assert.Empty(t, f.matcher.calls)

	_, err = f.ctrl.Decide(ctx, testutil.Admin, models.EntityProperty, property.ID, approval("3"))
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

// Approving and then toggling before any contract is signed must fail.
func TestToggleBeforeContractFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	property := testutil.Property(testutil.Agent.ID, models.StatusPending)
	testutil.Create(t, f.store, property)

	_, err := f.ctrl.Decide(ctx, testutil.Admin, models.EntityProperty, property.ID, approval("3"))
	require.NoError(t, err)

	_, err = f.ctrl.ToggleActive(ctx, testutil.Admin, models.EntityProperty, property.ID)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
	assert.Equal(t, models.StatusApprovedPendingContract, f.status(t, models.EntityProperty, property.ID))
}

func TestDecideReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	demand := testutil.Demand(testutil.Client.ID, models.StatusPending)
	testutil.Create(t, f.store, demand)

	to, err := f.ctrl.Decide(ctx, testutil.Admin, models.EntityDemand, demand.ID, &Verdict{Decision: "reject", Reason: "Duplicate"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, to)
	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, notify.EntityRejected, f.notifier.notices[0].Template)
	assert.Equal(t, "Duplicate", f.notifier.notices[0].Vars.Reason)

	// Rejection is final.
	_, err = f.ctrl.Decide(ctx, testutil.Admin, models.EntityDemand, demand.ID, approval("2"))
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
	_, err = f.ctrl.ToggleActive(ctx, testutil.Admin, models.EntityDemand, demand.ID)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestDecideUnknownVerdict(t *testing.T) {
	f := newFixture(t)
	property := testutil.Property(testutil.Agent.ID, models.StatusPending)
	testutil.Create(t, f.store, property)

	_, err := f.ctrl.Decide(context.Background(), testutil.Admin, models.EntityProperty, property.ID, &Verdict{Decision: "maybe"})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestAdminOwnedApprovalGoesLive(t *testing.T) {
	f := newFixture(t)
	property := testutil.Property(testutil.Admin.ID, models.StatusPending)
	testutil.Create(t, f.store, property)

	to, err := f.ctrl.Decide(context.Background(), testutil.Admin, models.EntityProperty, property.ID, approval("0"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, to)
	assert.Equal(t, []string{"property:" + property.ID}, f.matcher.calls)
	assert.Equal(t, []string{models.ActionApprove, models.ActionActivate}, f.audit.actions())
}

func signedContract(userID string, entityType models.EntityType, entityID string) *models.BrokerageContract {
	now := time.Now()
	return &models.BrokerageContract{
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
		Code:       "SIGNED",
		ExpiresAt:  now.Add(time.Hour),
		SignedAt:   &now,
		IsActive:   true,
	}
}

func TestOnContractSigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	property := testutil.Property(testutil.Agent.ID, models.StatusApprovedPendingContract)
	testutil.Create(t, f.store, property)

	contract := signedContract(testutil.Agent.ID, models.EntityProperty, property.ID)
	err := f.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Create(ctx, contract); err != nil {
			return err
		}
		return f.ctrl.OnContractSigned(ctx, tx, contract)
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, f.status(t, models.EntityProperty, property.ID))

	f.ctrl.Activated(ctx, contract)
	assert.Equal(t, []string{"property:" + property.ID}, f.matcher.calls)
	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, notify.EntityActivated, f.notifier.notices[0].Template)
}

func TestOnContractSignedGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	property := testutil.Property(testutil.Agent.ID, models.StatusApprovedPendingContract)
	other := testutil.Property(testutil.Agent.ID, models.StatusApprovedPendingContract)
	pending := testutil.Property(testutil.Agent.ID, models.StatusPending)
	testutil.Create(t, f.store, property, other, pending)

	run := func(contract *models.BrokerageContract, persist bool) error {
		return f.store.Transaction(ctx, func(tx *repository.Store) error {
			if persist {
				if err := tx.Create(ctx, contract); err != nil {
					return err
				}
			}
			return f.ctrl.OnContractSigned(ctx, tx, contract)
		})
	}

	unsigned := signedContract(testutil.Agent.ID, models.EntityProperty, property.ID)
	unsigned.SignedAt = nil
	assert.ErrorIs(t, run(unsigned, true), types.ErrInvalidTransition)

	// A signature on another entity does not activate this one.
	stray := signedContract(testutil.Agent.ID, models.EntityProperty, other.ID)
	stray.EntityID = property.ID
	assert.ErrorIs(t, run(stray, false), types.ErrInvalidTransition)

	foreign := signedContract(testutil.Agent2.ID, models.EntityProperty, property.ID)
	assert.ErrorIs(t, run(foreign, true), types.ErrForbidden)

	early := signedContract(testutil.Agent.ID, models.EntityProperty, pending.ID)
	assert.ErrorIs(t, run(early, true), types.ErrInvalidTransition)

	assert.Equal(t, models.StatusApprovedPendingContract, f.status(t, models.EntityProperty, property.ID))
	assert.Equal(t, models.StatusPending, f.status(t, models.EntityProperty, pending.ID))
}

func TestToggleActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	testutil.Create(t, f.store, property)

	_, err := f.ctrl.ToggleActive(ctx, testutil.Agent2, models.EntityProperty, property.ID)
	assert.ErrorIs(t, err, types.ErrForbidden)

	to, err := f.ctrl.ToggleActive(ctx, testutil.Agent, models.EntityProperty, property.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, to)
	assert.Empty(t, f.matcher.calls)

	to, err = f.ctrl.ToggleActive(ctx, testutil.Admin, models.EntityProperty, property.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, to)
	assert.Equal(t, []string{"property:" + property.ID}, f.matcher.calls)
	assert.Equal(t, []string{models.ActionArchive, models.ActionReactivate}, f.audit.actions())
}

func TestToggleActiveToleratesMatcherFailure(t *testing.T) {
	f := newFixture(t)
	f.matcher.err = errors.New("boom")
	property := testutil.Property(testutil.Agent.ID, models.StatusArchived)
	testutil.Create(t, f.store, property)

	to, err := f.ctrl.ToggleActive(context.Background(), testutil.Agent, models.EntityProperty, property.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, to)
}

func TestToggleFromPendingFails(t *testing.T) {
	f := newFixture(t)
	property := testutil.Property(testutil.Agent.ID, models.StatusPending)
	testutil.Create(t, f.store, property)

	_, err := f.ctrl.ToggleActive(context.Background(), testutil.Agent, models.EntityProperty, property.ID)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
	assert.Equal(t, models.StatusPending, f.status(t, models.EntityProperty, property.ID))
}

func TestReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active := testutil.Property(testutil.Agent.ID, models.StatusActive)
	pending := testutil.Property(testutil.Agent.ID, models.StatusPending)
	testutil.Create(t, f.store, active, pending)

	until := time.Now().Add(72 * time.Hour).Truncate(time.Second)
	_, err := f.ctrl.Reserve(ctx, testutil.Client, active.ID, &until)
	assert.ErrorIs(t, err, types.ErrForbidden)

	_, err = f.ctrl.Reserve(ctx, testutil.Agent, pending.ID, &until)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	past := time.Now().Add(-time.Hour)
	_, err = f.ctrl.Reserve(ctx, testutil.Agent, active.ID, &past)
	assert.ErrorIs(t, err, types.ErrValidation)
	unchanged, err := f.store.FindProperty(ctx, active.ID)
	require.NoError(t, err)
	assert.False(t, unchanged.IsReserved)

	reserved, err := f.ctrl.Reserve(ctx, testutil.Agent, active.ID, &until)
	require.NoError(t, err)
	assert.True(t, reserved.IsReserved)
	require.NotNil(t, reserved.ReservedUntil)
	assert.WithinDuration(t, until, *reserved.ReservedUntil, time.Second)

	released, err := f.ctrl.ReleaseReservation(ctx, testutil.Admin, active.ID)
	require.NoError(t, err)
	assert.False(t, released.IsReserved)
	assert.Nil(t, released.ReservedUntil)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	testutil.Create(t, f.store, property)

	err := f.ctrl.Delete(ctx, testutil.Agent, models.EntityProperty, property.ID)
	assert.ErrorIs(t, err, types.ErrForbidden)

	require.NoError(t, f.ctrl.Delete(ctx, testutil.Admin, models.EntityProperty, property.ID))
	_, err = f.store.FindProperty(ctx, property.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = f.ctrl.Delete(ctx, testutil.Admin, models.EntityProperty, property.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
