package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/localnerve/propmarket/internal/access"
	"github.com/localnerve/propmarket/internal/audit"
	"github.com/localnerve/propmarket/internal/mailer"
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/notify"
	"github.com/localnerve/propmarket/internal/repository"
	"github.com/localnerve/propmarket/internal/testutil"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopAuditor struct{}

func (nopAuditor) Record(ctx context.Context, entry audit.Entry) {}

type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, notice notify.Notice) {}

type dispatchSpy struct {
	failFor map[string]bool
	sent    []notify.Notice
}

func (d *dispatchSpy) Dispatch(ctx context.Context, notice notify.Notice) (*mailer.SendResult, error) {
	if d.failFor[notice.UserID] {
		return nil, errors.New("mailbox unavailable")
	}
	d.sent = append(d.sent, notice)
	return &mailer.SendResult{Delivered: true, Provider: "spy"}, nil
}

var client2 = types.Actor{ID: "00000000-0000-0000-0000-0000000000c2", Email: "client2@example.com", Name: "Client Two", Role: types.RoleClient}

func newOrchestrator(t *testing.T, spy *dispatchSpy) (*Orchestrator, *repository.Store) {
	store := testutil.NewStore(t)
	testutil.SeedUsers(t, store)
	testutil.SeedUsers(t, store, client2)

	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)
	gate := access.NewGate(store, nopAuditor{}, nopNotifier{}, log)
	return NewOrchestrator(store, gate, spy, log), store
}

func TestPropertyActivationNotifiesDemandOwners(t *testing.T) {
	spy := &dispatchSpy{}
	o, store := newOrchestrator(t, spy)
	ctx := context.Background()

	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	demand := testutil.Demand(testutil.Client.ID, models.StatusActive)
	testutil.Create(t, store, property, demand)

	result, err := o.ComputeMatchesFor(ctx, models.EntityProperty, property.ID)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, 100, result.Matches[0].Score)
	assert.Equal(t, 1, result.Notified)

	require.Len(t, spy.sent, 1)
	notice := spy.sent[0]
	assert.Equal(t, testutil.Client.ID, notice.UserID)
	assert.Equal(t, notify.MatchFound, notice.Template)
	assert.Equal(t, 100, notice.Vars.Score)

	ac, err := store.FindAccessCode(ctx, testutil.Client.ID, models.EntityProperty, property.ID, notice.Vars.Code)
	require.NoError(t, err)
	require.NotNil(t, ac.ExpiresAt)
}

func TestRerunUpdatesExistingMatch(t *testing.T) {
	o, store := newOrchestrator(t, &dispatchSpy{})
	ctx := context.Background()

	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	demand := testutil.Demand(testutil.Client.ID, models.StatusActive)
	testutil.Create(t, store, property, demand)

	first, err := o.ComputeMatchesFor(ctx, models.EntityProperty, property.ID)
	require.NoError(t, err)
	second, err := o.ComputeMatchesFor(ctx, models.EntityDemand, demand.ID)
	require.NoError(t, err)

	require.Len(t, first.Matches, 1)
	require.Len(t, second.Matches, 1)
	assert.Equal(t, first.Matches[0].ID, second.Matches[0].ID)

	var count int64
	require.NoError(t, store.DB(ctx).Model(&models.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPartialFailureContinues(t *testing.T) {
	spy := &dispatchSpy{failFor: map[string]bool{testutil.Client.ID: true}}
	o, store := newOrchestrator(t, spy)

	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	testutil.Create(t, store,
		property,
		testutil.Demand(testutil.Client.ID, models.StatusActive),
		testutil.Demand(client2.ID, models.StatusActive),
	)

	result, err := o.ComputeMatchesFor(context.Background(), models.EntityProperty, property.ID)
	require.NoError(t, err)
	assert.Len(t, result.Matches, 2)
	assert.Equal(t, 1, result.Notified)
	require.Len(t, spy.sent, 1)
	assert.Equal(t, client2.ID, spy.sent[0].UserID)
}

func TestRecipientWithSeveralDemandsNotifiedOnce(t *testing.T) {
	spy := &dispatchSpy{}
	o, store := newOrchestrator(t, spy)
	ctx := context.Background()

	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	partial := testutil.Demand(testutil.Client.ID, models.StatusActive)
	partial.AreaMin = testutil.Float(500)
	partial.AreaMax = testutil.Float(900)
	testutil.Create(t, store,
		property,
		partial,
		testutil.Demand(testutil.Client.ID, models.StatusActive),
	)

	result, err := o.ComputeMatchesFor(ctx, models.EntityProperty, property.ID)
	require.NoError(t, err)
	assert.Len(t, result.Matches, 2)
	assert.Equal(t, 1, result.Notified)

	require.Len(t, spy.sent, 1)
	assert.Equal(t, testutil.Client.ID, spy.sent[0].UserID)
	assert.Equal(t, 100, spy.sent[0].Vars.Score)

	var codes int64
	require.NoError(t, store.DB(ctx).Model(&models.AccessCode{}).
		Where("user_id = ?", testutil.Client.ID).Count(&codes).Error)
	assert.Equal(t, int64(1), codes)
}

func TestThresholdFiltersRecipients(t *testing.T) {
	spy := &dispatchSpy{}
	o, store := newOrchestrator(t, spy)
	ctx := context.Background()

	_, err := store.UpdatePreferences(ctx, testutil.Client.ID, true, 90)
	require.NoError(t, err)

	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	property.Area = testutil.Float(200)
	testutil.Create(t, store,
		property,
		testutil.Demand(testutil.Client.ID, models.StatusActive),
		testutil.Demand(client2.ID, models.StatusActive),
	)

	result, err := o.ComputeMatchesFor(ctx, models.EntityProperty, property.ID)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, 85, result.Matches[0].Score)
	assert.Equal(t, client2.ID, spy.sent[0].UserID)
}

func TestNoMatchWithoutBaseline(t *testing.T) {
	spy := &dispatchSpy{}
	o, store := newOrchestrator(t, spy)

	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	property.TransactionType = models.TransactionRent
	testutil.Create(t, store, property, testutil.Demand(testutil.Client.ID, models.StatusActive))

	result, err := o.ComputeMatchesFor(context.Background(), models.EntityProperty, property.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Zero(t, result.Notified)
}

func TestInactiveEntityIsNoop(t *testing.T) {
	spy := &dispatchSpy{}
	o, store := newOrchestrator(t, spy)

	property := testutil.Property(testutil.Agent.ID, models.StatusApprovedPendingContract)
	testutil.Create(t, store, property, testutil.Demand(testutil.Client.ID, models.StatusActive))

	result, err := o.ComputeMatchesFor(context.Background(), models.EntityProperty, property.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Empty(t, spy.sent)
}

func TestInactiveCandidatesIgnored(t *testing.T) {
	spy := &dispatchSpy{}
	o, store := newOrchestrator(t, spy)

	demand := testutil.Demand(testutil.Client.ID, models.StatusActive)
	testutil.Create(t, store,
		demand,
		testutil.Property(testutil.Agent.ID, models.StatusPending),
		testutil.Property(testutil.Agent2.ID, models.StatusArchived),
	)

	result, err := o.ComputeMatchesFor(context.Background(), models.EntityDemand, demand.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
}

func TestOwnerNotMatchedWithSelf(t *testing.T) {
	spy := &dispatchSpy{}
	o, store := newOrchestrator(t, spy)

	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	testutil.Create(t, store, property, testutil.Demand(testutil.Agent.ID, models.StatusActive))

	result, err := o.ComputeMatchesFor(context.Background(), models.EntityProperty, property.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
}

func TestMissingEntity(t *testing.T) {
	o, _ := newOrchestrator(t, &dispatchSpy{})
	_, err := o.ComputeMatchesFor(context.Background(), models.EntityDemand, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
