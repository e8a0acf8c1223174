package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/localnerve/propmarket/internal/mailer"
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/repository"
	"github.com/localnerve/propmarket/internal/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []*mailer.Message
	err  error
}

func (m *recordingMailer) Name() string { return "recording" }

func (m *recordingMailer) Send(ctx context.Context, message *mailer.Message) (*mailer.SendResult, error) {
	m.sent = append(m.sent, message)
	if m.err != nil {
		return &mailer.SendResult{Provider: m.Name()}, m.err
	}
	return &mailer.SendResult{Delivered: true, MessageID: "m1", Provider: m.Name()}, nil
}

func newDispatcher(t *testing.T, m mailer.Provider) (*Dispatcher, *repository.Store, *test.Hook) {
	store := testutil.NewStore(t)
	testutil.SeedUsers(t, store)
	renderer, err := NewRenderer()
	require.NoError(t, err)
	logger, hook := test.NewNullLogger()
	return NewDispatcher(store, m, renderer, "https://propmarket.example/", logrus.NewEntry(logger)), store, hook
}

func TestRenderEveryTemplate(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	for _, name := range templateNames {
		rendered, err := renderer.Render(name, Vars{Title: "Flat \"Vinohrady\"", Code: "ABC123", Score: 85, CommissionRate: "3"})
		require.NoError(t, err, name)
		assert.NotEmpty(t, rendered.Subject, name)
		assert.NotEmpty(t, rendered.Text, name)
		assert.Contains(t, rendered.HTML, "<html", name)
	}
}

func TestRenderEscapesOnlyHTML(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	rendered, err := renderer.Render(MatchFound, Vars{Title: "<b>Loft</b>", Code: "ABC123", Score: 100})
	require.NoError(t, err)
	assert.Equal(t, "New match (100%): <b>Loft</b>", rendered.Subject)
	assert.Contains(t, rendered.HTML, "&lt;b&gt;Loft&lt;/b&gt;")
	assert.Contains(t, rendered.Text, "ABC123")
}

func TestRenderUnknownTemplate(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)
	_, err = renderer.Render("nope", Vars{})
	assert.Error(t, err)
}

func TestDispatchStoresAndSends(t *testing.T) {
	m := &recordingMailer{}
	d, store, _ := newDispatcher(t, m)

	result, err := d.Dispatch(context.Background(), Notice{
		UserID:     testutil.Client.ID,
		Template:   AccessCode,
		EntityType: models.EntityProperty,
		EntityID:   "p1",
		Vars:       Vars{Title: "Flat", Code: "ABC123"},
	})
	require.NoError(t, err)
	assert.True(t, result.Delivered)

	require.Len(t, m.sent, 1)
	assert.Equal(t, testutil.Client.Email, m.sent[0].To)
	assert.Contains(t, m.sent[0].BodyHTML, "https://propmarket.example/properties/p1")

	rows, err := store.Notifications(context.Background(), testutil.Client.ID, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, AccessCode, rows[0].Type)
	assert.True(t, rows[0].Emailed)
	assert.Equal(t, "recording", rows[0].Provider)
}

func TestDispatchMailFailureKeepsRow(t *testing.T) {
	m := &recordingMailer{err: errors.New("smtp down")}
	d, store, _ := newDispatcher(t, m)

	_, err := d.Dispatch(context.Background(), Notice{UserID: testutil.Client.ID, Template: EntityRejected, Vars: Vars{Title: "Flat"}})
	require.Error(t, err)

	rows, err := store.Notifications(context.Background(), testutil.Client.ID, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Emailed)
}

func TestEmailOnlySkipsRow(t *testing.T) {
	m := &recordingMailer{}
	d, store, _ := newDispatcher(t, m)

	_, err := d.Dispatch(context.Background(), Notice{UserID: testutil.Agent.ID, Template: DeclarationCode, EmailOnly: true, Vars: Vars{Code: "ABC123"}})
	require.NoError(t, err)
	assert.Len(t, m.sent, 1)

	rows, err := store.Notifications(context.Background(), testutil.Agent.ID, false)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNotifyAdminsLogsFailures(t *testing.T) {
	m := &recordingMailer{err: errors.New("smtp down")}
	d, _, hook := newDispatcher(t, m)

	d.NotifyAdmins(context.Background(), Notice{Template: EntitySubmitted, EntityType: models.EntityProperty, Vars: Vars{Title: "Flat"}})
	require.Len(t, m.sent, 1)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
