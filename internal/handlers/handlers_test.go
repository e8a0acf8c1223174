package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/propmarket/internal/access"
	"github.com/localnerve/propmarket/internal/audit"
	"github.com/localnerve/propmarket/internal/config"
	"github.com/localnerve/propmarket/internal/entitlement"
	"github.com/localnerve/propmarket/internal/lifecycle"
	"github.com/localnerve/propmarket/internal/mailer"
	"github.com/localnerve/propmarket/internal/matching"
	"github.com/localnerve/propmarket/internal/middleware"
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

type outbox struct {
	mu   sync.Mutex
	sent []*mailer.Message
}

func (o *outbox) Name() string { return "outbox" }

func (o *outbox) Send(ctx context.Context, message *mailer.Message) (*mailer.SendResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, message)
	return &mailer.SendResult{Delivered: true, Provider: o.Name()}, nil
}

const actorHeader = "X-Test-Actor"

var actors = map[string]types.Actor{
	"admin":  testutil.Admin,
	"agent":  testutil.Agent,
	"agent2": testutil.Agent2,
	"client": testutil.Client,
}

type server struct {
	app   *fiber.App
	store *repository.Store
	mail  *outbox
}

func newServer(t *testing.T) *server {
	store := testutil.NewStore(t)
	testutil.SeedUsers(t, store)

	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)

	renderer, err := notify.NewRenderer()
	require.NoError(t, err)
	mail := &outbox{}
	dispatcher := notify.NewDispatcher(store, mail, renderer, "https://market.example.com", log)
	recorder := audit.NewRecorder(store, nil, log)

	gate := access.NewGate(store, recorder, dispatcher, log)
	orchestrator := matching.NewOrchestrator(store, gate, dispatcher, log)
	controller := lifecycle.NewController(store, recorder, dispatcher, orchestrator, log)
	h := &Handler{
		Store:        store,
		Lifecycle:    controller,
		Gate:         gate,
		Entitlements: entitlement.NewService(store, controller, recorder, dispatcher, log),
		Matching:     orchestrator,
		Log:          log,
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(log)})
	api := app.Group("/api", func(c *fiber.Ctx) error {
		if a, ok := actors[c.Get(actorHeader)]; ok {
			middleware.SetActor(c, a)
		}
		return c.Next()
	})
	h.Routes(api)
	app.Use(NotFound)

	return &server{app: app, store: store, mail: mail}
}

func (s *server) do(t *testing.T, method, path, as string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set(actorHeader, as)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	result := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &result))
	} else if len(raw) > 0 {
		var list []interface{}
		require.NoError(t, json.Unmarshal(raw, &list))
		result["items"] = list
	}
	return resp.StatusCode, result
}

func propertyBody() map[string]interface{} {
	return map[string]interface{}{
		"title":            "Two room flat",
		"transaction_type": "sale",
		"property_type":    "flat",
		"price":            3000000,
		"area":             70,
		"rooms":            "2",
		"city":             "Praha",
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: from active", types.ErrInvalidTransition), http.StatusConflict},
		{types.ErrComplianceRequired, http.StatusPreconditionFailed},
		{types.ErrInvalidOrExpiredCode, http.StatusForbidden},
		{types.ErrForbidden, http.StatusForbidden},
		{types.ErrNotFound, http.StatusNotFound},
		{types.ErrValidation, http.StatusUnprocessableEntity},
		{types.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{types.ErrDuplicateCode, http.StatusServiceUnavailable},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusFor(tt.err), tt.err.Error())
	}
}

func TestRequiresActor(t *testing.T) {
	s := newServer(t)

	status, body := s.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "authorization", body["type"])
}

func TestUnknownRoute(t *testing.T) {
	s := newServer(t)

	status, body := s.do(t, http.MethodGet, "/api/nowhere", "client", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["type"])
}

func TestPropertyLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	status, body := s.do(t, http.MethodPost, "/api/properties", "agent", propertyBody())
	require.Equal(t, http.StatusPreconditionFailed, status)
	assert.Equal(t, "compliance_required", body["type"])

	testutil.VerifiedDeclaration(t, s.store, testutil.Agent.ID)
	status, body = s.do(t, http.MethodPost, "/api/properties", "agent", propertyBody())
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, string(models.StatusPending), body["status"])
	id := body["id"].(string)

	status, body = s.do(t, http.MethodPost, "/api/properties/"+id+"/decision", "agent", map[string]interface{}{"decision": "approve"})
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", body["type"])

	status, body = s.do(t, http.MethodPost, "/api/properties/"+id+"/decision", "admin", map[string]interface{}{
		"decision":         "approve",
		"commission_rate":  "3",
		"commission_terms": "Due at closing",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(models.StatusApprovedPendingContract), body["status"])

	status, _ = s.do(t, http.MethodPost, "/api/properties/"+id+"/toggle", "agent", nil)
	require.Equal(t, http.StatusConflict, status)

	ref := map[string]interface{}{"entity_type": "property", "entity_id": id}
	status, body = s.do(t, http.MethodPost, "/api/contracts/request", "agent", ref)
	require.Equal(t, http.StatusCreated, status)
	assert.NotContains(t, body, "code")

	contract, err := s.store.FindContract(ctx, testutil.Agent.ID, models.EntityProperty, id)
	require.NoError(t, err)
	status, _ = s.do(t, http.MethodPost, "/api/contracts/sign", "agent", map[string]interface{}{
		"entity_type": "property", "entity_id": id, "code": contract.Code,
	})
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/api/properties/"+id, "client", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["has_access"])
	assert.Equal(t, string(access.ReasonNoEntitlement), body["reason"])
	assert.NotContains(t, body, "entity")
	stub := body["stub"].(map[string]interface{})
	assert.Equal(t, "Praha", stub["city"])
	assert.NotContains(t, stub, "address")

	status, body = s.do(t, http.MethodPost, "/api/access-codes", "agent", map[string]interface{}{
		"entity_type": "property", "entity_id": id, "user_id": testutil.Client.ID,
	})
	require.Equal(t, http.StatusCreated, status)
	code := body["code"].(string)
	assert.NotEmpty(t, body["expires_at"])

	status, body = s.do(t, http.MethodGet, "/api/properties/"+id+"?code="+code, "client", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["has_access"])
	assert.Equal(t, string(access.ReasonVerifiedCode), body["reason"])
	entity := body["entity"].(map[string]interface{})
	assert.Equal(t, id, entity["id"])
}

func TestSelfIssuedCodeIsOnlyMailed(t *testing.T) {
	s := newServer(t)
	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	testutil.Create(t, s.store, property)

	status, body := s.do(t, http.MethodPost, "/api/access-codes", "client", map[string]interface{}{
		"entity_type": "property", "entity_id": property.ID,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.NotContains(t, body, "code")
	assert.Equal(t, true, body["emailed"])
	require.Len(t, s.mail.sent, 1)
	assert.Equal(t, testutil.Client.Email, s.mail.sent[0].To)

	status, body = s.do(t, http.MethodGet, "/api/properties/"+property.ID, "client", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(access.ReasonCodeRequired), body["reason"])
}

func TestIssueCodeForOthersNeedsOwnership(t *testing.T) {
	s := newServer(t)
	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	testutil.Create(t, s.store, property)

	status, body := s.do(t, http.MethodPost, "/api/access-codes", "agent2", map[string]interface{}{
		"entity_type": "property", "entity_id": property.ID, "user_id": testutil.Client.ID,
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", body["type"])
}

func TestVerifyCodeRejectsWrongCode(t *testing.T) {
	s := newServer(t)
	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	testutil.Create(t, s.store, property)

	status, body := s.do(t, http.MethodPost, "/api/access-codes/verify", "client", map[string]interface{}{
		"entity_type": "property", "entity_id": property.ID, "code": "ABC234",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "invalid_or_expired_code", body["type"])
}

func TestVerifyCodeAuditsOnce(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	testutil.Create(t, s.store, property, &models.AccessCode{
		Code:       "ZX8QW2",
		UserID:     testutil.Client.ID,
		EntityType: models.EntityProperty,
		EntityID:   property.ID,
		IsActive:   true,
	})

	status, body := s.do(t, http.MethodPost, "/api/access-codes/verify", "client", map[string]interface{}{
		"entity_type": "property", "entity_id": property.ID, "code": "zx8qw2",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["has_access"])
	assert.Equal(t, string(access.ReasonVerifiedCode), body["reason"])

	var verifications int64
	require.NoError(t, s.store.DB(ctx).Model(&models.AuditLog{}).
		Where("action = ? AND entity_id = ?", models.ActionAccessCode, property.ID).
		Count(&verifications).Error)
	assert.Equal(t, int64(1), verifications)
}

func TestHiddenUntilPublished(t *testing.T) {
	s := newServer(t)
	property := testutil.Property(testutil.Agent.ID, models.StatusPending)
	testutil.Create(t, s.store, property)

	status, body := s.do(t, http.MethodGet, "/api/properties/"+property.ID, "client", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(access.ReasonNotPublished), body["reason"])
	assert.NotContains(t, body, "stub")

	status, _ = s.do(t, http.MethodGet, "/api/properties/"+property.ID, "agent", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/api/demands/"+property.ID, "client", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["type"])
}

func TestDemandFanOut(t *testing.T) {
	s := newServer(t)

	status, body := s.do(t, http.MethodPost, "/api/demands", "client", map[string]interface{}{
		"title":             "Flat or house",
		"transaction_types": "sale",
		"property_types":    []string{"flat", "house"},
		"cities":            "Praha",
		"price_max":         5000000,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Len(t, body["demands"], 2)

	status, body = s.do(t, http.MethodPost, "/api/demands", "client", map[string]interface{}{
		"title":          "Nothing",
		"property_types": []string{"flat"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "validation", body["type"])
}

func TestMatchesOverHTTP(t *testing.T) {
	s := newServer(t)
	property := testutil.Property(testutil.Agent.ID, models.StatusActive)
	demand := testutil.Demand(testutil.Client.ID, models.StatusActive)
	testutil.Create(t, s.store, property, demand)

	ref := map[string]interface{}{"entity_type": "property", "entity_id": property.ID}
	status, _ := s.do(t, http.MethodPost, "/api/matches/compute", "agent", ref)
	require.Equal(t, http.StatusForbidden, status)

	status, body := s.do(t, http.MethodPost, "/api/matches/compute", "admin", ref)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["notified"])

	status, body = s.do(t, http.MethodGet, "/api/matches", "client", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["items"], 1)
	match := body["items"].([]interface{})[0].(map[string]interface{})
	matchID := match["id"].(string)
	assert.Equal(t, float64(100), match["match_score"])

	status, _ = s.do(t, http.MethodGet, "/api/matches", "agent2", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPatch, "/api/matches/"+matchID, "agent2", map[string]interface{}{"status": "viewed"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPatch, "/api/matches/"+matchID, "client", map[string]interface{}{"status": "opened"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = s.do(t, http.MethodPatch, "/api/matches/"+matchID, "client", map[string]interface{}{"status": "viewed"})
	require.Equal(t, http.StatusOK, status)
	stored, err := s.store.FindMatch(context.Background(), matchID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchViewed, stored.Status)

	status, body = s.do(t, http.MethodGet, "/api/notifications?unread=true", "client", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["items"], 1)
	notificationID := body["items"].([]interface{})[0].(map[string]interface{})["id"].(string)

	status, _ = s.do(t, http.MethodPost, "/api/notifications/"+notificationID+"/read", "client", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/api/notifications?unread=1", "client", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 0)
}

func TestPreferences(t *testing.T) {
	s := newServer(t)

	status, body := s.do(t, http.MethodPut, "/api/me/preferences", "client", map[string]interface{}{
		"notify_matches": true, "min_match_score": 150,
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "validation", body["type"])

	status, body = s.do(t, http.MethodPut, "/api/me/preferences", "client", map[string]interface{}{
		"notify_matches": true, "min_match_score": 85,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(85), body["min_match_score"])

	status, body = s.do(t, http.MethodGet, "/api/me", "client", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, testutil.Client.Email, body["email"])
	assert.Equal(t, true, body["notify_matches"])
}

func TestDeclarationOverHTTP(t *testing.T) {
	s := newServer(t)

	status, _ := s.do(t, http.MethodPost, "/api/declarations/request", "client", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := s.do(t, http.MethodGet, "/api/declarations/status", "agent", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["verified"])

	status, _ = s.do(t, http.MethodPost, "/api/declarations/request", "agent", nil)
	require.Equal(t, http.StatusCreated, status)

	var declaration models.AgentDeclaration
	require.NoError(t, s.store.DB(context.Background()).Where("user_id = ?", testutil.Agent.ID).First(&declaration).Error)

	status, _ = s.do(t, http.MethodPost, "/api/declarations/verify", "agent", map[string]interface{}{"code": declaration.Code})
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/api/declarations/status", "agent", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["verified"])
}

func TestHealthUnreachableAuthorizer(t *testing.T) {
	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)
	cfg := &config.Config{DBType: "sqlite", DBDatabase: ":memory:", AuthzURL: "http://127.0.0.1:1"}

	app := fiber.New()
	app.Get("/health", Health(cfg, testutil.NewDB(t), log))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "ok", result["database"])
	assert.Equal(t, "unreachable", result["authorizer"])
	assert.NotContains(t, result, "messaging")
}
