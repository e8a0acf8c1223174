package services

import (
	"context"
	"net"
	"testing"

	"github.com/localnerve/propmarket/internal/config"
	"github.com/localnerve/propmarket/internal/testutil"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleFrom(t *testing.T) {
	assert.Equal(t, types.RoleClient, RoleFrom(nil))
	assert.Equal(t, types.RoleClient, RoleFrom([]string{"user"}))
	assert.Equal(t, types.RoleAgent, RoleFrom([]string{"user", "Agent"}))
	assert.Equal(t, types.RoleAdmin, RoleFrom([]string{"agent", "admin"}))
}

func TestSessionUserActor(t *testing.T) {
	given, family := "Jana", "Novak"
	u := sessionUser{ID: "u1", Email: "jana@example.com", GivenName: &given, FamilyName: &family, Roles: []string{"agent"}}
	assert.Equal(t, types.Actor{ID: "u1", Email: "jana@example.com", Name: "Jana Novak", Role: types.RoleAgent}, u.actor())

	nick := "jn"
	u = sessionUser{ID: "u2", Nickname: &nick}
	assert.Equal(t, "jn", u.actor().Name)
	assert.Equal(t, types.RoleClient, u.actor().Role)
}

func TestValidateSessionUnreachable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	a := NewAuthorizer(&config.Config{AuthzURL: "http://127.0.0.1:1", AuthzClientID: "id"}, logrus.NewEntry(logger))

	_, err := a.ValidateSession("cookie", "http://localhost")
	assert.ErrorContains(t, err, "authorizer ping failed")
	assert.False(t, a.IsInitialized())
}

func TestHealthCheck(t *testing.T) {
	db := testutil.NewDB(t)
	logger, hook := test.NewNullLogger()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := &config.Config{DBType: "sqlite", DBDatabase: ":memory:", AuthzURL: "http://" + ln.Addr().String()}
	result := HealthCheck(context.Background(), cfg, db, logrus.NewEntry(logger))
	assert.Equal(t, "healthy", result.Status)
	assert.Equal(t, "ok", result.Database)
	assert.Equal(t, "ok", result.Authorizer)
	assert.Empty(t, result.Messaging)

	cfg.NATSURL = "nats://127.0.0.1:1"
	result = HealthCheck(context.Background(), cfg, db, logrus.NewEntry(logger))
	assert.Equal(t, "unhealthy", result.Status)
	assert.Equal(t, "unreachable", result.Messaging)
	assert.Contains(t, result.ErrorMessage, "NATS ping failed")
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
