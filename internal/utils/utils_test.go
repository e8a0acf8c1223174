package utils

import (
	"encoding/json"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingService(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	assert.NoError(t, PingService("http://"+ln.Addr().String(), time.Second))

	addr := ln.Addr().String()
	ln.Close()
	assert.Error(t, PingService("http://"+addr, 200*time.Millisecond))

	assert.Error(t, PingService("://bad", time.Second))
	assert.Error(t, PingService("nats://", time.Second))
}

func TestErrorResponse(t *testing.T) {
	app := fiber.New()
	app.Get("/thing", func(c *fiber.Ctx) error {
		return ErrorResponse(c, "nope", fiber.StatusConflict, "invalid_transition")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/thing?x=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var body ErrorResponseStruct
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "nope", body.Message)
	assert.Equal(t, "invalid_transition", body.Type)
	assert.Equal(t, "/thing?x=1", body.URL)
	assert.False(t, body.Ok)
}

func TestMutationSuccessResponse(t *testing.T) {
	app := fiber.New()
	app.Delete("/thing", func(c *fiber.Ctx) error {
		return MutationSuccessResponse(c, 1)
	})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/thing", nil))
	require.NoError(t, err)

	var body SuccessResponseStruct
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Ok)
	assert.Equal(t, int64(1), body.AffectedRows)
}
