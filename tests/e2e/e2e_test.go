// e2e_test.go
//
// Real-estate marketplace service: listings, demands, entitlements and matching
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of propmarket.
// propmarket is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// propmarket is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with propmarket.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package e2e_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/localnerve/propmarket/internal/config"
	"github.com/localnerve/propmarket/internal/database"
	"github.com/localnerve/propmarket/internal/services"
	"github.com/localnerve/propmarket/tests/helpers"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2EWithFullStack runs the built service against MariaDB and Authorizer
func TestE2EWithFullStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	ctx := context.Background()
	tc, err := helpers.CreateAllTestContainers(t)
	require.NoError(t, err, "Failed to start test containers")
	defer tc.Terminate(t)

	host, err := tc.ServiceContainer.Host(ctx)
	require.NoError(t, err)
	port, err := tc.ServiceContainer.MappedPort(ctx, "3000")
	require.NoError(t, err)
	baseURL := fmt.Sprintf("http://%s:%s", host, port.Port())

	t.Run("HealthCheck", func(t *testing.T) {
		testHealthCheck(t, tc)
	})

	t.Run("PrometheusMetrics", func(t *testing.T) {
		status, body := helpers.Get(t, baseURL+"/metrics", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, strings.Contains(string(body), "propmarket_"), "expected service metrics")
	})

	t.Run("SwaggerUI", func(t *testing.T) {
		status, _ := helpers.Get(t, baseURL+"/swagger/index.html", nil)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("APIRequiresSession", func(t *testing.T) {
		status, body := helpers.GetJSON(t, baseURL+"/api/me", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "authorization", body["type"])
		assert.Equal(t, false, body["ok"])
	})

	t.Run("UnsupportedVersion", func(t *testing.T) {
		status, body := helpers.GetJSON(t, baseURL+"/api/matches", map[string]string{"X-Api-Version": "2.0.0"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "version", body["type"])
	})

	t.Run("UnknownRoute", func(t *testing.T) {
		status, body := helpers.GetJSON(t, baseURL+"/nowhere", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "not_found", body["type"])
	})
}

// testHealthCheck runs the health check from the host against the mapped ports
func testHealthCheck(t *testing.T, tc *helpers.TestContainers) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)

	authzHost, err := tc.AuthorizerContainer.Host(ctx)
	require.NoError(t, err)
	authzPort, err := tc.AuthorizerContainer.MappedPort(ctx, "8080")
	require.NoError(t, err)

	cfg := &config.Config{
		DBType:            "mysql",
		DBHost:            tc.DBHost,
		DBPort:            tc.DBPort,
		DBDatabase:        "propmarket",
		DBUser:            "propmarket",
		DBPassword:        "propmarket",
		DBConnectionLimit: 2,
		AuthzURL:          fmt.Sprintf("http://%s:%s", authzHost, authzPort.Port()),
	}
	db, err := database.Connect(cfg, log)
	require.NoError(t, err)
	defer database.Close(db)

	result := services.HealthCheck(ctx, cfg, db, log)
	assert.Equal(t, "healthy", result.Status, "%+v", result)
	assert.Equal(t, "ok", result.Database)
	assert.Equal(t, "ok", result.Authorizer)
}
