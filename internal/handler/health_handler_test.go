package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursekeep-go/internal/config"
	"github.com/noah-isme/coursekeep-go/internal/handler"
	"github.com/noah-isme/coursekeep-go/internal/storage"
)

func healthStatus(t *testing.T, store handler.StorageHealth) handler.HealthResponse {
	t.Helper()
	app := fiber.New()
	app.Get("/health", handler.HealthCheck(config.Config{AppName: "CourseKeep API", StorageDriver: config.DriverMemory}, store))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	var payload handler.HealthResponse
	decodeData(t, env, &payload)
	return payload
}

func TestHealthCheckReportsStorageState(t *testing.T) {
	healthy, err := storage.NewStore(storage.NewMemory(), zerolog.Nop())
	require.NoError(t, err)
	payload := healthStatus(t, healthy)
	require.Equal(t, "ok", payload.Status)
	require.True(t, payload.StorageHealthy)

	degraded, err := storage.NewStore(nil, zerolog.Nop())
	require.NoError(t, err)
	payload = healthStatus(t, degraded)
	require.Equal(t, "degraded", payload.Status)
	require.False(t, payload.StorageHealthy)
}
