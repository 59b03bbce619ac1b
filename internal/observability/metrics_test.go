package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	StorageOperations().WithLabelValues("save", "ok").Inc()
	Migrations().WithLabelValues("success").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "coursekeep_storage_operations_total")
	require.Contains(t, string(body), "coursekeep_migrations_total")
}

func TestTracerIsUsable(t *testing.T) {
	require.NotNil(t, Tracer("migration"))
}
