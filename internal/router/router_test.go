package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursekeep-go/internal/config"
	"github.com/noah-isme/coursekeep-go/internal/router"
	"github.com/noah-isme/coursekeep-go/internal/storage"
)

func TestRegisterServesHealthAndMetrics(t *testing.T) {
	store, err := storage.NewStore(storage.NewMemory(), zerolog.Nop())
	require.NoError(t, err)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "CourseKeep API"}, router.Dependencies{Storage: store})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "CourseKeep API", resp.Header.Get("X-Application"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "routes without a handler stay unregistered")
}
