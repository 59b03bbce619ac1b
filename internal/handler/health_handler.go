package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/coursekeep-go/internal/config"
	"github.com/noah-isme/coursekeep-go/internal/utils"
)

// StorageHealth reports whether the store has fallen back to in-memory operation.
type StorageHealth interface {
	Degraded() bool
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Service        string    `json:"service"`
	Environment    string    `json:"environment"`
	StorageDriver  string    `json:"storageDriver"`
	StorageHealthy bool      `json:"storageHealthy"`
}

// HealthCheck returns a handler that reports application health information.
// A degraded store still answers 200 with status "degraded"; writes are kept in memory only.
func HealthCheck(cfg config.Config, store StorageHealth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:         "ok",
			Timestamp:      time.Now().UTC(),
			Service:        cfg.AppName,
			Environment:    cfg.AppEnv,
			StorageDriver:  cfg.StorageDriver,
			StorageHealthy: true,
		}

		if store != nil && store.Degraded() {
			payload.Status = "degraded"
			payload.StorageHealthy = false
			return utils.SendSuccess(c, "storage unavailable, changes are not persisted", payload)
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
