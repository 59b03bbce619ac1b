package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursekeep-go/internal/dto"
	"github.com/noah-isme/coursekeep-go/internal/middleware"
	"github.com/noah-isme/coursekeep-go/internal/service"
	"github.com/noah-isme/coursekeep-go/internal/utils"
)

// MigrationHandler exposes migration status, manual runs and backup management.
type MigrationHandler struct {
	migration service.MigrationService
	catalog   service.CatalogService
	logger    zerolog.Logger
}

// NewMigrationHandler constructs a migration handler. The catalog is reloaded after data is rewritten.
func NewMigrationHandler(migration service.MigrationService, catalog service.CatalogService, logger zerolog.Logger) *MigrationHandler {
	return &MigrationHandler{
		migration: migration,
		catalog:   catalog,
		logger:    logger.With().Str("component", "migration_handler").Logger(),
	}
}

// Register wires migration routes. Rewriting routes are rate limited.
func (h *MigrationHandler) Register(router fiber.Router) {
	limited := middleware.RateLimit("migration", 5, time.Minute)

	router.Get("/", h.status)
	router.Post("/run", limited, h.run)
	router.Get("/backups", h.listBackups)
	router.Delete("/backups", h.cleanupBackups)
	router.Post("/backups/:key/restore", limited, h.restore)
}

func (h *MigrationHandler) status(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "migration status retrieved", h.migration.Status(c.UserContext()))
}

// run performs the auto migration, or an unconditional one when force=true. backup=false skips the snapshot.
func (h *MigrationHandler) run(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var result dto.MigrationResult
	if parseQueryBool(c, "force") {
		backup := c.Query("backup") == "" || parseQueryBool(c, "backup")
		result = h.migration.MigrateExistingData(ctx, backup)
	} else {
		result = h.migration.RunAutoMigration(ctx)
	}

	if !result.Success {
		requestLogger(h.logger, c).Error().Str("reason", result.Message).Msg("migration failed")
		return utils.Fail(c, fiber.StatusInternalServerError, "migration failed", result)
	}

	if !result.Skipped {
		h.reloadCatalog(c)
	}
	return utils.SendSuccess(c, result.Message, result)
}

func (h *MigrationHandler) listBackups(c *fiber.Ctx) error {
	backups, err := h.migration.ListBackups(c.UserContext())
	if err != nil {
		return sendServiceError(c, h.logger, err, "list backups")
	}
	return utils.SendSuccess(c, "backups retrieved", backups)
}

func (h *MigrationHandler) cleanupBackups(c *fiber.Ctx) error {
	keep := service.DefaultKeepBackups
	if c.Query("keep") != "" {
		parsed, err := parseQueryInt(c, "keep")
		if err != nil || parsed < 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "keep must be a non-negative integer")
		}
		keep = parsed
	}

	removed, err := h.migration.CleanupOldBackups(c.UserContext(), keep)
	if err != nil {
		return sendServiceError(c, h.logger, err, "clean up backups")
	}
	return utils.SendSuccess(c, "backups cleaned up", dto.BackupCleanupResponse{Removed: removed, Kept: keep})
}

func (h *MigrationHandler) restore(c *fiber.Ctx) error {
	if err := h.migration.RestoreFromBackup(c.UserContext(), c.Params("key")); err != nil {
		return sendServiceError(c, h.logger, err, "restore backup")
	}
	h.reloadCatalog(c)
	return utils.SendSuccess(c, "courses restored from backup", h.migration.Status(c.UserContext()))
}

func (h *MigrationHandler) reloadCatalog(c *fiber.Ctx) {
	if h.catalog == nil {
		return
	}
	if err := h.catalog.Reload(c.UserContext()); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("catalog reload after migration failed")
	}
}
