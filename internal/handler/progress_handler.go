package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursekeep-go/internal/dto"
	"github.com/noah-isme/coursekeep-go/internal/models"
	"github.com/noah-isme/coursekeep-go/internal/service"
	"github.com/noah-isme/coursekeep-go/internal/utils"
)

// ProgressHandler exposes the learner's progress ledger.
type ProgressHandler struct {
	progress service.ProgressService
	logger   zerolog.Logger
}

// NewProgressHandler constructs a progress handler.
func NewProgressHandler(progress service.ProgressService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		progress: progress,
		logger:   logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register wires progress routes.
func (h *ProgressHandler) Register(router fiber.Router) {
	router.Get("/", h.overview)
	router.Delete("/", h.reset)
	router.Post("/lessons/:lessonId/toggle", h.toggleLesson)
	router.Get("/bookmarks", h.bookmarks)
	router.Get("/streak", h.streak)
	router.Post("/streak", h.touchStreak)
	router.Get("/export", h.export)
	router.Post("/import", h.importBundle)
}

func (h *ProgressHandler) overview(c *fiber.Ctx) error {
	ctx := c.UserContext()
	return utils.SendSuccess(c, "progress retrieved", fiber.Map{
		"completedLessons": h.progress.CompletedLessonIDs(ctx),
		"bookmarks":        h.progress.Bookmarks(ctx),
		"streak":           h.progress.Streak(ctx),
	})
}

func (h *ProgressHandler) toggleLesson(c *fiber.Ctx) error {
	lessonID := strings.TrimSpace(c.Params("lessonId"))

	var req dto.LessonToggleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	completed, err := h.progress.ToggleLessonCompletion(c.UserContext(), lessonID, req.Metadata)
	if err != nil {
		return sendServiceError(c, h.logger, err, "toggle lesson")
	}
	return utils.SendSuccess(c, "lesson toggled", dto.LessonToggleResponse{LessonID: lessonID, Completed: completed})
}

func (h *ProgressHandler) bookmarks(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "bookmarks retrieved", h.progress.Bookmarks(c.UserContext()))
}

func (h *ProgressHandler) streak(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "streak retrieved", h.progress.Streak(c.UserContext()))
}

func (h *ProgressHandler) touchStreak(c *fiber.Ctx) error {
	streak, err := h.progress.UpdateLearningStreak(c.UserContext())
	if err != nil {
		return sendServiceError(c, h.logger, err, "update streak")
	}
	return utils.SendSuccess(c, "streak updated", streak)
}

func (h *ProgressHandler) export(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "progress exported", h.progress.ExportProgressData(c.UserContext()))
}

func (h *ProgressHandler) importBundle(c *fiber.Ctx) error {
	var bundle models.ProgressBundle
	if err := c.BodyParser(&bundle); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid progress bundle")
	}

	if err := h.progress.ImportProgressData(c.UserContext(), bundle); err != nil {
		return sendServiceError(c, h.logger, err, "import progress")
	}
	return utils.SendSuccess(c, "progress imported", h.progress.ExportProgressData(c.UserContext()))
}

func (h *ProgressHandler) reset(c *fiber.Ctx) error {
	if err := h.progress.ResetProgress(c.UserContext()); err != nil {
		return sendServiceError(c, h.logger, err, "reset progress")
	}
	return utils.SendSuccess(c, "progress reset", nil)
}
