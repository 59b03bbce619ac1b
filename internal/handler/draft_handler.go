package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursekeep-go/internal/models"
	"github.com/noah-isme/coursekeep-go/internal/service"
	"github.com/noah-isme/coursekeep-go/internal/storage"
	"github.com/noah-isme/coursekeep-go/internal/utils"
)

// DraftHandler exposes authoring drafts. The :key parameter is a course id, "new", or a full draft key.
type DraftHandler struct {
	drafts    service.DraftService
	autosaver *service.Autosaver
	logger    zerolog.Logger
}

// NewDraftHandler constructs a draft handler. autosaver may be nil, in which case PATCH saves immediately.
func NewDraftHandler(drafts service.DraftService, autosaver *service.Autosaver, logger zerolog.Logger) *DraftHandler {
	return &DraftHandler{
		drafts:    drafts,
		autosaver: autosaver,
		logger:    logger.With().Str("component", "draft_handler").Logger(),
	}
}

// Register wires draft routes.
func (h *DraftHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/:key", h.get)
	router.Put("/:key", h.save)
	router.Patch("/:key", h.track)
	router.Delete("/:key", h.discard)
}

func draftCourseID(c *fiber.Ctx) string {
	key := strings.TrimSpace(c.Params("key"))
	return strings.TrimPrefix(key, storage.PrefixDraft)
}

func (h *DraftHandler) list(c *fiber.Ctx) error {
	drafts, err := h.drafts.ListDrafts(c.UserContext())
	if err != nil {
		return sendServiceError(c, h.logger, err, "list drafts")
	}
	return utils.SendSuccess(c, "drafts retrieved", drafts)
}

func (h *DraftHandler) get(c *fiber.Ctx) error {
	draft, err := h.drafts.LoadDraft(c.UserContext(), draftCourseID(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "load draft")
	}
	return utils.SendSuccess(c, "draft retrieved", draft)
}

func (h *DraftHandler) save(c *fiber.Ctx) error {
	var course models.Course
	if err := c.BodyParser(&course); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	draft, err := h.drafts.SaveDraft(c.UserContext(), draftCourseID(c), course)
	if err != nil {
		return sendServiceError(c, h.logger, err, "save draft")
	}
	return utils.SendSuccess(c, "draft saved", draft)
}

func (h *DraftHandler) track(c *fiber.Ctx) error {
	var course models.Course
	if err := c.BodyParser(&course); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	courseID := draftCourseID(c)
	if h.autosaver == nil {
		return h.save(c)
	}
	h.autosaver.Track(courseID, course)
	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "draft scheduled for autosave", fiber.Map{
		"key": storage.DraftKey(courseID),
	})
}

func (h *DraftHandler) discard(c *fiber.Ctx) error {
	courseID := draftCourseID(c)
	if h.autosaver != nil {
		h.autosaver.Forget(courseID)
	}
	if err := h.drafts.DiscardDraft(c.UserContext(), courseID); err != nil {
		return sendServiceError(c, h.logger, err, "discard draft")
	}
	return utils.SendSuccess(c, "draft discarded", nil)
}
