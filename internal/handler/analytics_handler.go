package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursekeep-go/internal/service"
	"github.com/noah-isme/coursekeep-go/internal/utils"
)

// AnalyticsHandler exposes the catalog analytics summary and its chart view.
type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  zerolog.Logger
}

// NewAnalyticsHandler constructs an analytics handler.
func NewAnalyticsHandler(svc service.AnalyticsService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: svc,
		logger:  logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// Register wires analytics routes.
func (h *AnalyticsHandler) Register(router fiber.Router) {
	router.Get("/", h.summary)
}

func (h *AnalyticsHandler) summary(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if strings.EqualFold(c.Query("view"), "display") {
		view, err := h.service.GetDisplay(ctx)
		if err != nil {
			return sendServiceError(c, h.logger, err, "build analytics view")
		}
		return utils.SendSuccess(c, "analytics retrieved", view)
	}

	summary, err := h.service.GetSummary(ctx)
	if err != nil {
		return sendServiceError(c, h.logger, err, "compute analytics")
	}
	return utils.SendSuccess(c, "analytics retrieved", summary)
}
