package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursekeep-go/internal/middleware"
	"github.com/noah-isme/coursekeep-go/internal/service"
	"github.com/noah-isme/coursekeep-go/internal/storage"
	"github.com/noah-isme/coursekeep-go/internal/utils"
)

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseQueryBool(c *fiber.Ctx, key string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && parsed
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := middleware.RequestLogger(base, c)
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) []fieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]fieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		details = append(details, fieldError{Field: fe.Namespace(), Rule: fe.Tag()})
	}
	return details
}

// statusFor maps service and storage errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case isValidationError(err),
		errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidOrder),
		errors.Is(err, service.ErrInvalidThumbnail),
		errors.Is(err, service.ErrInvalidBackupKey),
		errors.Is(err, service.ErrInvalidProgressBundle):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrCourseNotFound),
		errors.Is(err, service.ErrSectionNotFound),
		errors.Is(err, service.ErrLessonNotFound),
		errors.Is(err, service.ErrBackupNotFound),
		errors.Is(err, service.ErrDraftNotFound),
		errors.Is(err, storage.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, storage.ErrQuotaExceeded):
		return fiber.StatusInsufficientStorage
	case errors.Is(err, storage.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// sendServiceError answers with the mapped status. Storage failures carry a generic message;
// internal errors are logged and never echoed.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, action string) error {
	status := statusFor(err)
	switch status {
	case fiber.StatusBadRequest:
		if details := validationDetails(err); details != nil {
			return utils.Fail(c, status, "validation failed", details)
		}
		return utils.SendError(c, status, err.Error())
	case fiber.StatusNotFound:
		return utils.SendError(c, status, err.Error())
	case fiber.StatusInsufficientStorage:
		requestLogger(logger, c).Warn().Err(err).Msg(action + ": storage quota exceeded")
		return utils.SendError(c, status, "could not save: storage quota exceeded")
	case fiber.StatusServiceUnavailable:
		requestLogger(logger, c).Warn().Err(err).Msg(action + ": storage unavailable")
		return utils.SendError(c, status, "could not save: storage unavailable")
	default:
		requestLogger(logger, c).Error().Err(err).Msg(action)
		return utils.SendError(c, status, "failed to "+action)
	}
}
