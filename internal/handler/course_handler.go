package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursekeep-go/internal/dto"
	"github.com/noah-isme/coursekeep-go/internal/models"
	"github.com/noah-isme/coursekeep-go/internal/service"
	"github.com/noah-isme/coursekeep-go/internal/utils"
)

// CourseHandler exposes catalog CRUD plus section and lesson structure endpoints.
type CourseHandler struct {
	catalog  service.CatalogService
	progress service.ProgressService
	logger   zerolog.Logger
}

// NewCourseHandler constructs a course handler.
func NewCourseHandler(catalog service.CatalogService, progress service.ProgressService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		catalog:  catalog,
		progress: progress,
		logger:   logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register wires course routes.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Put("/", h.replace)
	router.Delete("/", h.clear)

	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.remove)
	router.Get("/:id/progress", h.courseProgress)
	router.Post("/:id/bookmark", h.toggleBookmark)

	router.Post("/:id/sections", h.addSection)
	router.Put("/:id/sections/order", h.reorderSections)
	router.Put("/:id/sections/:sectionId", h.updateSection)
	router.Delete("/:id/sections/:sectionId", h.deleteSection)

	router.Post("/:id/sections/:sectionId/lessons", h.addLesson)
	router.Put("/:id/sections/:sectionId/lessons/order", h.reorderLessons)
	router.Put("/:id/sections/:sectionId/lessons/:lessonId", h.updateLesson)
	router.Delete("/:id/sections/:sectionId/lessons/:lessonId", h.deleteLesson)
}

func (h *CourseHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	result, err := h.catalog.List(c.UserContext(), dto.CourseListRequest{
		Search:         c.Query("search"),
		Category:       c.Query("category"),
		Difficulty:     c.Query("difficulty"),
		Status:         c.Query("status"),
		Sort:           c.Query("sort"),
		BookmarkedOnly: parseQueryBool(c, "bookmarked"),
		Page:           page,
		PageSize:       pageSize,
	})
	if err != nil {
		return sendServiceError(c, h.logger, err, "list courses")
	}

	meta := fiber.Map{
		"pagination": result.Pagination,
		"filters":    result.Filters,
	}
	return utils.OK(c, result.Items, "courses retrieved", meta)
}

func (h *CourseHandler) get(c *fiber.Ctx) error {
	course, err := h.catalog.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "load course")
	}
	return utils.SendSuccess(c, "course retrieved", course)
}

func (h *CourseHandler) create(c *fiber.Ctx) error {
	var req dto.CourseRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.catalog.Create(c.UserContext(), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "create course")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "course created", course)
}

func (h *CourseHandler) update(c *fiber.Ctx) error {
	var req dto.CourseRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.catalog.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "update course")
	}
	return utils.SendSuccess(c, "course updated", course)
}

func (h *CourseHandler) remove(c *fiber.Ctx) error {
	if err := h.catalog.Delete(c.UserContext(), c.Params("id")); err != nil {
		return sendServiceError(c, h.logger, err, "delete course")
	}
	return utils.SendSuccess(c, "course deleted", nil)
}

func (h *CourseHandler) replace(c *fiber.Ctx) error {
	var courses []models.Course
	if err := c.BodyParser(&courses); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "request body must be a course array")
	}

	replaced, err := h.catalog.Replace(c.UserContext(), courses)
	if err != nil {
		return sendServiceError(c, h.logger, err, "replace courses")
	}
	return utils.SendSuccess(c, "courses replaced", replaced)
}

func (h *CourseHandler) clear(c *fiber.Ctx) error {
	if err := h.catalog.Clear(c.UserContext()); err != nil {
		return sendServiceError(c, h.logger, err, "clear courses")
	}
	return utils.SendSuccess(c, "courses cleared", nil)
}

func (h *CourseHandler) courseProgress(c *fiber.Ctx) error {
	ctx := c.UserContext()
	course, err := h.catalog.Get(ctx, c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "load course")
	}

	return utils.SendSuccess(c, "course progress retrieved", dto.CourseProgressResponse{
		CourseID:       course.ID,
		Bookmarked:     h.progress.IsCourseBookmarked(ctx, course.ID),
		CourseProgress: h.progress.CalculateCourseProgress(ctx, course),
	})
}

func (h *CourseHandler) toggleBookmark(c *fiber.Ctx) error {
	ctx := c.UserContext()
	courseID := c.Params("id")
	if _, err := h.catalog.Get(ctx, courseID); err != nil {
		return sendServiceError(c, h.logger, err, "load course")
	}

	bookmarked, err := h.progress.ToggleCourseBookmark(ctx, courseID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "toggle bookmark")
	}
	return utils.SendSuccess(c, "bookmark toggled", dto.BookmarkToggleResponse{CourseID: courseID, Bookmarked: bookmarked})
}

func (h *CourseHandler) addSection(c *fiber.Ctx) error {
	var req dto.SectionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.catalog.AddSection(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "add section")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "section added", course)
}

func (h *CourseHandler) updateSection(c *fiber.Ctx) error {
	var req dto.SectionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.catalog.UpdateSection(c.UserContext(), c.Params("id"), c.Params("sectionId"), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "update section")
	}
	return utils.SendSuccess(c, "section updated", course)
}

func (h *CourseHandler) deleteSection(c *fiber.Ctx) error {
	course, err := h.catalog.DeleteSection(c.UserContext(), c.Params("id"), c.Params("sectionId"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "delete section")
	}
	return utils.SendSuccess(c, "section deleted", course)
}

func (h *CourseHandler) reorderSections(c *fiber.Ctx) error {
	var req dto.ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.catalog.ReorderSections(c.UserContext(), c.Params("id"), req.IDs)
	if err != nil {
		return sendServiceError(c, h.logger, err, "reorder sections")
	}
	return utils.SendSuccess(c, "sections reordered", course)
}

func (h *CourseHandler) addLesson(c *fiber.Ctx) error {
	var req dto.LessonRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.catalog.AddLesson(c.UserContext(), c.Params("id"), c.Params("sectionId"), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "add lesson")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "lesson added", course)
}

func (h *CourseHandler) updateLesson(c *fiber.Ctx) error {
	var req dto.LessonRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.catalog.UpdateLesson(c.UserContext(), c.Params("id"), c.Params("sectionId"), c.Params("lessonId"), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "update lesson")
	}
	return utils.SendSuccess(c, "lesson updated", course)
}

func (h *CourseHandler) deleteLesson(c *fiber.Ctx) error {
	course, err := h.catalog.DeleteLesson(c.UserContext(), c.Params("id"), c.Params("sectionId"), c.Params("lessonId"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "delete lesson")
	}
	return utils.SendSuccess(c, "lesson deleted", course)
}

func (h *CourseHandler) reorderLessons(c *fiber.Ctx) error {
	var req dto.ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.catalog.ReorderLessons(c.UserContext(), c.Params("id"), c.Params("sectionId"), req.IDs)
	if err != nil {
		return sendServiceError(c, h.logger, err, "reorder lessons")
	}
	return utils.SendSuccess(c, "lessons reordered", course)
}
