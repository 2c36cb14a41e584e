package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/aalto-grades/aalto-grades-sub002/internal/dto"
	"github.com/aalto-grades/aalto-grades-sub002/internal/service"
	"github.com/aalto-grades/aalto-grades-sub002/internal/utils"
)

// CourseTaskHandler wires grade source endpoints.
type CourseTaskHandler struct {
	service service.CourseTaskService
	logger  zerolog.Logger
}

// NewCourseTaskHandler constructs the handler.
func NewCourseTaskHandler(service service.CourseTaskService, logger zerolog.Logger) *CourseTaskHandler {
	return &CourseTaskHandler{
		service: service,
		logger:  logger.With().Str("component", "course_task_handler").Logger(),
	}
}

// Register attaches course task endpoints to a course-scoped router group.
func (h *CourseTaskHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Patch("/:taskId", h.update)
	router.Delete("/:taskId", h.delete)
}

func (h *CourseTaskHandler) list(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	tasks, err := h.service.List(c.Context(), courseID)
	if err != nil {
		return h.mapError(c, err, "failed to list course tasks")
	}
	return utils.SendSuccess(c, "course tasks retrieved", tasks)
}

func (h *CourseTaskHandler) create(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.CourseTaskCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	task, err := h.service.Create(c.Context(), courseID, payload)
	if err != nil {
		return h.mapError(c, err, "failed to create course task")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "course task created", task)
}

func (h *CourseTaskHandler) update(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	taskID, err := parseUintParam(c, "taskId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.CourseTaskUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	task, err := h.service.Update(c.Context(), courseID, taskID, payload)
	if err != nil {
		return h.mapError(c, err, "failed to update course task")
	}
	return utils.SendSuccess(c, "course task updated", task)
}

func (h *CourseTaskHandler) delete(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	taskID, err := parseUintParam(c, "taskId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(c.Context(), courseID, taskID); err != nil {
		return h.mapError(c, err, "failed to delete course task")
	}
	return utils.SendSuccess(c, "course task deleted", nil)
}

func (h *CourseTaskHandler) mapError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrCourseTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course task not found")
	case errors.Is(err, service.ErrInvalidGradeDate):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
