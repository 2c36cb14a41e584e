package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/aalto-grades/aalto-grades-sub002/internal/dto"
	"github.com/aalto-grades/aalto-grades-sub002/internal/service"
	"github.com/aalto-grades/aalto-grades-sub002/internal/utils"
)

// TaskGradeHandler wires raw task grade endpoints.
type TaskGradeHandler struct {
	service service.TaskGradeService
	logger  zerolog.Logger
}

// NewTaskGradeHandler constructs the handler.
func NewTaskGradeHandler(service service.TaskGradeService, logger zerolog.Logger) *TaskGradeHandler {
	return &TaskGradeHandler{
		service: service,
		logger:  logger.With().Str("component", "task_grade_handler").Logger(),
	}
}

// Register attaches task grade endpoints to a course-scoped router group.
// The import route is registered separately so the router can rate limit it.
func (h *TaskGradeHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Delete("/:gradeId", h.delete)
}

// RegisterImport attaches the CSV upload endpoint.
func (h *TaskGradeHandler) RegisterImport(router fiber.Router) {
	router.Post("/import", h.importCSV)
}

func (h *TaskGradeHandler) list(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	userID, err := parseUintQuery(c, "userId")
	if err != nil || userID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "userId query parameter required")
	}

	grades, err := h.service.ListForUser(c.Context(), courseID, userID)
	if err != nil {
		h.logger.Error().Err(err).Uint("course_id", courseID).Msg("failed to list task grades")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list task grades")
	}
	return utils.SendSuccess(c, "task grades retrieved", grades)
}

func (h *TaskGradeHandler) create(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.TaskGradeCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	grade, err := h.service.Create(c.Context(), courseID, payload, userIDFromContext(c))
	if err != nil {
		return h.mapError(c, err, "failed to record task grade")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "task grade recorded", grade)
}

func (h *TaskGradeHandler) delete(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	gradeID, err := parseUintParam(c, "gradeId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(c.Context(), courseID, gradeID); err != nil {
		return h.mapError(c, err, "failed to delete task grade")
	}
	return utils.SendSuccess(c, "task grade deleted", nil)
}

func (h *TaskGradeHandler) importCSV(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file upload required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read upload")
	}
	defer file.Close()

	report, err := h.service.ImportCSV(c.Context(), courseID, file, userIDFromContext(c))
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedImportFormat) {
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
		}
		h.logger.Error().Err(err).Uint("course_id", courseID).Msg("grade import failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "grade import failed")
	}
	return utils.SendSuccess(c, "grades imported", report)
}

func (h *TaskGradeHandler) mapError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrCourseTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course task not found")
	case errors.Is(err, service.ErrTaskGradeNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task grade not found")
	case errors.Is(err, service.ErrGradeExceedsMax),
		errors.Is(err, service.ErrInvalidGradeDate):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
