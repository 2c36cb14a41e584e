package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/aalto-grades/aalto-grades-sub002/internal/dto"
	"github.com/aalto-grades/aalto-grades-sub002/internal/service"
	"github.com/aalto-grades/aalto-grades-sub002/internal/utils"
)

// FinalGradeHandler wires final grade calculation and reporting endpoints.
type FinalGradeHandler struct {
	service   service.FinalGradeService
	summaries service.GradeSummaryService
	logger    zerolog.Logger
}

// NewFinalGradeHandler constructs the handler.
func NewFinalGradeHandler(service service.FinalGradeService, summaries service.GradeSummaryService, logger zerolog.Logger) *FinalGradeHandler {
	return &FinalGradeHandler{
		service:   service,
		summaries: summaries,
		logger:    logger.With().Str("component", "final_grade_handler").Logger(),
	}
}

// Register attaches final grade endpoints to a course-scoped router group.
func (h *FinalGradeHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/summary", h.summary)
	router.Post("/calculate", h.calculate)
}

func (h *FinalGradeHandler) list(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	userID, err := parseUintQuery(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var grades []dto.FinalGradeResponse
	if userID != 0 {
		grades, err = h.service.ListForUser(c.Context(), courseID, userID)
	} else {
		grades, err = h.service.ListByCourse(c.Context(), courseID)
	}
	if err != nil {
		h.logger.Error().Err(err).Uint("course_id", courseID).Msg("failed to list final grades")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list final grades")
	}
	return utils.SendSuccess(c, "final grades retrieved", grades)
}

func (h *FinalGradeHandler) calculate(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.CalculateFinalGradesRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Calculate(c.Context(), courseID, payload, userIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGradingModelNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "grading model not found")
		case errors.Is(err, service.ErrEngineFault):
			h.logger.Error().Err(err).Uint("course_id", courseID).Msg("grading engine fault")
			return utils.SendError(c, fiber.StatusInternalServerError, "grading engine fault")
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Uint("course_id", courseID).Msg("failed to calculate final grades")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to calculate final grades")
		}
	}

	h.summaries.InvalidateCourse(c.Context(), courseID)
	return utils.SendSuccess(c, "final grades calculated", result)
}

func (h *FinalGradeHandler) summary(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	summary, err := h.summaries.CourseSummary(c.Context(), courseID)
	if err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "course not found")
		}
		h.logger.Error().Err(err).Uint("course_id", courseID).Msg("failed to build grade summary")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to build grade summary")
	}
	return utils.SendSuccess(c, "grade summary retrieved", summary)
}
