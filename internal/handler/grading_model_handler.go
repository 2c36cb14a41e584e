package handler

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/aalto-grades/aalto-grades-sub002/internal/dto"
	"github.com/aalto-grades/aalto-grades-sub002/internal/service"
	"github.com/aalto-grades/aalto-grades-sub002/internal/utils"
)

// GradingModelHandler wires grading model endpoints.
type GradingModelHandler struct {
	service service.GradingModelService
	logger  zerolog.Logger
}

// NewGradingModelHandler constructs the handler.
func NewGradingModelHandler(service service.GradingModelService, logger zerolog.Logger) *GradingModelHandler {
	return &GradingModelHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_model_handler").Logger(),
	}
}

// Register attaches grading model endpoints to a course-scoped router group.
func (h *GradingModelHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Post("/validate", h.validate)
	router.Get("/:modelId", h.get)
	router.Put("/:modelId", h.update)
	router.Delete("/:modelId", h.delete)
}

func (h *GradingModelHandler) list(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	models, err := h.service.List(c.Context(), courseID)
	if err != nil {
		return h.mapError(c, err, "failed to list grading models")
	}
	return utils.SendSuccess(c, "grading models retrieved", models)
}

func (h *GradingModelHandler) get(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	modelID, err := parseUintParam(c, "modelId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	model, err := h.service.Get(c.Context(), courseID, modelID)
	if err != nil {
		return h.mapError(c, err, "failed to load grading model")
	}
	return utils.SendSuccess(c, "grading model retrieved", model)
}

func (h *GradingModelHandler) create(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.GradingModelCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	model, err := h.service.Create(c.Context(), courseID, payload)
	if err != nil {
		return h.mapError(c, err, "failed to create grading model")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "grading model created", model)
}

func (h *GradingModelHandler) update(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	modelID, err := parseUintParam(c, "modelId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.GradingModelUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	model, err := h.service.Update(c.Context(), courseID, modelID, payload)
	if err != nil {
		return h.mapError(c, err, "failed to update grading model")
	}
	return utils.SendSuccess(c, "grading model updated", model)
}

func (h *GradingModelHandler) delete(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	modelID, err := parseUintParam(c, "modelId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(c.Context(), courseID, modelID); err != nil {
		return h.mapError(c, err, "failed to delete grading model")
	}
	return utils.SendSuccess(c, "grading model deleted", nil)
}

// validate dry-runs the structural validator without persisting anything. An
// invalid graph is a 200 with Valid=false; the caller is asking a question,
// not submitting a change.
func (h *GradingModelHandler) validate(c *fiber.Ctx) error {
	var payload struct {
		GraphStructure json.RawMessage `json:"graph_structure"`
	}
	if err := c.BodyParser(&payload); err != nil || len(payload.GraphStructure) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	report, err := h.service.ValidateGraph(c.Context(), payload.GraphStructure)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	return utils.SendSuccess(c, "graph validated", report)
}

func (h *GradingModelHandler) mapError(c *fiber.Ctx, err error, message string) error {
	var invalid *service.InvalidGraphError
	switch {
	case errors.As(err, &invalid):
		return utils.SendErrorDetails(c, fiber.StatusBadRequest, "invalid graph structure", invalid.Report.Errors)
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrGradingModelNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "grading model not found")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
