package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/aalto-grades/aalto-grades-sub002/internal/dto"
	"github.com/aalto-grades/aalto-grades-sub002/internal/graph"
	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
	"github.com/aalto-grades/aalto-grades-sub002/internal/observability"
	"github.com/aalto-grades/aalto-grades-sub002/internal/repository"
)

// ErrGradingModelNotFound indicates the grading model was not located.
var ErrGradingModelNotFound = errors.New("grading model not found")

// ErrCourseNotFound indicates the course was not located.
var ErrCourseNotFound = errors.New("course not found")

// InvalidGraphError rejects a graph that failed structural validation. The
// report lists every problem found, not just the first one.
type InvalidGraphError struct {
	Report graph.ValidationReport
}

func (e *InvalidGraphError) Error() string {
	return fmt.Sprintf("invalid graph: %s", strings.Join(e.Report.Errors, "; "))
}

// GradingModelService manages grading models and their graph structures.
// Every write path runs the structural validator; a graph that fails
// validation never reaches storage.
type GradingModelService interface {
	List(ctx context.Context, courseID uint) ([]dto.GradingModelResponse, error)
	Get(ctx context.Context, courseID, modelID uint) (dto.GradingModelResponse, error)
	Create(ctx context.Context, courseID uint, payload dto.GradingModelCreateRequest) (dto.GradingModelResponse, error)
	Update(ctx context.Context, courseID, modelID uint, payload dto.GradingModelUpdateRequest) (dto.GradingModelResponse, error)
	Delete(ctx context.Context, courseID, modelID uint) error
	ValidateGraph(ctx context.Context, raw json.RawMessage) (graph.ValidationReport, error)
}

type gradingModelService struct {
	models    repository.GradingModelRepository
	courses   repository.CourseRepository
	tasks     repository.CourseTaskRepository
	registry  *graph.Registry
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGradingModelService constructs the grading model service.
func NewGradingModelService(
	modelRepo repository.GradingModelRepository,
	courseRepo repository.CourseRepository,
	taskRepo repository.CourseTaskRepository,
	registry *graph.Registry,
	validate *validator.Validate,
	logger zerolog.Logger,
) GradingModelService {
	return &gradingModelService{
		models:    modelRepo,
		courses:   courseRepo,
		tasks:     taskRepo,
		registry:  registry,
		validator: validate,
		logger:    logger.With().Str("component", "grading_model_service").Logger(),
		now:       time.Now,
	}
}

func (s *gradingModelService) List(ctx context.Context, courseID uint) ([]dto.GradingModelResponse, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	rows, err := s.models.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	sources, err := s.courseSources(ctx, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.GradingModelResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, dto.NewGradingModelResponse(row, s.sourceFlags(row, sources)))
	}
	return responses, nil
}

func (s *gradingModelService) Get(ctx context.Context, courseID, modelID uint) (dto.GradingModelResponse, error) {
	row, err := s.lookup(ctx, courseID, modelID)
	if err != nil {
		return dto.GradingModelResponse{}, err
	}
	sources, err := s.courseSources(ctx, courseID)
	if err != nil {
		return dto.GradingModelResponse{}, err
	}
	return dto.NewGradingModelResponse(row, s.sourceFlags(row, sources)), nil
}

func (s *gradingModelService) Create(ctx context.Context, courseID uint, payload dto.GradingModelCreateRequest) (dto.GradingModelResponse, error) {
	tracer := otel.Tracer("github.com/aalto-grades/aalto-grades-sub002/internal/service/grading_model")
	ctx, span := tracer.Start(ctx, "grading_model.create")
	span.SetAttributes(attribute.Int64("course.id", int64(courseID)))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradingModelResponse{}, err
	}
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradingModelResponse{}, ErrCourseNotFound
		}
		return dto.GradingModelResponse{}, err
	}

	structure, err := s.checkGraph(payload.GraphStructure)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "graph_rejected")
		return dto.GradingModelResponse{}, err
	}

	row := models.GradingModel{
		CourseID: courseID,
		Name:     payload.Name,
	}
	if err := row.SetGraph(structure); err != nil {
		return dto.GradingModelResponse{}, err
	}
	if err := s.models.Create(ctx, &row); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model_create_failed")
		return dto.GradingModelResponse{}, err
	}

	s.logger.Info().Uint("course_id", courseID).Uint("model_id", row.ID).Msg("grading model created")
	sources, err := s.courseSources(ctx, courseID)
	if err != nil {
		return dto.GradingModelResponse{}, err
	}
	return dto.NewGradingModelResponse(row, s.sourceFlags(row, sources)), nil
}

func (s *gradingModelService) Update(ctx context.Context, courseID, modelID uint, payload dto.GradingModelUpdateRequest) (dto.GradingModelResponse, error) {
	tracer := otel.Tracer("github.com/aalto-grades/aalto-grades-sub002/internal/service/grading_model")
	ctx, span := tracer.Start(ctx, "grading_model.update")
	span.SetAttributes(
		attribute.Int64("course.id", int64(courseID)),
		attribute.Int64("grading_model.id", int64(modelID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradingModelResponse{}, err
	}

	row, err := s.lookup(ctx, courseID, modelID)
	if err != nil {
		span.RecordError(err)
		return dto.GradingModelResponse{}, err
	}

	if payload.Name != nil {
		row.Name = *payload.Name
	}
	if len(payload.GraphStructure) > 0 {
		structure, err := s.checkGraph(payload.GraphStructure)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "graph_rejected")
			return dto.GradingModelResponse{}, err
		}
		if err := row.SetGraph(structure); err != nil {
			return dto.GradingModelResponse{}, err
		}
	}

	if err := s.models.Update(ctx, &row); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model_update_failed")
		return dto.GradingModelResponse{}, err
	}

	sources, err := s.courseSources(ctx, courseID)
	if err != nil {
		return dto.GradingModelResponse{}, err
	}
	return dto.NewGradingModelResponse(row, s.sourceFlags(row, sources)), nil
}

func (s *gradingModelService) Delete(ctx context.Context, courseID, modelID uint) error {
	if _, err := s.lookup(ctx, courseID, modelID); err != nil {
		return err
	}
	if err := s.models.Delete(ctx, modelID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGradingModelNotFound
		}
		return err
	}
	s.logger.Info().Uint("course_id", courseID).Uint("model_id", modelID).Msg("grading model deleted")
	return nil
}

// ValidateGraph dry-runs the structural validator against a raw graph without
// touching storage. A structurally invalid graph is a report, not an error;
// the error return covers undecodable payloads only.
func (s *gradingModelService) ValidateGraph(_ context.Context, raw json.RawMessage) (graph.ValidationReport, error) {
	var structure graph.GraphStructure
	if err := json.Unmarshal(raw, &structure); err != nil {
		return graph.ValidationReport{}, fmt.Errorf("failed to decode graph: %w", err)
	}
	report := graph.Validate(structure, s.registry)
	if !report.Valid {
		observability.ValidationFailures().Inc()
	}
	return report, nil
}

func (s *gradingModelService) lookup(ctx context.Context, courseID, modelID uint) (models.GradingModel, error) {
	row, err := s.models.GetByID(ctx, modelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GradingModel{}, ErrGradingModelNotFound
		}
		return models.GradingModel{}, err
	}
	if row.CourseID != courseID {
		return models.GradingModel{}, ErrGradingModelNotFound
	}
	return row, nil
}

func (s *gradingModelService) checkGraph(raw json.RawMessage) (graph.GraphStructure, error) {
	var structure graph.GraphStructure
	if err := json.Unmarshal(raw, &structure); err != nil {
		return graph.GraphStructure{}, fmt.Errorf("failed to decode graph: %w", err)
	}
	report := graph.Validate(structure, s.registry)
	if !report.Valid {
		observability.ValidationFailures().Inc()
		return graph.GraphStructure{}, &InvalidGraphError{Report: report}
	}
	return structure, nil
}

func (s *gradingModelService) courseSources(ctx context.Context, courseID uint) ([]graph.GradeSource, error) {
	tasks, err := s.tasks.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return sourcesFromTasks(tasks), nil
}

// sourceFlags recomputes staleness on every read so the flags always reflect
// the current task catalogue.
func (s *gradingModelService) sourceFlags(row models.GradingModel, sources []graph.GradeSource) graph.StalenessFlags {
	structure, err := row.Graph()
	if err != nil {
		s.logger.Warn().Err(err).Uint("model_id", row.ID).Msg("stored graph is corrupt")
		return graph.StalenessFlags{HasDeletedSources: true}
	}
	return graph.CheckSources(structure, sources, s.now())
}

func sourcesFromTasks(tasks []models.CourseTask) []graph.GradeSource {
	sources := make([]graph.GradeSource, 0, len(tasks))
	for _, task := range tasks {
		sources = append(sources, graph.GradeSource{
			ID:         int64(task.ID),
			Archived:   task.Archived,
			ExpiryDate: task.ExpiryDate,
		})
	}
	return sources
}
