package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/aalto-grades/aalto-grades-sub002/internal/dto"
	"github.com/aalto-grades/aalto-grades-sub002/internal/graph"
	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
	"github.com/aalto-grades/aalto-grades-sub002/internal/repository"
)

// CourseTaskService manages grade sources. Mutations that can strand source
// nodes in stored graphs re-check every grading model of the course and
// publish a staleness event for each model that now references missing,
// archived, or expired work.
type CourseTaskService interface {
	List(ctx context.Context, courseID uint) ([]dto.CourseTaskResponse, error)
	Create(ctx context.Context, courseID uint, payload dto.CourseTaskCreateRequest) (dto.CourseTaskResponse, error)
	Update(ctx context.Context, courseID, taskID uint, payload dto.CourseTaskUpdateRequest) (dto.CourseTaskResponse, error)
	Delete(ctx context.Context, courseID, taskID uint) error
}

type courseTaskService struct {
	tasks     repository.CourseTaskRepository
	courses   repository.CourseRepository
	models    repository.GradingModelRepository
	validator *validator.Validate
	events    EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCourseTaskService constructs the course task service.
func NewCourseTaskService(
	taskRepo repository.CourseTaskRepository,
	courseRepo repository.CourseRepository,
	modelRepo repository.GradingModelRepository,
	validate *validator.Validate,
	events EventPublisher,
	logger zerolog.Logger,
) CourseTaskService {
	return &courseTaskService{
		tasks:     taskRepo,
		courses:   courseRepo,
		models:    modelRepo,
		validator: validate,
		events:    events,
		logger:    logger.With().Str("component", "course_task_service").Logger(),
		now:       time.Now,
	}
}

func (s *courseTaskService) List(ctx context.Context, courseID uint) ([]dto.CourseTaskResponse, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	rows, err := s.tasks.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return dto.NewCourseTaskResponseSlice(rows), nil
}

func (s *courseTaskService) Create(ctx context.Context, courseID uint, payload dto.CourseTaskCreateRequest) (dto.CourseTaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseTaskResponse{}, err
	}
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseTaskResponse{}, ErrCourseNotFound
		}
		return dto.CourseTaskResponse{}, err
	}

	expiry, err := parseOptionalDate(payload.ExpiryDate)
	if err != nil {
		return dto.CourseTaskResponse{}, err
	}

	row := models.CourseTask{
		CourseID:   courseID,
		Name:       payload.Name,
		MaxGrade:   payload.MaxGrade,
		DaysValid:  payload.DaysValid,
		ExpiryDate: expiry,
	}
	if err := s.tasks.Create(ctx, &row); err != nil {
		return dto.CourseTaskResponse{}, err
	}
	return dto.NewCourseTaskResponse(row), nil
}

func (s *courseTaskService) Update(ctx context.Context, courseID, taskID uint, payload dto.CourseTaskUpdateRequest) (dto.CourseTaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseTaskResponse{}, err
	}

	row, err := s.lookup(ctx, courseID, taskID)
	if err != nil {
		return dto.CourseTaskResponse{}, err
	}

	if payload.Name != nil {
		row.Name = *payload.Name
	}
	if payload.MaxGrade != nil {
		row.MaxGrade = payload.MaxGrade
	}
	if payload.DaysValid != nil {
		row.DaysValid = payload.DaysValid
	}
	if payload.ExpiryDate != nil {
		expiry, err := parseOptionalDate(payload.ExpiryDate)
		if err != nil {
			return dto.CourseTaskResponse{}, err
		}
		row.ExpiryDate = expiry
	}
	archivedChanged := payload.Archived != nil && *payload.Archived != row.Archived
	if payload.Archived != nil {
		row.Archived = *payload.Archived
	}

	if err := s.tasks.Update(ctx, &row); err != nil {
		return dto.CourseTaskResponse{}, err
	}

	if archivedChanged {
		s.flagStaleModels(ctx, courseID)
	}
	return dto.NewCourseTaskResponse(row), nil
}

func (s *courseTaskService) Delete(ctx context.Context, courseID, taskID uint) error {
	if _, err := s.lookup(ctx, courseID, taskID); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseTaskNotFound
		}
		return err
	}
	s.flagStaleModels(ctx, courseID)
	return nil
}

func (s *courseTaskService) lookup(ctx context.Context, courseID, taskID uint) (models.CourseTask, error) {
	row, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseTask{}, ErrCourseTaskNotFound
		}
		return models.CourseTask{}, err
	}
	if row.CourseID != courseID {
		return models.CourseTask{}, ErrCourseTaskNotFound
	}
	return row, nil
}

// flagStaleModels re-checks every grading model of the course against the
// current task catalogue. Failures here never fail the originating mutation.
func (s *courseTaskService) flagStaleModels(ctx context.Context, courseID uint) {
	rows, err := s.models.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("course_id", courseID).Msg("staleness re-check skipped")
		return
	}
	tasks, err := s.tasks.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("course_id", courseID).Msg("staleness re-check skipped")
		return
	}
	sources := sourcesFromTasks(tasks)
	now := s.now()

	for _, row := range rows {
		structure, err := row.Graph()
		if err != nil {
			s.logger.Warn().Err(err).Uint("model_id", row.ID).Msg("stored graph is corrupt")
			continue
		}
		flags := graph.CheckSources(structure, sources, now)
		if !flags.Stale() {
			continue
		}
		if err := s.events.Publish(GradeEvent{
			Type:           EventGradingModelStale,
			CourseID:       courseID,
			GradingModelID: row.ID,
			OccurredAt:     now,
		}); err != nil {
			s.logger.Warn().Err(err).Uint("model_id", row.ID).Msg("staleness event dropped")
		}
	}
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseGradeDate(*value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
