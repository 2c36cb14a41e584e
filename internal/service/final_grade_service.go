package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/aalto-grades/aalto-grades-sub002/internal/dto"
	"github.com/aalto-grades/aalto-grades-sub002/internal/graph"
	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
	"github.com/aalto-grades/aalto-grades-sub002/internal/observability"
	"github.com/aalto-grades/aalto-grades-sub002/internal/repository"
)

// ErrEngineFault indicates the evaluation engine hit a defect in a stored
// graph, such as a cycle or an unregistered formula. The graph passed
// validation when it was saved, so a fault here means the stored state and
// the registry have drifted apart.
var ErrEngineFault = errors.New("grading engine fault")

// evaluationConcurrency bounds the batch fan-out so one large cohort cannot
// starve the process.
const evaluationConcurrency = 8

// FinalGradeService evaluates grading models for students and persists the
// passing sink results as final grades.
type FinalGradeService interface {
	Calculate(ctx context.Context, courseID uint, payload dto.CalculateFinalGradesRequest, graderID uint) (dto.CalculateFinalGradesResponse, error)
	ListByCourse(ctx context.Context, courseID uint) ([]dto.FinalGradeResponse, error)
	ListForUser(ctx context.Context, courseID, userID uint) ([]dto.FinalGradeResponse, error)
}

type finalGradeService struct {
	finalGrades repository.FinalGradeRepository
	taskGrades  repository.TaskGradeRepository
	models      repository.GradingModelRepository
	evaluator   *graph.Evaluator
	validator   *validator.Validate
	events      EventPublisher
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewFinalGradeService constructs the final grade service.
func NewFinalGradeService(
	finalGradeRepo repository.FinalGradeRepository,
	taskGradeRepo repository.TaskGradeRepository,
	modelRepo repository.GradingModelRepository,
	evaluator *graph.Evaluator,
	validate *validator.Validate,
	events EventPublisher,
	logger zerolog.Logger,
) FinalGradeService {
	return &finalGradeService{
		finalGrades: finalGradeRepo,
		taskGrades:  taskGradeRepo,
		models:      modelRepo,
		evaluator:   evaluator,
		validator:   validate,
		events:      events,
		tracer:      otel.Tracer("github.com/aalto-grades/aalto-grades-sub002/internal/service/final_grade"),
		logger:      logger.With().Str("component", "final_grade_service").Logger(),
		now:         time.Now,
	}
}

func (s *finalGradeService) Calculate(ctx context.Context, courseID uint, payload dto.CalculateFinalGradesRequest, graderID uint) (dto.CalculateFinalGradesResponse, error) {
	ctx, span := s.tracer.Start(ctx, "final_grade.calculate")
	span.SetAttributes(
		attribute.Int64("course.id", int64(courseID)),
		attribute.Int64("grading_model.id", int64(payload.GradingModelID)),
		attribute.Int("grading.student_count", len(payload.UserIDs)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.CalculateFinalGradesResponse{}, err
	}

	model, err := s.models.GetByID(ctx, payload.GradingModelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CalculateFinalGradesResponse{}, ErrGradingModelNotFound
		}
		return dto.CalculateFinalGradesResponse{}, err
	}
	if model.CourseID != courseID {
		return dto.CalculateFinalGradesResponse{}, ErrGradingModelNotFound
	}

	structure, err := model.Graph()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "graph_decode_failed")
		return dto.CalculateFinalGradesResponse{}, err
	}

	gradesByUser, err := s.collectGrades(ctx, courseID, payload.UserIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grade_fetch_failed")
		return dto.CalculateFinalGradesResponse{}, err
	}

	now := s.now()
	results := make([]dto.StudentCalculationResult, len(payload.UserIDs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(evaluationConcurrency)
	for i, userID := range payload.UserIDs {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			start := time.Now()
			result, err := s.evaluator.Evaluate(structure, gradesByUser[userID], now)
			observability.EvaluationLatency().Observe(time.Since(start).Seconds())
			if err != nil {
				observability.EngineFaults().Inc()
				var engineErr *graph.EngineError
				if errors.As(err, &engineErr) {
					s.logger.Error().
						Err(err).
						Uint("model_id", model.ID).
						Str("node_id", engineErr.NodeID).
						Msg("stored graph faulted during evaluation")
					return errors.Join(ErrEngineFault, err)
				}
				return err
			}

			observability.Evaluations().WithLabelValues(string(result.Status)).Inc()
			results[i] = dto.StudentCalculationResult{
				UserID: userID,
				Grade:  result.Grade,
				Status: result.Status,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation_failed")
		return dto.CalculateFinalGradesResponse{}, err
	}

	stored, err := s.persistResults(ctx, courseID, model.ID, graderID, now, results)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "final_grade_persist_failed")
		return dto.CalculateFinalGradesResponse{}, err
	}

	if err := s.events.Publish(GradeEvent{
		Type:           EventFinalGradesCalculated,
		CourseID:       courseID,
		GradingModelID: model.ID,
		UserIDs:        storedUserIDs(results),
		OccurredAt:     now,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("course_id", courseID).Msg("grade event dropped")
	}

	span.SetAttributes(attribute.Int("grading.stored_count", stored))
	s.logger.Info().
		Uint("course_id", courseID).
		Uint("model_id", model.ID).
		Int("students", len(payload.UserIDs)).
		Int("stored", stored).
		Msg("final grades calculated")

	return dto.CalculateFinalGradesResponse{
		GradingModelID: model.ID,
		Results:        results,
	}, nil
}

func (s *finalGradeService) ListByCourse(ctx context.Context, courseID uint) ([]dto.FinalGradeResponse, error) {
	rows, err := s.finalGrades.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return dto.NewFinalGradeResponseSlice(rows), nil
}

func (s *finalGradeService) ListForUser(ctx context.Context, courseID, userID uint) ([]dto.FinalGradeResponse, error) {
	rows, err := s.finalGrades.ListForUser(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewFinalGradeResponseSlice(rows), nil
}

// collectGrades loads every task grade of the course once and buckets them
// per student and per task, which is what the engine consumes.
func (s *finalGradeService) collectGrades(ctx context.Context, courseID uint, userIDs []uint) (map[uint]map[int64][]graph.RawGrade, error) {
	rows, err := s.taskGrades.ListForCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	wanted := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}

	byUser := make(map[uint]map[int64][]graph.RawGrade, len(userIDs))
	for _, row := range rows {
		if !wanted[row.UserID] {
			continue
		}
		bucket := byUser[row.UserID]
		if bucket == nil {
			bucket = make(map[int64][]graph.RawGrade)
			byUser[row.UserID] = bucket
		}
		taskID := int64(row.CourseTaskID)
		bucket[taskID] = append(bucket[taskID], row.Raw())
	}
	return byUser, nil
}

// persistResults stores passing and failing outcomes. Pending means the
// inputs are incomplete, so nothing durable is written for those students.
func (s *finalGradeService) persistResults(ctx context.Context, courseID, modelID, graderID uint, now time.Time, results []dto.StudentCalculationResult) (int, error) {
	rows := make([]models.FinalGrade, 0, len(results))
	for i, result := range results {
		if result.Status == graph.StatusPending {
			continue
		}
		results[i].Stored = true
		id := modelID
		grader := graderID
		rows = append(rows, models.FinalGrade{
			UserID:         result.UserID,
			CourseID:       courseID,
			GradingModelID: &id,
			Grade:          result.Grade,
			Date:           now,
			GraderID:       &grader,
		})
	}
	if err := s.finalGrades.CreateBatch(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func storedUserIDs(results []dto.StudentCalculationResult) []uint {
	ids := make([]uint, 0, len(results))
	for _, result := range results {
		if result.Stored {
			ids = append(ids, result.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
