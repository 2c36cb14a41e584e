package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/aalto-grades/aalto-grades-sub002/internal/dto"
	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
	"github.com/aalto-grades/aalto-grades-sub002/internal/observability"
	"github.com/aalto-grades/aalto-grades-sub002/internal/repository"
)

// ErrCourseTaskNotFound indicates the grade source was not located.
var ErrCourseTaskNotFound = errors.New("course task not found")

// ErrTaskGradeNotFound indicates the task grade was not located.
var ErrTaskGradeNotFound = errors.New("task grade not found")

// ErrGradeExceedsMax indicates a grade surpasses the task maximum.
var ErrGradeExceedsMax = errors.New("grade exceeds task max")

// ErrUnsupportedImportFormat rejects uploads that are not CSV text.
var ErrUnsupportedImportFormat = errors.New("unsupported import format")

// ErrInvalidGradeDate rejects dates that are neither RFC 3339 nor YYYY-MM-DD.
var ErrInvalidGradeDate = errors.New("invalid grade date")

// csvImportColumns is the required header of a grade import file.
var csvImportColumns = []string{"user_id", "course_task_id", "grade", "date", "comment"}

// TaskGradeService records raw task grades. Grades are append-only from the
// engine's point of view; resubmissions create new rows and the selection
// policy picks the one that counts.
type TaskGradeService interface {
	ListForUser(ctx context.Context, courseID, userID uint) ([]dto.TaskGradeResponse, error)
	Create(ctx context.Context, courseID uint, payload dto.TaskGradeCreateRequest, graderID uint) (dto.TaskGradeResponse, error)
	Delete(ctx context.Context, courseID, gradeID uint) error
	ImportCSV(ctx context.Context, courseID uint, file io.Reader, graderID uint) (dto.TaskGradeImportReport, error)
}

type taskGradeService struct {
	grades    repository.TaskGradeRepository
	tasks     repository.CourseTaskRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewTaskGradeService constructs the task grade service. Comments are free
// text shown back to students, so they pass through a strict HTML sanitizer.
func NewTaskGradeService(
	gradeRepo repository.TaskGradeRepository,
	taskRepo repository.CourseTaskRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) TaskGradeService {
	return &taskGradeService{
		grades:    gradeRepo,
		tasks:     taskRepo,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "task_grade_service").Logger(),
		now:       time.Now,
	}
}

func (s *taskGradeService) ListForUser(ctx context.Context, courseID, userID uint) ([]dto.TaskGradeResponse, error) {
	rows, err := s.grades.ListForUser(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewTaskGradeResponseSlice(rows), nil
}

func (s *taskGradeService) Create(ctx context.Context, courseID uint, payload dto.TaskGradeCreateRequest, graderID uint) (dto.TaskGradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskGradeResponse{}, err
	}

	task, err := s.courseTask(ctx, courseID, payload.CourseTaskID)
	if err != nil {
		return dto.TaskGradeResponse{}, err
	}

	date, err := parseGradeDate(payload.Date)
	if err != nil {
		return dto.TaskGradeResponse{}, err
	}

	row, err := s.buildGrade(task, payload, date, graderID)
	if err != nil {
		return dto.TaskGradeResponse{}, err
	}
	if err := s.grades.Create(ctx, &row); err != nil {
		return dto.TaskGradeResponse{}, err
	}

	s.logger.Info().
		Uint("course_id", courseID).
		Uint("task_id", task.ID).
		Uint("user_id", row.UserID).
		Msg("task grade recorded")
	return dto.NewTaskGradeResponse(row), nil
}

func (s *taskGradeService) Delete(ctx context.Context, courseID, gradeID uint) error {
	row, err := s.grades.GetByID(ctx, gradeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskGradeNotFound
		}
		return err
	}
	if row.CourseTask.CourseID != courseID {
		return ErrTaskGradeNotFound
	}
	if err := s.grades.Delete(ctx, gradeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskGradeNotFound
		}
		return err
	}
	return nil
}

// ImportCSV ingests a bulk grade upload. Rows are validated individually;
// one bad row is reported and skipped without aborting the rest of the file.
func (s *taskGradeService) ImportCSV(ctx context.Context, courseID uint, file io.Reader, graderID uint) (dto.TaskGradeImportReport, error) {
	payload, err := io.ReadAll(file)
	if err != nil {
		return dto.TaskGradeImportReport{}, fmt.Errorf("failed to read upload: %w", err)
	}

	mime := mimetype.Detect(payload)
	if !mime.Is("text/csv") && !mime.Is("text/plain") {
		return dto.TaskGradeImportReport{}, fmt.Errorf("%w: %s", ErrUnsupportedImportFormat, mime.String())
	}

	reader := csv.NewReader(strings.NewReader(string(payload)))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return dto.TaskGradeImportReport{}, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) != len(csvImportColumns) {
		return dto.TaskGradeImportReport{}, fmt.Errorf("%w: expected header %s", ErrUnsupportedImportFormat, strings.Join(csvImportColumns, ","))
	}
	for i, column := range csvImportColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), column) {
			return dto.TaskGradeImportReport{}, fmt.Errorf("%w: expected header %s", ErrUnsupportedImportFormat, strings.Join(csvImportColumns, ","))
		}
	}

	tasks, err := s.tasks.ListByCourse(ctx, courseID)
	if err != nil {
		return dto.TaskGradeImportReport{}, err
	}
	taskIndex := make(map[uint]models.CourseTask, len(tasks))
	for _, task := range tasks {
		taskIndex[task.ID] = task
	}

	report := dto.TaskGradeImportReport{}
	var rows []models.TaskGrade
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		row, err := s.parseImportRow(record, taskIndex, graderID)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		rows = append(rows, row)
	}

	if err := s.grades.CreateBatch(ctx, rows); err != nil {
		return dto.TaskGradeImportReport{}, err
	}
	report.Imported = len(rows)
	observability.ImportedRows().Add(float64(len(rows)))

	s.logger.Info().
		Uint("course_id", courseID).
		Int("imported", report.Imported).
		Int("skipped", report.Skipped).
		Msg("grade import finished")
	return report, nil
}

func (s *taskGradeService) parseImportRow(record []string, tasks map[uint]models.CourseTask, graderID uint) (models.TaskGrade, error) {
	userID, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 64)
	if err != nil || userID == 0 {
		return models.TaskGrade{}, fmt.Errorf("invalid user_id %q", record[0])
	}
	taskID, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 64)
	if err != nil {
		return models.TaskGrade{}, fmt.Errorf("invalid course_task_id %q", record[1])
	}
	task, ok := tasks[uint(taskID)]
	if !ok {
		return models.TaskGrade{}, fmt.Errorf("course task %d does not belong to this course", taskID)
	}
	gradeValue, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil || gradeValue < 0 {
		return models.TaskGrade{}, fmt.Errorf("invalid grade %q", record[2])
	}
	date, err := parseGradeDate(strings.TrimSpace(record[3]))
	if err != nil {
		return models.TaskGrade{}, err
	}

	return s.buildGrade(task, dto.TaskGradeCreateRequest{
		UserID:       uint(userID),
		CourseTaskID: task.ID,
		Grade:        gradeValue,
		Comment:      record[4],
	}, date, graderID)
}

// buildGrade applies the shared per-grade rules: the task max bound, the
// derived expiry date, and comment sanitation.
func (s *taskGradeService) buildGrade(task models.CourseTask, payload dto.TaskGradeCreateRequest, date time.Time, graderID uint) (models.TaskGrade, error) {
	if task.MaxGrade != nil && payload.Grade > *task.MaxGrade+1e-9 {
		return models.TaskGrade{}, ErrGradeExceedsMax
	}

	grader := graderID
	return models.TaskGrade{
		UserID:       payload.UserID,
		CourseTaskID: task.ID,
		Grade:        payload.Grade,
		Date:         date,
		ExpiryDate:   task.GradeExpiry(date),
		Comment:      strings.TrimSpace(s.sanitizer.Sanitize(payload.Comment)),
		Manual:       payload.Manual,
		GraderID:     &grader,
	}, nil
}

func (s *taskGradeService) courseTask(ctx context.Context, courseID, taskID uint) (models.CourseTask, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseTask{}, ErrCourseTaskNotFound
		}
		return models.CourseTask{}, err
	}
	if task.CourseID != courseID {
		return models.CourseTask{}, ErrCourseTaskNotFound
	}
	return task, nil
}

// parseGradeDate accepts RFC 3339 timestamps and bare dates.
func parseGradeDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidGradeDate, value)
	}
	return t, nil
}
