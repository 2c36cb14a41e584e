package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aalto-grades/aalto-grades-sub002/internal/dto"
	"github.com/aalto-grades/aalto-grades-sub002/internal/graph"
	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
)

type memoryFinalGradeRepo struct {
	rows []models.FinalGrade
}

func (m *memoryFinalGradeRepo) ListByCourse(ctx context.Context, courseID uint) ([]models.FinalGrade, error) {
	out := make([]models.FinalGrade, 0, len(m.rows))
	for _, row := range m.rows {
		if row.CourseID == courseID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memoryFinalGradeRepo) ListForUser(ctx context.Context, courseID, userID uint) ([]models.FinalGrade, error) {
	out := make([]models.FinalGrade, 0, len(m.rows))
	for _, row := range m.rows {
		if row.CourseID == courseID && row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memoryFinalGradeRepo) Create(ctx context.Context, grade *models.FinalGrade) error {
	grade.ID = uint(len(m.rows) + 1)
	m.rows = append(m.rows, *grade)
	return nil
}

func (m *memoryFinalGradeRepo) CreateBatch(ctx context.Context, grades []models.FinalGrade) error {
	for i := range grades {
		grades[i].ID = uint(len(m.rows) + 1)
		m.rows = append(m.rows, grades[i])
	}
	return nil
}

type memoryTaskGradeRepo struct {
	rows  []models.TaskGrade
	tasks map[uint]models.CourseTask
}

func (m *memoryTaskGradeRepo) GetByID(ctx context.Context, id uint) (models.TaskGrade, error) {
	for _, row := range m.rows {
		if row.ID == id {
			row.CourseTask = m.tasks[row.CourseTaskID]
			return row, nil
		}
	}
	return models.TaskGrade{}, gorm.ErrRecordNotFound
}

func (m *memoryTaskGradeRepo) ListForUser(ctx context.Context, courseID, userID uint) ([]models.TaskGrade, error) {
	out := make([]models.TaskGrade, 0, len(m.rows))
	for _, row := range m.rows {
		if m.tasks[row.CourseTaskID].CourseID == courseID && row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memoryTaskGradeRepo) ListForCourse(ctx context.Context, courseID uint) ([]models.TaskGrade, error) {
	out := make([]models.TaskGrade, 0, len(m.rows))
	for _, row := range m.rows {
		if m.tasks[row.CourseTaskID].CourseID == courseID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memoryTaskGradeRepo) Create(ctx context.Context, grade *models.TaskGrade) error {
	grade.ID = uint(len(m.rows) + 1)
	m.rows = append(m.rows, *grade)
	return nil
}

func (m *memoryTaskGradeRepo) CreateBatch(ctx context.Context, grades []models.TaskGrade) error {
	for i := range grades {
		grades[i].ID = uint(len(m.rows) + 1)
		m.rows = append(m.rows, grades[i])
	}
	return nil
}

func (m *memoryTaskGradeRepo) Update(ctx context.Context, grade *models.TaskGrade) error {
	for i, row := range m.rows {
		if row.ID == grade.ID {
			m.rows[i] = *grade
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryTaskGradeRepo) Delete(ctx context.Context, id uint) error {
	for i, row := range m.rows {
		if row.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type memoryEvents struct {
	events []GradeEvent
}

func (m *memoryEvents) Publish(event GradeEvent) error {
	m.events = append(m.events, event)
	return nil
}

func storedModel(t *testing.T, id, courseID uint, g graph.GraphStructure) models.GradingModel {
	t.Helper()
	row := models.GradingModel{ID: id, CourseID: courseID, Name: "Model"}
	require.NoError(t, row.SetGraph(g))
	return row
}

func newFinalGradeService(finals *memoryFinalGradeRepo, grades *memoryTaskGradeRepo, rows *memoryModelRepo, events *memoryEvents) FinalGradeService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	evaluator := graph.NewEvaluator(graph.NewRegistry())
	return NewFinalGradeService(finals, grades, rows, evaluator, validate, events, testLogger())
}

func TestFinalGradeServiceCalculateBatch(t *testing.T) {
	tasks := map[uint]models.CourseTask{
		1: {ID: 1, CourseID: 7},
		2: {ID: 2, CourseID: 7},
	}
	now := time.Now()
	grades := &memoryTaskGradeRepo{
		tasks: tasks,
		rows: []models.TaskGrade{
			// Student 100 has both grades and passes.
			{ID: 1, UserID: 100, CourseTaskID: 1, Grade: 4, Date: now},
			{ID: 2, UserID: 100, CourseTaskID: 2, Grade: 5, Date: now},
			// Student 101 is missing task 2, so the result is pending.
			{ID: 3, UserID: 101, CourseTaskID: 1, Grade: 3, Date: now},
		},
	}
	rows := &memoryModelRepo{rows: map[uint]models.GradingModel{
		1: storedModel(t, 1, 7, averagePairGraph(1, 2)),
	}}
	finals := &memoryFinalGradeRepo{}
	events := &memoryEvents{}
	svc := newFinalGradeService(finals, grades, rows, events)

	resp, err := svc.Calculate(context.Background(), 7, dto.CalculateFinalGradesRequest{
		GradingModelID: 1,
		UserIDs:        []uint{100, 101},
	}, 9)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	byUser := map[uint]dto.StudentCalculationResult{}
	for _, result := range resp.Results {
		byUser[result.UserID] = result
	}

	require.Equal(t, graph.StatusPass, byUser[100].Status)
	require.InDelta(t, 4.4, byUser[100].Grade, 1e-9)
	require.True(t, byUser[100].Stored)

	require.Equal(t, graph.StatusPending, byUser[101].Status)
	require.False(t, byUser[101].Stored)

	require.Len(t, finals.rows, 1)
	require.Equal(t, uint(100), finals.rows[0].UserID)
	require.Equal(t, uint(7), finals.rows[0].CourseID)
	require.NotNil(t, finals.rows[0].GradingModelID)
	require.Equal(t, uint(1), *finals.rows[0].GradingModelID)
	require.NotNil(t, finals.rows[0].GraderID)
	require.Equal(t, uint(9), *finals.rows[0].GraderID)

	require.Len(t, events.events, 1)
	require.Equal(t, EventFinalGradesCalculated, events.events[0].Type)
	require.Equal(t, []uint{100}, events.events[0].UserIDs)
}

func TestFinalGradeServiceModelScopedToCourse(t *testing.T) {
	rows := &memoryModelRepo{rows: map[uint]models.GradingModel{
		1: storedModel(t, 1, 7, averagePairGraph(1, 2)),
	}}
	svc := newFinalGradeService(&memoryFinalGradeRepo{}, &memoryTaskGradeRepo{tasks: map[uint]models.CourseTask{}}, rows, &memoryEvents{})

	_, err := svc.Calculate(context.Background(), 8, dto.CalculateFinalGradesRequest{
		GradingModelID: 1,
		UserIDs:        []uint{100},
	}, 9)
	require.ErrorIs(t, err, ErrGradingModelNotFound)
}

func TestFinalGradeServiceEngineFaultOnDriftedGraph(t *testing.T) {
	// A graph naming a formula that is no longer registered passed validation
	// once but cannot be evaluated now.
	g := averagePairGraph(1, 2)
	g.Nodes[2].Formula = "retired-formula"
	rows := &memoryModelRepo{rows: map[uint]models.GradingModel{
		1: storedModel(t, 1, 7, g),
	}}
	grades := &memoryTaskGradeRepo{
		tasks: map[uint]models.CourseTask{1: {ID: 1, CourseID: 7}, 2: {ID: 2, CourseID: 7}},
		rows: []models.TaskGrade{
			{ID: 1, UserID: 100, CourseTaskID: 1, Grade: 4, Date: time.Now()},
			{ID: 2, UserID: 100, CourseTaskID: 2, Grade: 5, Date: time.Now()},
		},
	}
	finals := &memoryFinalGradeRepo{}
	svc := newFinalGradeService(finals, grades, rows, &memoryEvents{})

	_, err := svc.Calculate(context.Background(), 7, dto.CalculateFinalGradesRequest{
		GradingModelID: 1,
		UserIDs:        []uint{100},
	}, 9)
	require.ErrorIs(t, err, ErrEngineFault)

	var engineErr *graph.EngineError
	require.ErrorAs(t, err, &engineErr)
	require.Empty(t, finals.rows)
}

func TestFinalGradeServiceFailedOutcomeIsStored(t *testing.T) {
	old := time.Now().Add(-72 * time.Hour)
	expiry := time.Now().Add(-time.Hour)
	grades := &memoryTaskGradeRepo{
		tasks: map[uint]models.CourseTask{1: {ID: 1, CourseID: 7}, 2: {ID: 2, CourseID: 7}},
		rows: []models.TaskGrade{
			{ID: 1, UserID: 100, CourseTaskID: 1, Grade: 4, Date: old, ExpiryDate: &expiry},
			{ID: 2, UserID: 100, CourseTaskID: 2, Grade: 5, Date: old},
		},
	}
	rows := &memoryModelRepo{rows: map[uint]models.GradingModel{
		1: storedModel(t, 1, 7, averagePairGraph(1, 2)),
	}}
	finals := &memoryFinalGradeRepo{}
	svc := newFinalGradeService(finals, grades, rows, &memoryEvents{})

	resp, err := svc.Calculate(context.Background(), 7, dto.CalculateFinalGradesRequest{
		GradingModelID: 1,
		UserIDs:        []uint{100},
	}, 9)
	require.NoError(t, err)
	require.Equal(t, graph.StatusFail, resp.Results[0].Status)
	require.True(t, resp.Results[0].Stored)
	require.Len(t, finals.rows, 1)
}

func TestFinalGradeServiceListForUser(t *testing.T) {
	finals := &memoryFinalGradeRepo{rows: []models.FinalGrade{
		{ID: 1, UserID: 100, CourseID: 7, Grade: 4},
		{ID: 2, UserID: 101, CourseID: 7, Grade: 3},
		{ID: 3, UserID: 100, CourseID: 8, Grade: 5},
	}}
	svc := newFinalGradeService(finals, &memoryTaskGradeRepo{}, &memoryModelRepo{}, &memoryEvents{})

	got, err := svc.ListForUser(context.Background(), 7, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, uint(1), got[0].ID)
}
