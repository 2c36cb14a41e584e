package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Course{},
		&models.CourseTask{},
		&models.TaskGrade{},
		&models.FinalGrade{},
		&models.GradingModel{},
		&models.User{},
	))
	return db
}

func TestTaskGradeRepositoryScopesToCourse(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskGradeRepository(db)

	course := models.Course{Code: "CS-A1110", Name: "Programming 1"}
	other := models.Course{Code: "CS-A1120", Name: "Programming 2"}
	require.NoError(t, db.Create(&course).Error)
	require.NoError(t, db.Create(&other).Error)

	task := models.CourseTask{CourseID: course.ID, Name: "Exercise 1"}
	otherTask := models.CourseTask{CourseID: other.ID, Name: "Exercise 1"}
	require.NoError(t, db.Create(&task).Error)
	require.NoError(t, db.Create(&otherTask).Error)

	now := time.Now()
	require.NoError(t, repo.Create(context.Background(), &models.TaskGrade{
		UserID: 7, CourseTaskID: task.ID, Grade: 4, Date: now,
	}))
	require.NoError(t, repo.Create(context.Background(), &models.TaskGrade{
		UserID: 7, CourseTaskID: otherTask.ID, Grade: 1, Date: now,
	}))
	require.NoError(t, repo.Create(context.Background(), &models.TaskGrade{
		UserID: 8, CourseTaskID: task.ID, Grade: 5, Date: now,
	}))

	grades, err := repo.ListForUser(context.Background(), course.ID, 7)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	require.Equal(t, 4.0, grades[0].Grade)

	grades, err = repo.ListForCourse(context.Background(), course.ID)
	require.NoError(t, err)
	require.Len(t, grades, 2)
}

func TestTaskGradeRepositoryKeepsResubmissions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskGradeRepository(db)

	course := models.Course{Code: "CS-A1110", Name: "Programming 1"}
	require.NoError(t, db.Create(&course).Error)
	task := models.CourseTask{CourseID: course.ID, Name: "Exam"}
	require.NoError(t, db.Create(&task).Error)

	first := models.TaskGrade{UserID: 7, CourseTaskID: task.ID, Grade: 2, Date: time.Now().AddDate(0, -1, 0)}
	second := models.TaskGrade{UserID: 7, CourseTaskID: task.ID, Grade: 4, Date: time.Now()}
	require.NoError(t, repo.CreateBatch(context.Background(), []models.TaskGrade{first, second}))

	grades, err := repo.ListForUser(context.Background(), course.ID, 7)
	require.NoError(t, err)
	require.Len(t, grades, 2, "resubmissions are kept, not overwritten")
}

func TestTaskGradeRepositoryDeleteMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskGradeRepository(db)

	err := repo.Delete(context.Background(), 42)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
