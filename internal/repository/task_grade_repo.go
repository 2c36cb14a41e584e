package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
)

// TaskGradeRepository defines persistence operations for raw task grades.
type TaskGradeRepository interface {
	GetByID(ctx context.Context, id uint) (models.TaskGrade, error)
	ListForUser(ctx context.Context, courseID, userID uint) ([]models.TaskGrade, error)
	ListForCourse(ctx context.Context, courseID uint) ([]models.TaskGrade, error)
	Create(ctx context.Context, grade *models.TaskGrade) error
	CreateBatch(ctx context.Context, grades []models.TaskGrade) error
	Update(ctx context.Context, grade *models.TaskGrade) error
	Delete(ctx context.Context, id uint) error
}

type taskGradeRepository struct {
	db *gorm.DB
}

// NewTaskGradeRepository instantiates a GORM-backed repository.
func NewTaskGradeRepository(db *gorm.DB) TaskGradeRepository {
	return &taskGradeRepository{db: db}
}

func (r *taskGradeRepository) GetByID(ctx context.Context, id uint) (models.TaskGrade, error) {
	var grade models.TaskGrade
	if err := r.db.WithContext(ctx).Preload("CourseTask").First(&grade, id).Error; err != nil {
		return models.TaskGrade{}, err
	}
	return grade, nil
}

func (r *taskGradeRepository) ListForUser(ctx context.Context, courseID, userID uint) ([]models.TaskGrade, error) {
	var grades []models.TaskGrade
	err := r.db.WithContext(ctx).
		Joins("JOIN course_tasks ON course_tasks.id = task_grades.course_task_id").
		Where("course_tasks.course_id = ? AND task_grades.user_id = ?", courseID, userID).
		Order("task_grades.id ASC").
		Find(&grades).Error
	if err != nil {
		return nil, err
	}
	return grades, nil
}

func (r *taskGradeRepository) ListForCourse(ctx context.Context, courseID uint) ([]models.TaskGrade, error) {
	var grades []models.TaskGrade
	err := r.db.WithContext(ctx).
		Joins("JOIN course_tasks ON course_tasks.id = task_grades.course_task_id").
		Where("course_tasks.course_id = ?", courseID).
		Order("task_grades.id ASC").
		Find(&grades).Error
	if err != nil {
		return nil, err
	}
	return grades, nil
}

func (r *taskGradeRepository) Create(ctx context.Context, grade *models.TaskGrade) error {
	return r.db.WithContext(ctx).Create(grade).Error
}

func (r *taskGradeRepository) CreateBatch(ctx context.Context, grades []models.TaskGrade) error {
	if len(grades) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&grades).Error
}

func (r *taskGradeRepository) Update(ctx context.Context, grade *models.TaskGrade) error {
	return r.db.WithContext(ctx).Save(grade).Error
}

func (r *taskGradeRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.TaskGrade{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
