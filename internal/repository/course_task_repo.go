package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
)

// CourseTaskRepository defines persistence operations for grade sources.
type CourseTaskRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.CourseTask, error)
	GetByID(ctx context.Context, id uint) (models.CourseTask, error)
	Create(ctx context.Context, task *models.CourseTask) error
	Update(ctx context.Context, task *models.CourseTask) error
	Delete(ctx context.Context, id uint) error
}

type courseTaskRepository struct {
	db *gorm.DB
}

// NewCourseTaskRepository instantiates a GORM-backed repository.
func NewCourseTaskRepository(db *gorm.DB) CourseTaskRepository {
	return &courseTaskRepository{db: db}
}

func (r *courseTaskRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.CourseTask, error) {
	var tasks []models.CourseTask
	if err := r.db.WithContext(ctx).Where("course_id = ?", courseID).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *courseTaskRepository) GetByID(ctx context.Context, id uint) (models.CourseTask, error) {
	var task models.CourseTask
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return models.CourseTask{}, err
	}
	return task, nil
}

func (r *courseTaskRepository) Create(ctx context.Context, task *models.CourseTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *courseTaskRepository) Update(ctx context.Context, task *models.CourseTask) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *courseTaskRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.CourseTask{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
