package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
)

// GradingModelRepository defines persistence operations for grading models.
type GradingModelRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.GradingModel, error)
	GetByID(ctx context.Context, id uint) (models.GradingModel, error)
	Create(ctx context.Context, model *models.GradingModel) error
	Update(ctx context.Context, model *models.GradingModel) error
	Delete(ctx context.Context, id uint) error
}

type gradingModelRepository struct {
	db *gorm.DB
}

// NewGradingModelRepository instantiates a GORM-backed repository.
func NewGradingModelRepository(db *gorm.DB) GradingModelRepository {
	return &gradingModelRepository{db: db}
}

func (r *gradingModelRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.GradingModel, error) {
	var gradingModels []models.GradingModel
	if err := r.db.WithContext(ctx).Where("course_id = ?", courseID).Order("id ASC").Find(&gradingModels).Error; err != nil {
		return nil, err
	}
	return gradingModels, nil
}

func (r *gradingModelRepository) GetByID(ctx context.Context, id uint) (models.GradingModel, error) {
	var model models.GradingModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return models.GradingModel{}, err
	}
	return model, nil
}

func (r *gradingModelRepository) Create(ctx context.Context, model *models.GradingModel) error {
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *gradingModelRepository) Update(ctx context.Context, model *models.GradingModel) error {
	return r.db.WithContext(ctx).Save(model).Error
}

func (r *gradingModelRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.GradingModel{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
