package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
)

// FinalGradeRepository defines persistence operations for final grades.
type FinalGradeRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.FinalGrade, error)
	ListForUser(ctx context.Context, courseID, userID uint) ([]models.FinalGrade, error)
	Create(ctx context.Context, grade *models.FinalGrade) error
	CreateBatch(ctx context.Context, grades []models.FinalGrade) error
}

type finalGradeRepository struct {
	db *gorm.DB
}

// NewFinalGradeRepository instantiates a GORM-backed repository.
func NewFinalGradeRepository(db *gorm.DB) FinalGradeRepository {
	return &finalGradeRepository{db: db}
}

func (r *finalGradeRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.FinalGrade, error) {
	var grades []models.FinalGrade
	if err := r.db.WithContext(ctx).Where("course_id = ?", courseID).Order("id ASC").Find(&grades).Error; err != nil {
		return nil, err
	}
	return grades, nil
}

func (r *finalGradeRepository) ListForUser(ctx context.Context, courseID, userID uint) ([]models.FinalGrade, error) {
	var grades []models.FinalGrade
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Order("id ASC").
		Find(&grades).Error
	if err != nil {
		return nil, err
	}
	return grades, nil
}

func (r *finalGradeRepository) Create(ctx context.Context, grade *models.FinalGrade) error {
	return r.db.WithContext(ctx).Create(grade).Error
}

func (r *finalGradeRepository) CreateBatch(ctx context.Context, grades []models.FinalGrade) error {
	if len(grades) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&grades).Error
}
