package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/aalto-grades/aalto-grades-sub002/internal/dto"
	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
	"github.com/aalto-grades/aalto-grades-sub002/internal/repository"
)

// ErrInvalidCreditRange indicates min credits exceed max credits.
var ErrInvalidCreditRange = errors.New("min credits exceed max credits")

// CourseService manages the course catalogue.
type CourseService interface {
	List(ctx context.Context) ([]dto.CourseResponse, error)
	Get(ctx context.Context, courseID uint) (dto.CourseResponse, error)
	Create(ctx context.Context, payload dto.CourseCreateRequest) (dto.CourseResponse, error)
}

type courseService struct {
	courses   repository.CourseRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(courseRepo repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) CourseService {
	return &courseService{
		courses:   courseRepo,
		validator: validate,
		logger:    logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) List(ctx context.Context) ([]dto.CourseResponse, error) {
	rows, err := s.courses.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewCourseResponseSlice(rows), nil
}

func (s *courseService) Get(ctx context.Context, courseID uint) (dto.CourseResponse, error) {
	row, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}
	return dto.NewCourseResponse(row), nil
}

func (s *courseService) Create(ctx context.Context, payload dto.CourseCreateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}
	if payload.MinCredits > payload.MaxCredits {
		return dto.CourseResponse{}, ErrInvalidCreditRange
	}

	row := models.Course{
		Code:       payload.Code,
		Name:       payload.Name,
		MinCredits: payload.MinCredits,
		MaxCredits: payload.MaxCredits,
	}
	if err := s.courses.Create(ctx, &row); err != nil {
		return dto.CourseResponse{}, err
	}
	s.logger.Info().Uint("course_id", row.ID).Str("code", row.Code).Msg("course created")
	return dto.NewCourseResponse(row), nil
}
