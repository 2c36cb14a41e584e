package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/aalto-grades/aalto-grades-sub002/internal/dto"
	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
)

func TestCourseServiceCreate(t *testing.T) {
	repo := &memoryCourseRepo{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewCourseService(repo, validate, testLogger())

	created, err := svc.Create(context.Background(), dto.CourseCreateRequest{
		Code:       "CS-A1110",
		Name:       "Programming 1",
		MinCredits: 5,
		MaxCredits: 5,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "CS-A1110", created.Code)
}

func TestCourseServiceCreateRejectsInvertedCredits(t *testing.T) {
	repo := &memoryCourseRepo{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewCourseService(repo, validate, testLogger())

	_, err := svc.Create(context.Background(), dto.CourseCreateRequest{
		Code:       "CS-A1110",
		Name:       "Programming 1",
		MinCredits: 10,
		MaxCredits: 5,
	})
	require.ErrorIs(t, err, ErrInvalidCreditRange)
	require.Empty(t, repo.courses)
}

func TestCourseServiceGetUnknown(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewCourseService(&memoryCourseRepo{courses: map[uint]models.Course{}}, validate, testLogger())

	_, err := svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrCourseNotFound)
}
