package dto

import (
	"time"

	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
)

// CourseCreateRequest carries a new course.
type CourseCreateRequest struct {
	Code       string `json:"code" validate:"required,max=32"`
	Name       string `json:"name" validate:"required,max=255"`
	MinCredits int    `json:"min_credits" validate:"gte=0"`
	MaxCredits int    `json:"max_credits" validate:"gte=0"`
}

// CourseResponse is the API shape of a course.
type CourseResponse struct {
	ID         uint      `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	MinCredits int       `json:"min_credits"`
	MaxCredits int       `json:"max_credits"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewCourseResponse converts a course row.
func NewCourseResponse(course models.Course) CourseResponse {
	return CourseResponse{
		ID:         course.ID,
		Code:       course.Code,
		Name:       course.Name,
		MinCredits: course.MinCredits,
		MaxCredits: course.MaxCredits,
		CreatedAt:  course.CreatedAt,
	}
}

// NewCourseResponseSlice converts a slice of course rows.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}
	return responses
}
