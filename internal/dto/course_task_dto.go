package dto

import (
	"time"

	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
)

// CourseTaskCreateRequest carries a new grade source.
type CourseTaskCreateRequest struct {
	Name       string   `json:"name" validate:"required,max=255"`
	MaxGrade   *float64 `json:"max_grade" validate:"omitempty,gte=0"`
	DaysValid  *int     `json:"days_valid" validate:"omitempty,gte=0"`
	ExpiryDate *string  `json:"expiry_date"`
}

// CourseTaskUpdateRequest carries a partial grade-source update.
type CourseTaskUpdateRequest struct {
	Name       *string  `json:"name" validate:"omitempty,max=255"`
	MaxGrade   *float64 `json:"max_grade" validate:"omitempty,gte=0"`
	DaysValid  *int     `json:"days_valid" validate:"omitempty,gte=0"`
	ExpiryDate *string  `json:"expiry_date"`
	Archived   *bool    `json:"archived"`
}

// CourseTaskResponse is the API shape of a grade source.
type CourseTaskResponse struct {
	ID         uint       `json:"id"`
	CourseID   uint       `json:"course_id"`
	Name       string     `json:"name"`
	MaxGrade   *float64   `json:"max_grade"`
	DaysValid  *int       `json:"days_valid"`
	Archived   bool       `json:"archived"`
	ExpiryDate *time.Time `json:"expiry_date"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewCourseTaskResponse converts a course task row.
func NewCourseTaskResponse(task models.CourseTask) CourseTaskResponse {
	return CourseTaskResponse{
		ID:         task.ID,
		CourseID:   task.CourseID,
		Name:       task.Name,
		MaxGrade:   task.MaxGrade,
		DaysValid:  task.DaysValid,
		Archived:   task.Archived,
		ExpiryDate: task.ExpiryDate,
		CreatedAt:  task.CreatedAt,
		UpdatedAt:  task.UpdatedAt,
	}
}

// NewCourseTaskResponseSlice converts a slice of course task rows.
func NewCourseTaskResponseSlice(tasks []models.CourseTask) []CourseTaskResponse {
	responses := make([]CourseTaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, NewCourseTaskResponse(task))
	}
	return responses
}
