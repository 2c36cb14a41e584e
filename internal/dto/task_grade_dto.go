package dto

import (
	"time"

	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
)

// TaskGradeCreateRequest records one measurement for a (student, task) pair.
type TaskGradeCreateRequest struct {
	UserID       uint    `json:"user_id" validate:"required"`
	CourseTaskID uint    `json:"course_task_id" validate:"required"`
	Grade        float64 `json:"grade" validate:"gte=0"`
	Date         string  `json:"date" validate:"required"`
	Comment      string  `json:"comment" validate:"max=2000"`
	Manual       bool    `json:"manual"`
}

// TaskGradeResponse is the API shape of a raw task grade.
type TaskGradeResponse struct {
	ID           uint       `json:"id"`
	UserID       uint       `json:"user_id"`
	CourseTaskID uint       `json:"course_task_id"`
	Grade        float64    `json:"grade"`
	Date         time.Time  `json:"date"`
	ExpiryDate   *time.Time `json:"expiry_date"`
	Comment      string     `json:"comment"`
	Manual       bool       `json:"manual"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewTaskGradeResponse converts a task grade row.
func NewTaskGradeResponse(grade models.TaskGrade) TaskGradeResponse {
	return TaskGradeResponse{
		ID:           grade.ID,
		UserID:       grade.UserID,
		CourseTaskID: grade.CourseTaskID,
		Grade:        grade.Grade,
		Date:         grade.Date,
		ExpiryDate:   grade.ExpiryDate,
		Comment:      grade.Comment,
		Manual:       grade.Manual,
		CreatedAt:    grade.CreatedAt,
	}
}

// NewTaskGradeResponseSlice converts a slice of task grade rows.
func NewTaskGradeResponseSlice(grades []models.TaskGrade) []TaskGradeResponse {
	responses := make([]TaskGradeResponse, 0, len(grades))
	for _, grade := range grades {
		responses = append(responses, NewTaskGradeResponse(grade))
	}
	return responses
}

// TaskGradeImportReport summarises a CSV bulk upload.
type TaskGradeImportReport struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
