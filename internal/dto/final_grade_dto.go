package dto

import (
	"time"

	"github.com/aalto-grades/aalto-grades-sub002/internal/graph"
	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
)

// CalculateFinalGradesRequest asks for final grades for a set of students
// using one grading model.
type CalculateFinalGradesRequest struct {
	GradingModelID uint   `json:"grading_model_id" validate:"required"`
	UserIDs        []uint `json:"user_ids" validate:"required,min=1,dive,required"`
}

// StudentCalculationResult is the outcome of one student's evaluation.
// Only passing results are persisted as final grades; pending and failing
// outcomes are reported back so the caller can tell them apart.
type StudentCalculationResult struct {
	UserID uint         `json:"user_id"`
	Grade  float64      `json:"grade"`
	Status graph.Status `json:"status"`
	Stored bool         `json:"stored"`
}

// CalculateFinalGradesResponse groups per-student outcomes of a batch run.
type CalculateFinalGradesResponse struct {
	GradingModelID uint                       `json:"grading_model_id"`
	Results        []StudentCalculationResult `json:"results"`
}

// FinalGradeResponse is the API shape of a persisted final grade.
type FinalGradeResponse struct {
	ID             uint      `json:"id"`
	UserID         uint      `json:"user_id"`
	CourseID       uint      `json:"course_id"`
	GradingModelID *uint     `json:"grading_model_id"`
	Grade          float64   `json:"grade"`
	Date           time.Time `json:"date"`
	Comment        string    `json:"comment"`
}

// NewFinalGradeResponse converts a final grade row.
func NewFinalGradeResponse(grade models.FinalGrade) FinalGradeResponse {
	return FinalGradeResponse{
		ID:             grade.ID,
		UserID:         grade.UserID,
		CourseID:       grade.CourseID,
		GradingModelID: grade.GradingModelID,
		Grade:          grade.Grade,
		Date:           grade.Date,
		Comment:        grade.Comment,
	}
}

// NewFinalGradeResponseSlice converts a slice of final grade rows.
func NewFinalGradeResponseSlice(grades []models.FinalGrade) []FinalGradeResponse {
	responses := make([]FinalGradeResponse, 0, len(grades))
	for _, grade := range grades {
		responses = append(responses, NewFinalGradeResponse(grade))
	}
	return responses
}
