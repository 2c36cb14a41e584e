package models

import "time"

// FinalGrade is the persisted sink result of evaluating a grading model for
// one student. The per-node calculation results are transient and never
// stored.
type FinalGrade struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	CourseID       uint      `gorm:"not null;index" json:"course_id"`
	GradingModelID *uint     `json:"grading_model_id"`
	Grade          float64   `gorm:"not null" json:"grade"`
	Date           time.Time `gorm:"not null" json:"date"`
	GraderID       *uint     `json:"grader_id"`
	Comment        string    `gorm:"type:text" json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
