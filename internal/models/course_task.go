package models

import "time"

// CourseTask is a grade source: a graded piece of course work that source
// nodes in a grading graph refer to. MaxGrade and DaysValid are nullable;
// a task without DaysValid produces grades that never expire.
type CourseTask struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	CourseID   uint       `gorm:"not null;index" json:"course_id"`
	Name       string     `gorm:"size:255;not null" json:"name"`
	MaxGrade   *float64   `json:"max_grade"`
	DaysValid  *int       `json:"days_valid"`
	Archived   bool       `gorm:"not null;default:false" json:"archived"`
	ExpiryDate *time.Time `json:"expiry_date"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Grades     []TaskGrade
}

// GradeExpiry derives the expiry date for a grade earned on the given date.
// Nil means the grade never expires.
func (t CourseTask) GradeExpiry(earned time.Time) *time.Time {
	if t.DaysValid == nil {
		return nil
	}
	expiry := earned.AddDate(0, 0, *t.DaysValid)
	return &expiry
}
