package models

import (
	"time"

	"github.com/aalto-grades/aalto-grades-sub002/internal/graph"
)

// TaskGrade is one recorded measurement for a (student, task) pair. A student
// may hold several grades for the same task, e.g. resubmissions; the engine's
// selection policy decides which one counts. Rows are immutable once written
// except for administrative correction.
type TaskGrade struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index:idx_task_grades_user_task" json:"user_id"`
	CourseTaskID uint       `gorm:"not null;index:idx_task_grades_user_task" json:"course_task_id"`
	Grade        float64    `gorm:"not null" json:"grade"`
	Date         time.Time  `gorm:"not null" json:"date"`
	ExpiryDate   *time.Time `json:"expiry_date"`
	Comment      string     `gorm:"type:text" json:"comment"`
	Manual       bool       `gorm:"not null;default:false" json:"manual"`
	GraderID     *uint      `json:"grader_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CourseTask   CourseTask `json:"-"`
}

// Raw converts the stored row into the engine's value type.
func (g TaskGrade) Raw() graph.RawGrade {
	return graph.RawGrade{
		Grade:      g.Grade,
		Date:       g.Date,
		ExpiryDate: g.ExpiryDate,
		Manual:     g.Manual,
		Comment:    g.Comment,
	}
}
