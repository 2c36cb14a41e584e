package dto

import "time"

// CourseGradeSummary aggregates the persisted final grades of one course.
// Summaries are cached; GeneratedAt tells the client how fresh the numbers
// are.
type CourseGradeSummary struct {
	CourseID     uint      `json:"course_id"`
	StudentCount int       `json:"student_count"`
	MeanGrade    float64   `json:"mean_grade"`
	MinGrade     float64   `json:"min_grade"`
	MaxGrade     float64   `json:"max_grade"`
	GeneratedAt  time.Time `json:"generated_at"`
}
