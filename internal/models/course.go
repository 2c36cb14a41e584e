package models

import "time"

// Course is the root entity grading models and grade sources belong to.
type Course struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Code       string    `gorm:"size:32;not null" json:"code"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	MinCredits int       `json:"min_credits"`
	MaxCredits int       `json:"max_credits"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Tasks      []CourseTask
}
