package models

import "time"

// Roles recognised by the authorization middleware.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User is a student, teacher, or administrator. Authentication flows live
// outside this service; the row exists so grades can reference real people.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Email         string    `gorm:"size:255;uniqueIndex" json:"email"`
	StudentNumber string    `gorm:"size:32;index" json:"student_number"`
	Role          string    `gorm:"size:32;not null;default:student" json:"role"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
