package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentStatusActive EnrollmentStatus = "active"
)

// Enrollment is the membership relation between a course and a
// student. The (course_id, student_id) pair is unique; redeeming a
// code twice returns the existing row instead of inserting a second
// one.
type Enrollment struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	CourseID  string           `json:"course_id" gorm:"not null;size:36;uniqueIndex:idx_course_student"`
	StudentID string           `json:"student_id" gorm:"not null;size:36;uniqueIndex:idx_course_student;index"`
	Status    EnrollmentStatus `json:"status" gorm:"not null;size:20;default:active"`
	JoinedAt  time.Time        `json:"joined_at" gorm:"not null"`

	// Relations
	Course  Course `json:"-" gorm:"foreignKey:CourseID"`
	Student User   `json:"-" gorm:"foreignKey:StudentID"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
