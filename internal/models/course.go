package models

import (
	"time"

	"gorm.io/gorm"
)

type CourseTerm string

const (
	TermFall   CourseTerm = "Fall"
	TermSpring CourseTerm = "Spring"
	TermSummer CourseTerm = "Summer"
)

// Valid reports whether t is one of the supported academic terms.
func (t CourseTerm) Valid() bool {
	switch t {
	case TermFall, TermSpring, TermSummer:
		return true
	}
	return false
}

type Course struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	CourseName   string     `json:"course_name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Department   string     `json:"department" gorm:"not null;size:100" validate:"required,max=100"`
	CourseNumber string     `json:"course_number" gorm:"not null;size:20" validate:"required,max=20"`
	Term         CourseTerm `json:"term" gorm:"not null;size:10" validate:"required,oneof=Fall Spring Summer"`
	Year         int        `json:"year" gorm:"not null" validate:"required,min=2000,max=2100"`
	Institution  string     `json:"institution" gorm:"not null;size:200" validate:"required,max=200"`

	// TeacherID is always taken from the authenticated caller, never
	// from a request payload.
	TeacherID string `json:"teacher_id" gorm:"not null;index;size:36"`

	// EnrollmentCode is nil until the owning teacher first generates
	// one. The unique index is the serialization point that keeps two
	// simultaneously-active courses from holding the same code.
	EnrollmentCode  *string    `json:"enrollment_code,omitempty" gorm:"uniqueIndex;size:6"`
	CodeGeneratedAt *time.Time `json:"code_generated_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Teacher     User         `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	Enrollments []Enrollment `json:"-" gorm:"foreignKey:CourseID"`
	Materials   []Material   `json:"-" gorm:"foreignKey:CourseID"`
}

func (Course) TableName() string {
	return "courses"
}
