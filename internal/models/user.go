package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
)

// Valid reports whether r is one of the two supported roles.
// Role is a closed enumeration; there is no admin or proctor tier here.
func (r UserRole) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

type User struct {
	ID           string   `json:"id" gorm:"primaryKey;size:36"`
	FirstName    string   `json:"first_name" gorm:"not null;size:100" validate:"required,max=100"`
	LastName     string   `json:"last_name" gorm:"not null;size:100" validate:"required,max=100"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null;size:255" validate:"required,email"`
	Username     string   `json:"username" gorm:"uniqueIndex;not null;size:100" validate:"required,min=4,max=100"`
	PasswordHash string   `json:"-" gorm:"not null;size:255"`
	Role         UserRole `json:"role" gorm:"not null;size:20;index" validate:"required,oneof=student teacher"`
	Institution  string   `json:"institution" gorm:"not null;size:200" validate:"required,max=200"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// Summary is the enrollment-roster projection of a user. It never
// carries credentials.
type UserSummary struct {
	ID        string   `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}
