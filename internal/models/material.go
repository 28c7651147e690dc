package models

import (
	"time"

	"gorm.io/datatypes"
)

// Material is a stored course artifact. The bytes live in the blob
// store; this row only holds metadata and the blob reference.
type Material struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Key         string  `json:"key" gorm:"not null;size:255;uniqueIndex:idx_course_key"`
	CourseID    string  `json:"course_id" gorm:"not null;size:36;uniqueIndex:idx_course_key;index"`
	Title       string  `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Description *string `json:"description,omitempty" gorm:"type:text" validate:"omitempty,max=1000"`

	// Blob reference
	BlobBucket  string `json:"-" gorm:"not null;size:100"`
	BlobKey     string `json:"-" gorm:"not null;size:500"`
	ContentType string `json:"content_type" gorm:"not null;size:100"`
	SizeBytes   int64  `json:"size_bytes" gorm:"not null"`

	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`

	UploadedAt time.Time `json:"uploaded_at" gorm:"not null;index"`

	// Relations
	Course Course `json:"-" gorm:"foreignKey:CourseID"`
}

func (Material) TableName() string {
	return "materials"
}
