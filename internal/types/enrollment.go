package types

import (
	"time"

	"github.com/google/uuid"
)

type EnrollmentStatus string

const (
	EnrollmentEnrolled EnrollmentStatus = "enrolled"
	EnrollmentComplete EnrollmentStatus = "completed"
	EnrollmentDropped  EnrollmentStatus = "dropped"
)

type Enrollment struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course" json:"student_id"`
	CourseID  uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course;index" json:"course_id"`
	Status    EnrollmentStatus `gorm:"not null;column:status" json:"status"`
	// Grade is the final letter grade recorded by the instructor. When set it
	// overrides any computed course grade.
	Grade *string `gorm:"column:grade" json:"grade,omitempty"`
	// TransactionID is the ledger transaction anchoring this enrollment.
	// Opaque, nullable until anchoring succeeds, written at most once.
	TransactionID *string   `gorm:"column:transaction_id" json:"transaction_id,omitempty"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollment" }

func (e *Enrollment) Anchored() bool {
	return e != nil && e.TransactionID != nil && *e.TransactionID != ""
}
