package types

import (
	"time"

	"github.com/google/uuid"
)

type Submission struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_submission_assignment_student" json:"assignment_id"`
	StudentID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_submission_assignment_student" json:"student_id"`
	Content      string    `gorm:"column:content" json:"content"`
	FilePath     string    `gorm:"column:file_path" json:"file_path,omitempty"`
	SubmittedAt  time.Time `gorm:"not null;column:submitted_at" json:"submitted_at"`
}

func (Submission) TableName() string { return "submission" }
