package types

import (
	"time"

	"github.com/google/uuid"
)

// Grade is the per-assignment score for one student. At most one row per
// (assignment, student); upserts refresh GradedAt.
type Grade struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_grade_assignment_student" json:"assignment_id"`
	StudentID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_grade_assignment_student" json:"student_id"`
	SubmissionID *uuid.UUID `gorm:"type:uuid" json:"submission_id,omitempty"`
	Score        float64    `gorm:"not null;column:score" json:"score"`
	Feedback     string     `gorm:"column:feedback" json:"feedback"`
	GradedAt     time.Time  `gorm:"not null;column:graded_at" json:"graded_at"`
}

func (Grade) TableName() string { return "grade" }
