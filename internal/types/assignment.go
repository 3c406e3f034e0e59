package types

import (
	"time"

	"github.com/google/uuid"
)

type Assignment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	DueDate     time.Time `gorm:"not null;column:due_date" json:"due_date"`
	Points      int       `gorm:"not null;column:points" json:"points"`
	// Weight is the assignment's relative contribution to the course grade.
	Weight    float64   `gorm:"not null;column:weight" json:"weight"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Assignment) TableName() string { return "assignment" }
