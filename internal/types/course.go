package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CourseStatus string

const (
	CourseActive    CourseStatus = "active"
	CourseCompleted CourseStatus = "completed"
	CourseCancelled CourseStatus = "cancelled"
)

func (s CourseStatus) Valid() bool {
	switch s {
	case CourseActive, CourseCompleted, CourseCancelled:
		return true
	}
	return false
}

type Course struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Code         string         `gorm:"uniqueIndex;not null;column:code" json:"code"`
	Title        string         `gorm:"not null;column:title" json:"title"`
	Description  string         `gorm:"column:description" json:"description"`
	Credits      int            `gorm:"not null;column:credits" json:"credits"`
	Capacity     int            `gorm:"not null;column:capacity" json:"capacity"`
	Term         string         `gorm:"not null;column:term" json:"term"`
	Year         int            `gorm:"not null;column:year" json:"year"`
	Department   string         `gorm:"not null;column:department" json:"department"`
	Fee          float64        `gorm:"not null;default:0;column:fee" json:"fee"`
	Status       CourseStatus   `gorm:"not null;column:status" json:"status"`
	InstructorID *uuid.UUID     `gorm:"type:uuid;index" json:"instructor_id,omitempty"`
	Instructor   *User          `gorm:"foreignKey:InstructorID;references:ID" json:"instructor,omitempty"`
	// ContractAddress is the ledger asset id anchoring this course. Opaque,
	// nullable until anchoring succeeds, written at most once.
	ContractAddress *string        `gorm:"column:contract_address" json:"contract_address,omitempty"`
	Metadata        datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "course" }
