package types

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleProfessor, RoleAdmin:
		return true
	}
	return false
}

// User is the common identity record. Role is immutable after creation;
// role-specific attributes live on StudentProfile / ProfessorProfile rather
// than as nullable columns here.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	PasswordHash string    `gorm:"not null;column:password_hash" json:"-"`
	Name         string    `gorm:"not null;column:name" json:"name"`
	Role         Role      `gorm:"not null;column:role" json:"role"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`

	StudentProfile   *StudentProfile   `gorm:"foreignKey:UserID;references:ID" json:"student_profile,omitempty"`
	ProfessorProfile *ProfessorProfile `gorm:"foreignKey:UserID;references:ID" json:"professor_profile,omitempty"`
}

func (User) TableName() string { return "user" }

type StudentProfile struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"-"`
	StudentNumber string    `gorm:"uniqueIndex;column:student_number" json:"student_number"`
	Major         string    `gorm:"column:major" json:"major"`
	Year          int       `gorm:"column:year" json:"year"`
}

func (StudentProfile) TableName() string { return "student_profile" }

type ProfessorProfile struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"-"`
	ProfessorNumber string    `gorm:"uniqueIndex;column:professor_number" json:"professor_number"`
	Department      string    `gorm:"column:department" json:"department"`
	Title           string    `gorm:"column:title" json:"title"`
}

func (ProfessorProfile) TableName() string { return "professor_profile" }
