package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AnchorEntity string

const (
	AnchorCourse     AnchorEntity = "course"
	AnchorEnrollment AnchorEntity = "enrollment"
)

type AnchorJobStatus string

const (
	AnchorQueued    AnchorJobStatus = "queued"
	AnchorRunning   AnchorJobStatus = "running"
	AnchorSucceeded AnchorJobStatus = "succeeded"
	AnchorFailed    AnchorJobStatus = "failed"
)

// AnchorJob is one pending ledger write. Local rows commit first; the worker
// retries anchoring in the background so ledger latency never sits on the
// request path.
type AnchorJob struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType  AnchorEntity    `gorm:"not null;index:idx_anchor_entity;column:entity_type" json:"entity_type"`
	EntityID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_anchor_entity" json:"entity_id"`
	Status      AnchorJobStatus `gorm:"not null;index;column:status" json:"status"`
	Attempts    int             `gorm:"not null;default:0;column:attempts" json:"attempts"`
	LastError   string          `gorm:"column:last_error" json:"last_error,omitempty"`
	LastErrorAt *time.Time      `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	Payload     datatypes.JSON  `gorm:"column:payload" json:"payload,omitempty"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`
}

func (AnchorJob) TableName() string { return "anchor_job" }
