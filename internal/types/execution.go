package types

import (
	"time"

	"github.com/google/uuid"
)

// Execution is one concrete run of a job spec against the Flink cluster.
// FlinkJobID is assigned at submission and never reassigned.
type Execution struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobSpecID    uuid.UUID  `gorm:"type:uuid;column:job_spec_id;not null;index" json:"job_spec_id"`
	FlinkJobID   *string    `gorm:"column:flink_job_id" json:"flink_job_id,omitempty"`
	Status       JobStatus  `gorm:"column:status;not null;default:'created';index" json:"status"`
	StartedBy    string     `gorm:"column:started_by;not null" json:"started_by"`
	StartedAt    *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt   *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string    `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Execution) TableName() string { return "execution" }
