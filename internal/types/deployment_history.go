package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeploymentHistory is the append-only audit trail for job config deploys.
type DeploymentHistory struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobID        uuid.UUID      `gorm:"type:uuid;column:job_id;not null;index" json:"job_id"`
	ArtifactID   uuid.UUID      `gorm:"type:uuid;column:artifact_id;not null" json:"artifact_id"`
	Action       string         `gorm:"column:action;not null" json:"action"`
	DeployedBy   string         `gorm:"column:deployed_by;not null" json:"deployed_by"`
	DeployedAt   time.Time      `gorm:"column:deployed_at;not null;default:now()" json:"deployed_at"`
	OldStatus    *JobStatus     `gorm:"column:old_status" json:"old_status,omitempty"`
	NewStatus    JobStatus      `gorm:"column:new_status;not null" json:"new_status"`
	FlinkJobID   *string        `gorm:"column:flink_job_id" json:"flink_job_id,omitempty"`
	ErrorMessage *string        `gorm:"column:error_message" json:"error_message,omitempty"`
	Details      datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
}

func (DeploymentHistory) TableName() string { return "deployment_history" }
