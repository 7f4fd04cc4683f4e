package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobConfig is the legacy single-entity form of the job spec/execution pair:
// deploy and stop mutate the config in place instead of spawning execution
// records.
type JobConfig struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobName        string         `gorm:"column:job_name;not null;uniqueIndex" json:"job_name"`
	ArtifactID     uuid.UUID      `gorm:"type:uuid;column:artifact_id;not null;index" json:"artifact_id"`
	EntryClass     string         `gorm:"column:entry_class;not null" json:"entry_class"`
	Parallelism    int            `gorm:"column:parallelism;not null;default:1" json:"parallelism"`
	ProgramArgs    datatypes.JSON `gorm:"column:program_args;type:jsonb" json:"program_args"`
	SavepointPath  *string        `gorm:"column:savepoint_path" json:"savepoint_path,omitempty"`
	FlinkConfig    datatypes.JSON `gorm:"column:flink_config;type:jsonb" json:"flink_config"`
	Status         JobStatus      `gorm:"column:status;not null;default:'created';index" json:"status"`
	FlinkJobID     *string        `gorm:"column:flink_job_id" json:"flink_job_id,omitempty"`
	CreatedBy      string         `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	LastDeployedAt *time.Time     `gorm:"column:last_deployed_at" json:"last_deployed_at,omitempty"`
}

func (JobConfig) TableName() string { return "job_config" }
