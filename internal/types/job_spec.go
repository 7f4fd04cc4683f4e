package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobSpec is a reusable template describing how to run an artifact. Runtime
// state lives on Execution, never here.
type JobSpec struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobSpecName   string         `gorm:"column:job_spec_name;not null;uniqueIndex" json:"job_spec_name"`
	ArtifactID    uuid.UUID      `gorm:"type:uuid;column:artifact_id;not null;index" json:"artifact_id"`
	EntryClass    string         `gorm:"column:entry_class;not null" json:"entry_class"`
	Parallelism   int            `gorm:"column:parallelism;not null;default:1" json:"parallelism"`
	ProgramArgs   datatypes.JSON `gorm:"column:program_args;type:jsonb" json:"program_args"`
	SavepointPath *string        `gorm:"column:savepoint_path" json:"savepoint_path,omitempty"`
	FlinkConfig   datatypes.JSON `gorm:"column:flink_config;type:jsonb" json:"flink_config"`
	CreatedBy     string         `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (JobSpec) TableName() string { return "job_spec" }
