package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ExecutionHistory is append-only. Rows are never updated or deleted; each
// entry's OldStatus must equal the NewStatus of the previous entry for the
// same execution (nil only on the first entry).
type ExecutionHistory struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExecutionID uuid.UUID      `gorm:"type:uuid;column:execution_id;not null;index" json:"execution_id"`
	Action      string         `gorm:"column:action;not null" json:"action"`
	PerformedBy string         `gorm:"column:performed_by;not null" json:"performed_by"`
	PerformedAt time.Time      `gorm:"column:performed_at;not null;default:now()" json:"performed_at"`
	OldStatus   *JobStatus     `gorm:"column:old_status" json:"old_status,omitempty"`
	NewStatus   JobStatus      `gorm:"column:new_status;not null" json:"new_status"`
	Details     datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
}

func (ExecutionHistory) TableName() string { return "execution_history" }
