package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Artifact struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ArtifactName string         `gorm:"column:artifact_name;not null;uniqueIndex:idx_artifact_name_version" json:"artifact_name"`
	Version      string         `gorm:"column:version;not null;uniqueIndex:idx_artifact_name_version" json:"version"`
	Hash         string         `gorm:"column:hash;not null" json:"hash"`
	EntryClasses datatypes.JSON `gorm:"column:entry_classes;type:jsonb;not null" json:"entry_classes"`
	UploadedBy   string         `gorm:"column:uploaded_by;not null" json:"uploaded_by"`
	UploadedAt   time.Time      `gorm:"column:uploaded_at;not null;default:now()" json:"uploaded_at"`
	FileSize     int64          `gorm:"column:file_size;not null" json:"file_size"`
	Description  string         `gorm:"column:description" json:"description,omitempty"`
	StorageKey   string         `gorm:"column:storage_key;not null" json:"storage_key"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Artifact) TableName() string { return "artifact" }
