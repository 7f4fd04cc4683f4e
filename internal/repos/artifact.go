package repos

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/types"
)

// ErrDuplicateKey is returned when an insert violates a unique index.
var ErrDuplicateKey = errors.New("duplicate key")

type ArtifactFilter struct {
	ArtifactName string
}

type ArtifactRepo interface {
	Create(ctx context.Context, tx *gorm.DB, artifact *types.Artifact) (*types.Artifact, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Artifact, error)
	GetByNameVersion(ctx context.Context, tx *gorm.DB, name, version string) (*types.Artifact, error)
	List(ctx context.Context, tx *gorm.DB, filter ArtifactFilter, opts ListOptions) ([]*types.Artifact, int64, error)
	ListVersions(ctx context.Context, tx *gorm.DB, name string) ([]string, error)
	Search(ctx context.Context, tx *gorm.DB, query string) ([]*types.Artifact, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return &artifactRepo{
		db:  db,
		log: baseLog.With("repo", "ArtifactRepo"),
	}
}

func (r *artifactRepo) Create(ctx context.Context, tx *gorm.DB, artifact *types.Artifact) (*types.Artifact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(artifact).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return artifact, nil
}

func (r *artifactRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Artifact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var artifact types.Artifact
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&artifact).Error
	if err != nil {
		return nil, err
	}
	if artifact.ID == uuid.Nil {
		return nil, nil
	}
	return &artifact, nil
}

func (r *artifactRepo) GetByNameVersion(ctx context.Context, tx *gorm.DB, name, version string) (*types.Artifact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var artifact types.Artifact
	err := transaction.WithContext(ctx).
		Where("artifact_name = ? AND version = ?", name, version).
		Limit(1).
		Find(&artifact).Error
	if err != nil {
		return nil, err
	}
	if artifact.ID == uuid.Nil {
		return nil, nil
	}
	return &artifact, nil
}

var artifactSortColumns = map[string]string{
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"uploaded_at":   "uploaded_at",
	"artifact_name": "artifact_name",
	"file_size":     "file_size",
}

func (r *artifactRepo) List(ctx context.Context, tx *gorm.DB, filter ArtifactFilter, opts ListOptions) ([]*types.Artifact, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	opts = opts.Normalized()

	q := transaction.WithContext(ctx).Model(&types.Artifact{})
	if filter.ArtifactName != "" {
		q = q.Where("artifact_name ILIKE ?", "%"+filter.ArtifactName+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*types.Artifact
	q = applySort(q, opts, artifactSortColumns, "created_at")
	if err := q.Offset(opts.Offset()).Limit(opts.Size).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *artifactRepo) ListVersions(ctx context.Context, tx *gorm.DB, name string) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var versions []string
	err := transaction.WithContext(ctx).
		Model(&types.Artifact{}).
		Where("artifact_name = ?", name).
		Pluck("version", &versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *artifactRepo) Search(ctx context.Context, tx *gorm.DB, query string) ([]*types.Artifact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	var out []*types.Artifact
	err := transaction.WithContext(ctx).
		Where("artifact_name ILIKE ? OR description ILIKE ? OR entry_classes::text ILIKE ?", pattern, pattern, pattern).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *artifactRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	result := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Artifact{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
