package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/types"
)

type JobSpecFilter struct {
	JobSpecName string
	CreatedBy   string
}

type JobSpecRepo interface {
	Create(ctx context.Context, tx *gorm.DB, spec *types.JobSpec) (*types.JobSpec, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobSpec, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.JobSpec, error)
	List(ctx context.Context, tx *gorm.DB, filter JobSpecFilter, opts ListOptions) ([]*types.JobSpec, int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
}

type jobSpecRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobSpecRepo(db *gorm.DB, baseLog *logger.Logger) JobSpecRepo {
	return &jobSpecRepo{
		db:  db,
		log: baseLog.With("repo", "JobSpecRepo"),
	}
}

func (r *jobSpecRepo) Create(ctx context.Context, tx *gorm.DB, spec *types.JobSpec) (*types.JobSpec, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(spec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return spec, nil
}

func (r *jobSpecRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobSpec, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var spec types.JobSpec
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&spec).Error
	if err != nil {
		return nil, err
	}
	if spec.ID == uuid.Nil {
		return nil, nil
	}
	return &spec, nil
}

func (r *jobSpecRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.JobSpec, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var spec types.JobSpec
	err := transaction.WithContext(ctx).
		Where("job_spec_name = ?", name).
		Limit(1).
		Find(&spec).Error
	if err != nil {
		return nil, err
	}
	if spec.ID == uuid.Nil {
		return nil, nil
	}
	return &spec, nil
}

var jobSpecSortColumns = map[string]string{
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"job_spec_name": "job_spec_name",
	"created_by":    "created_by",
}

func (r *jobSpecRepo) List(ctx context.Context, tx *gorm.DB, filter JobSpecFilter, opts ListOptions) ([]*types.JobSpec, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	opts = opts.Normalized()

	q := transaction.WithContext(ctx).Model(&types.JobSpec{})
	if filter.JobSpecName != "" {
		q = q.Where("job_spec_name ILIKE ?", "%"+filter.JobSpecName+"%")
	}
	if filter.CreatedBy != "" {
		q = q.Where("created_by = ?", filter.CreatedBy)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*types.JobSpec
	q = applySort(q, opts, jobSpecSortColumns, "created_at")
	if err := q.Offset(opts.Offset()).Limit(opts.Size).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *jobSpecRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return false, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	result := transaction.WithContext(ctx).
		Model(&types.JobSpec{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, ErrDuplicateKey
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *jobSpecRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	result := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.JobSpec{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
