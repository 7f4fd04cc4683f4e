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

type JobConfigFilter struct {
	Status    types.JobStatus
	CreatedBy string
}

type JobConfigRepo interface {
	Create(ctx context.Context, tx *gorm.DB, config *types.JobConfig) (*types.JobConfig, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobConfig, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.JobConfig, error)
	List(ctx context.Context, tx *gorm.DB, filter JobConfigFilter, opts ListOptions) ([]*types.JobConfig, int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (bool, error)
	// TransitionStatus moves the config between statuses only when it still
	// holds the expected one.
	TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to types.JobStatus, updates map[string]interface{}) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
}

type jobConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobConfigRepo(db *gorm.DB, baseLog *logger.Logger) JobConfigRepo {
	return &jobConfigRepo{
		db:  db,
		log: baseLog.With("repo", "JobConfigRepo"),
	}
}

func (r *jobConfigRepo) Create(ctx context.Context, tx *gorm.DB, config *types.JobConfig) (*types.JobConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(config).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return config, nil
}

func (r *jobConfigRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var config types.JobConfig
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&config).Error
	if err != nil {
		return nil, err
	}
	if config.ID == uuid.Nil {
		return nil, nil
	}
	return &config, nil
}

func (r *jobConfigRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.JobConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var config types.JobConfig
	err := transaction.WithContext(ctx).
		Where("job_name = ?", name).
		Limit(1).
		Find(&config).Error
	if err != nil {
		return nil, err
	}
	if config.ID == uuid.Nil {
		return nil, nil
	}
	return &config, nil
}

var jobConfigSortColumns = map[string]string{
	"created_at":       "created_at",
	"updated_at":       "updated_at",
	"job_name":         "job_name",
	"status":           "status",
	"last_deployed_at": "last_deployed_at",
}

func (r *jobConfigRepo) List(ctx context.Context, tx *gorm.DB, filter JobConfigFilter, opts ListOptions) ([]*types.JobConfig, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	opts = opts.Normalized()

	q := transaction.WithContext(ctx).Model(&types.JobConfig{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CreatedBy != "" {
		q = q.Where("created_by = ?", filter.CreatedBy)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*types.JobConfig
	q = applySort(q, opts, jobConfigSortColumns, "created_at")
	if err := q.Offset(opts.Offset()).Limit(opts.Size).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *jobConfigRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (bool, error) {
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
		Model(&types.JobConfig{}).
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

func (r *jobConfigRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to types.JobStatus, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	result := transaction.WithContext(ctx).
		Model(&types.JobConfig{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *jobConfigRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	result := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.JobConfig{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
