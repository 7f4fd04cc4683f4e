package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/types"
)

type ExecutionFilter struct {
	JobSpecID uuid.UUID
	Status    types.JobStatus
	StartedBy string
}

type ExecutionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, execution *types.Execution) (*types.Execution, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Execution, error)
	List(ctx context.Context, tx *gorm.DB, filter ExecutionFilter, opts ListOptions) ([]*types.Execution, int64, error)
	// TransitionStatus is a compare-and-set: the row moves from one status to
	// another only if it is still in the expected status. Reports whether the
	// transition happened.
	TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to types.JobStatus, updates map[string]interface{}) (bool, error)
	CountActiveByJobSpec(ctx context.Context, tx *gorm.DB, jobSpecID uuid.UUID) (int64, error)
}

type executionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExecutionRepo(db *gorm.DB, baseLog *logger.Logger) ExecutionRepo {
	return &executionRepo{
		db:  db,
		log: baseLog.With("repo", "ExecutionRepo"),
	}
}

func (r *executionRepo) Create(ctx context.Context, tx *gorm.DB, execution *types.Execution) (*types.Execution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(execution).Error; err != nil {
		return nil, err
	}
	return execution, nil
}

func (r *executionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Execution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var execution types.Execution
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&execution).Error
	if err != nil {
		return nil, err
	}
	if execution.ID == uuid.Nil {
		return nil, nil
	}
	return &execution, nil
}

var executionSortColumns = map[string]string{
	"started_at":  "started_at",
	"finished_at": "finished_at",
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"status":      "status",
}

func (r *executionRepo) List(ctx context.Context, tx *gorm.DB, filter ExecutionFilter, opts ListOptions) ([]*types.Execution, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	opts = opts.Normalized()

	q := transaction.WithContext(ctx).Model(&types.Execution{})
	if filter.JobSpecID != uuid.Nil {
		q = q.Where("job_spec_id = ?", filter.JobSpecID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.StartedBy != "" {
		q = q.Where("started_by = ?", filter.StartedBy)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*types.Execution
	q = applySort(q, opts, executionSortColumns, "started_at")
	if err := q.Offset(opts.Offset()).Limit(opts.Size).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *executionRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to types.JobStatus, updates map[string]interface{}) (bool, error) {
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
		Model(&types.Execution{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *executionRepo) CountActiveByJobSpec(ctx context.Context, tx *gorm.DB, jobSpecID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.Execution{}).
		Where("job_spec_id = ? AND status IN ?", jobSpecID, []types.JobStatus{types.JobStatusCreated, types.JobStatusRunning}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
