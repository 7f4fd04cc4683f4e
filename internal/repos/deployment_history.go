package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/types"
)

// DeploymentHistoryRepo mirrors ExecutionHistoryRepo for the job config
// family: append and read only.
type DeploymentHistoryRepo interface {
	Append(ctx context.Context, tx *gorm.DB, entry *types.DeploymentHistory) (*types.DeploymentHistory, error)
	ListByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.DeploymentHistory, error)
	Latest(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*types.DeploymentHistory, error)
}

type deploymentHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeploymentHistoryRepo(db *gorm.DB, baseLog *logger.Logger) DeploymentHistoryRepo {
	return &deploymentHistoryRepo{
		db:  db,
		log: baseLog.With("repo", "DeploymentHistoryRepo"),
	}
}

func (r *deploymentHistoryRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.DeploymentHistory) (*types.DeploymentHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	latest, err := r.Latest(ctx, transaction, entry.JobID)
	if err != nil {
		return nil, err
	}
	var prev *types.JobStatus
	if latest != nil {
		prev = &latest.NewStatus
	}
	if err := checkHistoryChain(prev, entry.OldStatus); err != nil {
		return nil, err
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *deploymentHistoryRepo) ListByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.DeploymentHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.DeploymentHistory
	err := transaction.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("deployed_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *deploymentHistoryRepo) Latest(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*types.DeploymentHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var entry types.DeploymentHistory
	err := transaction.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("deployed_at DESC").
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == uuid.Nil {
		return nil, nil
	}
	return &entry, nil
}
