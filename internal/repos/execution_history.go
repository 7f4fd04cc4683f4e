package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/types"
)

// ExecutionHistoryRepo only appends and reads. There is deliberately no
// update or delete.
type ExecutionHistoryRepo interface {
	Append(ctx context.Context, tx *gorm.DB, entry *types.ExecutionHistory) (*types.ExecutionHistory, error)
	ListByExecution(ctx context.Context, tx *gorm.DB, executionID uuid.UUID) ([]*types.ExecutionHistory, error)
	Latest(ctx context.Context, tx *gorm.DB, executionID uuid.UUID) (*types.ExecutionHistory, error)
}

type executionHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExecutionHistoryRepo(db *gorm.DB, baseLog *logger.Logger) ExecutionHistoryRepo {
	return &executionHistoryRepo{
		db:  db,
		log: baseLog.With("repo", "ExecutionHistoryRepo"),
	}
}

func (r *executionHistoryRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.ExecutionHistory) (*types.ExecutionHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	latest, err := r.Latest(ctx, transaction, entry.ExecutionID)
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

// checkHistoryChain rejects an entry whose old status does not continue the
// last recorded new status. History rows form an unbroken status chain.
func checkHistoryChain(prevNew, oldStatus *types.JobStatus) error {
	if prevNew == nil {
		return nil
	}
	if oldStatus == nil {
		return fmt.Errorf("history entry missing old status, last recorded status is %s", *prevNew)
	}
	if *oldStatus != *prevNew {
		return fmt.Errorf("history entry old status %s does not continue last recorded status %s", *oldStatus, *prevNew)
	}
	return nil
}

func (r *executionHistoryRepo) ListByExecution(ctx context.Context, tx *gorm.DB, executionID uuid.UUID) ([]*types.ExecutionHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ExecutionHistory
	err := transaction.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("performed_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *executionHistoryRepo) Latest(ctx context.Context, tx *gorm.DB, executionID uuid.UUID) (*types.ExecutionHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var entry types.ExecutionHistory
	err := transaction.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("performed_at DESC").
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
