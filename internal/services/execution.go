package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streamhub/flink-manager/internal/platform/apierr"
	"github.com/streamhub/flink-manager/internal/platform/flink"
	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/repos"
	"github.com/streamhub/flink-manager/internal/types"
)

type ExecutionService interface {
	// Start submits the job spec to the cluster and only then records the
	// execution. A failed submission leaves no state behind.
	Start(ctx context.Context, jobSpecID uuid.UUID, startedBy string) (*types.Execution, error)
	// Stop cancels a running execution, optionally taking a savepoint first.
	Stop(ctx context.Context, executionID uuid.UUID, savepoint bool, savepointPath string) (*types.Execution, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Execution, error)
	List(ctx context.Context, filter repos.ExecutionFilter, opts repos.ListOptions) ([]*types.Execution, int64, error)
	History(ctx context.Context, executionID uuid.UUID) ([]*types.ExecutionHistory, error)
}

type executionService struct {
	db            *gorm.DB
	log           *logger.Logger
	launcher      *launcher
	jobSpecRepo   repos.JobSpecRepo
	artifactRepo  repos.ArtifactRepo
	executionRepo repos.ExecutionRepo
	historyRepo   repos.ExecutionHistoryRepo
	objectURL     func(key string) string
}

func NewExecutionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	flinkClient flink.Client,
	jobSpecRepo repos.JobSpecRepo,
	artifactRepo repos.ArtifactRepo,
	executionRepo repos.ExecutionRepo,
	historyRepo repos.ExecutionHistoryRepo,
	objectURL func(key string) string,
) ExecutionService {
	serviceLog := baseLog.With("service", "ExecutionService")
	return &executionService{
		db:            db,
		log:           serviceLog,
		launcher:      newLauncher(serviceLog, flinkClient),
		jobSpecRepo:   jobSpecRepo,
		artifactRepo:  artifactRepo,
		executionRepo: executionRepo,
		historyRepo:   historyRepo,
		objectURL:     objectURL,
	}
}

func (s *executionService) Start(ctx context.Context, jobSpecID uuid.UUID, startedBy string) (*types.Execution, error) {
	if startedBy == "" {
		return nil, apierr.Validation("missing_started_by", fmt.Errorf("started_by is required"))
	}

	spec, err := s.jobSpecRepo.GetByID(ctx, nil, jobSpecID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if spec == nil {
		return nil, apierr.NotFound("job_spec_not_found", fmt.Errorf("job spec %s does not exist", jobSpecID))
	}
	artifact, err := s.artifactRepo.GetByID(ctx, nil, spec.ArtifactID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if artifact == nil {
		return nil, apierr.NotFound("artifact_not_found", fmt.Errorf("artifact %s does not exist", spec.ArtifactID))
	}

	submitReq := flink.SubmitRequest{
		JarLocation:   s.objectURL(artifact.StorageKey),
		EntryClass:    spec.EntryClass,
		Parallelism:   spec.Parallelism,
		ProgramArgs:   decodeStringSlice(spec.ProgramArgs),
		Configuration: decodeStringMap(spec.FlinkConfig),
	}
	if spec.SavepointPath != nil {
		submitReq.SavepointPath = *spec.SavepointPath
	}

	// Submission happens before anything is persisted, so a cluster failure
	// leaves no partial execution record.
	flinkJobID, err := s.launcher.submit(ctx, submitReq)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	execution := &types.Execution{
		JobSpecID:  jobSpecID,
		FlinkJobID: &flinkJobID,
		Status:     types.JobStatusRunning,
		StartedBy:  startedBy,
		StartedAt:  &now,
	}
	// The execution row and its START history entry commit together, so the
	// record never exists without its first audit entry.
	err = runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := s.executionRepo.Create(ctx, tx, execution); err != nil {
			return err
		}
		entry := &types.ExecutionHistory{
			ExecutionID: execution.ID,
			Action:      types.ActionStart,
			PerformedBy: startedBy,
			PerformedAt: now,
			OldStatus:   nil,
			NewStatus:   types.JobStatusRunning,
			Details:     jsonColumn(map[string]interface{}{"job_spec_id": jobSpecID}),
		}
		_, err := s.historyRepo.Append(ctx, tx, entry)
		return err
	})
	if err != nil {
		s.log.Error("Failed to persist execution", "job_spec_id", jobSpecID, "error", err)
		s.launcher.cancelRemote(ctx, flinkJobID)
		return nil, apierr.Storage(err)
	}

	s.log.Info("Started execution",
		"execution_id", execution.ID,
		"job_spec_id", jobSpecID,
		"flink_job_id", flinkJobID,
		"started_by", startedBy,
	)
	return execution, nil
}

func (s *executionService) Stop(ctx context.Context, executionID uuid.UUID, savepoint bool, savepointPath string) (*types.Execution, error) {
	unlock := s.launcher.lock(executionID)
	defer unlock()

	execution, err := s.executionRepo.GetByID(ctx, nil, executionID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if execution == nil {
		return nil, apierr.NotFound("execution_not_found", fmt.Errorf("execution %s does not exist", executionID))
	}
	if execution.Status != types.JobStatusRunning {
		return nil, apierr.Conflict("execution_not_running",
			fmt.Errorf("execution %s is %s, only running executions can be stopped", executionID, execution.Status))
	}
	if execution.FlinkJobID == nil {
		return nil, apierr.Conflict("execution_not_submitted",
			fmt.Errorf("execution %s has no flink job id", executionID))
	}

	// A failed remote stop leaves the execution untouched and unaudited.
	if err := s.launcher.stopRemote(ctx, *execution.FlinkJobID, savepoint, savepointPath); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	oldStatus := types.JobStatusRunning
	// The STOP history entry and the status transition commit together: a
	// failure on either side rolls back both, so the row can never read as
	// canceled without an audit entry recording who canceled it.
	err = runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		entry := &types.ExecutionHistory{
			ExecutionID: executionID,
			Action:      types.ActionStop,
			PerformedBy: execution.StartedBy,
			PerformedAt: now,
			OldStatus:   &oldStatus,
			NewStatus:   types.JobStatusCanceled,
			Details: jsonColumn(map[string]interface{}{
				"savepoint":      savepoint,
				"savepoint_path": savepointPath,
			}),
		}
		if _, err := s.historyRepo.Append(ctx, tx, entry); err != nil {
			return err
		}
		transitioned, err := s.executionRepo.TransitionStatus(ctx, tx, executionID,
			types.JobStatusRunning, types.JobStatusCanceled,
			map[string]interface{}{"finished_at": now})
		if err != nil {
			return err
		}
		if !transitioned {
			return errConcurrentTransition
		}
		return nil
	})
	if errors.Is(err, errConcurrentTransition) {
		return nil, apierr.Conflict("execution_not_running",
			fmt.Errorf("execution %s changed state concurrently", executionID))
	}
	if err != nil {
		s.log.Error("Failed to record execution stop", "execution_id", executionID, "error", err)
		return nil, apierr.Storage(err)
	}

	s.log.Info("Stopped execution",
		"execution_id", executionID,
		"flink_job_id", *execution.FlinkJobID,
		"savepoint", savepoint,
	)
	execution.Status = types.JobStatusCanceled
	execution.FinishedAt = &now
	return execution, nil
}

func (s *executionService) Get(ctx context.Context, id uuid.UUID) (*types.Execution, error) {
	execution, err := s.executionRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if execution == nil {
		return nil, apierr.NotFound("execution_not_found", fmt.Errorf("execution %s does not exist", id))
	}
	return execution, nil
}

func (s *executionService) List(ctx context.Context, filter repos.ExecutionFilter, opts repos.ListOptions) ([]*types.Execution, int64, error) {
	items, total, err := s.executionRepo.List(ctx, nil, filter, opts)
	if err != nil {
		return nil, 0, apierr.Storage(err)
	}
	return items, total, nil
}

func (s *executionService) History(ctx context.Context, executionID uuid.UUID) ([]*types.ExecutionHistory, error) {
	execution, err := s.executionRepo.GetByID(ctx, nil, executionID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if execution == nil {
		return nil, apierr.NotFound("execution_not_found", fmt.Errorf("execution %s does not exist", executionID))
	}
	entries, err := s.historyRepo.ListByExecution(ctx, nil, executionID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	return entries, nil
}
