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

type CreateJobConfigInput struct {
	JobName       string
	ArtifactID    uuid.UUID
	EntryClass    string
	Parallelism   int
	ProgramArgs   []string
	SavepointPath *string
	FlinkConfig   map[string]string
	CreatedBy     string
}

type UpdateJobConfigInput struct {
	JobName       *string
	EntryClass    *string
	Parallelism   *int
	ProgramArgs   []string
	SavepointPath *string
	FlinkConfig   map[string]string
}

// JobConfigService is the legacy in-place variant of the job spec/execution
// pair: deploy and stop transition the config itself and audit into
// deployment_history.
type JobConfigService interface {
	Create(ctx context.Context, input CreateJobConfigInput) (*types.JobConfig, error)
	Get(ctx context.Context, id uuid.UUID) (*types.JobConfig, error)
	GetByName(ctx context.Context, name string) (*types.JobConfig, error)
	List(ctx context.Context, filter repos.JobConfigFilter, opts repos.ListOptions) ([]*types.JobConfig, int64, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateJobConfigInput) (*types.JobConfig, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Deploy(ctx context.Context, id uuid.UUID, deployedBy string) (*types.JobConfig, error)
	Stop(ctx context.Context, id uuid.UUID, savepoint bool, savepointPath string) (*types.JobConfig, error)
	History(ctx context.Context, id uuid.UUID) ([]*types.DeploymentHistory, error)
}

type jobConfigService struct {
	db            *gorm.DB
	log           *logger.Logger
	launcher      *launcher
	jobConfigRepo repos.JobConfigRepo
	artifactRepo  repos.ArtifactRepo
	historyRepo   repos.DeploymentHistoryRepo
	objectURL     func(key string) string
}

func NewJobConfigService(
	db *gorm.DB,
	baseLog *logger.Logger,
	flinkClient flink.Client,
	jobConfigRepo repos.JobConfigRepo,
	artifactRepo repos.ArtifactRepo,
	historyRepo repos.DeploymentHistoryRepo,
	objectURL func(key string) string,
) JobConfigService {
	serviceLog := baseLog.With("service", "JobConfigService")
	return &jobConfigService{
		db:            db,
		log:           serviceLog,
		launcher:      newLauncher(serviceLog, flinkClient),
		jobConfigRepo: jobConfigRepo,
		artifactRepo:  artifactRepo,
		historyRepo:   historyRepo,
		objectURL:     objectURL,
	}
}

func (s *jobConfigService) Create(ctx context.Context, input CreateJobConfigInput) (*types.JobConfig, error) {
	if err := validateJobName(input.JobName); err != nil {
		return nil, err
	}
	if input.EntryClass == "" {
		return nil, apierr.Validation("missing_entry_class", fmt.Errorf("entry_class is required"))
	}
	if input.Parallelism == 0 {
		input.Parallelism = 1
	}
	if err := validateParallelism(input.Parallelism); err != nil {
		return nil, err
	}
	if input.CreatedBy == "" {
		return nil, apierr.Validation("missing_created_by", fmt.Errorf("created_by is required"))
	}

	artifact, err := s.artifactRepo.GetByID(ctx, nil, input.ArtifactID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if artifact == nil {
		return nil, apierr.NotFound("artifact_not_found", fmt.Errorf("artifact %s does not exist", input.ArtifactID))
	}

	existing, err := s.jobConfigRepo.GetByName(ctx, nil, input.JobName)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if existing != nil {
		return nil, apierr.Conflict("job_name_exists", fmt.Errorf("job %q already exists", input.JobName))
	}

	config := &types.JobConfig{
		JobName:       input.JobName,
		ArtifactID:    input.ArtifactID,
		EntryClass:    input.EntryClass,
		Parallelism:   input.Parallelism,
		ProgramArgs:   stringSliceColumn(input.ProgramArgs),
		SavepointPath: input.SavepointPath,
		FlinkConfig:   stringMapColumn(input.FlinkConfig),
		Status:        types.JobStatusCreated,
		CreatedBy:     input.CreatedBy,
	}
	created, err := s.jobConfigRepo.Create(ctx, nil, config)
	if err != nil {
		if errors.Is(err, repos.ErrDuplicateKey) {
			return nil, apierr.Conflict("job_name_exists", fmt.Errorf("job %q already exists", input.JobName))
		}
		return nil, apierr.Storage(err)
	}

	s.log.Info("Created job config", "job_id", created.ID, "job_name", created.JobName)
	return created, nil
}

func (s *jobConfigService) Get(ctx context.Context, id uuid.UUID) (*types.JobConfig, error) {
	config, err := s.jobConfigRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if config == nil {
		return nil, apierr.NotFound("job_config_not_found", fmt.Errorf("job config %s does not exist", id))
	}
	return config, nil
}

func (s *jobConfigService) GetByName(ctx context.Context, name string) (*types.JobConfig, error) {
	config, err := s.jobConfigRepo.GetByName(ctx, nil, name)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if config == nil {
		return nil, apierr.NotFound("job_config_not_found", fmt.Errorf("job config %q does not exist", name))
	}
	return config, nil
}

func (s *jobConfigService) List(ctx context.Context, filter repos.JobConfigFilter, opts repos.ListOptions) ([]*types.JobConfig, int64, error) {
	items, total, err := s.jobConfigRepo.List(ctx, nil, filter, opts)
	if err != nil {
		return nil, 0, apierr.Storage(err)
	}
	return items, total, nil
}

func (s *jobConfigService) Update(ctx context.Context, id uuid.UUID, input UpdateJobConfigInput) (*types.JobConfig, error) {
	updates := map[string]interface{}{}
	if input.JobName != nil {
		if err := validateJobName(*input.JobName); err != nil {
			return nil, err
		}
		updates["job_name"] = *input.JobName
	}
	if input.EntryClass != nil {
		if *input.EntryClass == "" {
			return nil, apierr.Validation("missing_entry_class", fmt.Errorf("entry_class cannot be empty"))
		}
		updates["entry_class"] = *input.EntryClass
	}
	if input.Parallelism != nil {
		if err := validateParallelism(*input.Parallelism); err != nil {
			return nil, err
		}
		updates["parallelism"] = *input.Parallelism
	}
	if input.ProgramArgs != nil {
		updates["program_args"] = stringSliceColumn(input.ProgramArgs)
	}
	if input.SavepointPath != nil {
		updates["savepoint_path"] = *input.SavepointPath
	}
	if input.FlinkConfig != nil {
		updates["flink_config"] = stringMapColumn(input.FlinkConfig)
	}
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}

	updated, err := s.jobConfigRepo.UpdateFields(ctx, nil, id, updates)
	if err != nil {
		if errors.Is(err, repos.ErrDuplicateKey) {
			return nil, apierr.Conflict("job_name_exists", fmt.Errorf("job name already in use"))
		}
		return nil, apierr.Storage(err)
	}
	if !updated {
		return nil, apierr.NotFound("job_config_not_found", fmt.Errorf("job config %s does not exist", id))
	}

	s.log.Info("Updated job config", "job_id", id)
	return s.Get(ctx, id)
}

func (s *jobConfigService) Delete(ctx context.Context, id uuid.UUID) error {
	config, err := s.jobConfigRepo.GetByID(ctx, nil, id)
	if err != nil {
		return apierr.Storage(err)
	}
	if config == nil {
		return apierr.NotFound("job_config_not_found", fmt.Errorf("job config %s does not exist", id))
	}
	if config.Status == types.JobStatusRunning {
		return apierr.Conflict("job_running", fmt.Errorf("job config %s is running, stop it first", id))
	}

	deleted, err := s.jobConfigRepo.Delete(ctx, nil, id)
	if err != nil {
		return apierr.Storage(err)
	}
	if !deleted {
		return apierr.NotFound("job_config_not_found", fmt.Errorf("job config %s does not exist", id))
	}

	s.log.Info("Deleted job config", "job_id", id, "job_name", config.JobName)
	return nil
}

func (s *jobConfigService) Deploy(ctx context.Context, id uuid.UUID, deployedBy string) (*types.JobConfig, error) {
	if deployedBy == "" {
		return nil, apierr.Validation("missing_deployed_by", fmt.Errorf("deployed_by is required"))
	}

	unlock := s.launcher.lock(id)
	defer unlock()

	config, err := s.jobConfigRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if config == nil {
		return nil, apierr.NotFound("job_config_not_found", fmt.Errorf("job config %s does not exist", id))
	}
	if config.Status == types.JobStatusRunning {
		return nil, apierr.Conflict("job_already_running", fmt.Errorf("job config %s is already running", id))
	}
	artifact, err := s.artifactRepo.GetByID(ctx, nil, config.ArtifactID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if artifact == nil {
		return nil, apierr.NotFound("artifact_not_found", fmt.Errorf("artifact %s does not exist", config.ArtifactID))
	}

	submitReq := flink.SubmitRequest{
		JarLocation:   s.objectURL(artifact.StorageKey),
		EntryClass:    config.EntryClass,
		Parallelism:   config.Parallelism,
		ProgramArgs:   decodeStringSlice(config.ProgramArgs),
		Configuration: decodeStringMap(config.FlinkConfig),
	}
	if config.SavepointPath != nil {
		submitReq.SavepointPath = *config.SavepointPath
	}

	flinkJobID, err := s.launcher.submit(ctx, submitReq)
	if err != nil {
		return nil, err
	}

	oldStatus := config.Status
	now := time.Now().UTC()
	action := types.ActionStart
	if oldStatus != types.JobStatusCreated {
		action = types.ActionRestart
	}
	// History entry and status transition commit atomically; any failure
	// rolls back both and the remote job is canceled.
	err = runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		entry := &types.DeploymentHistory{
			JobID:      id,
			ArtifactID: config.ArtifactID,
			Action:     action,
			DeployedBy: deployedBy,
			DeployedAt: now,
			OldStatus:  &oldStatus,
			NewStatus:  types.JobStatusRunning,
			FlinkJobID: &flinkJobID,
		}
		if _, err := s.historyRepo.Append(ctx, tx, entry); err != nil {
			return err
		}
		transitioned, err := s.jobConfigRepo.TransitionStatus(ctx, tx, id, oldStatus, types.JobStatusRunning,
			map[string]interface{}{
				"flink_job_id":     flinkJobID,
				"last_deployed_at": now,
			})
		if err != nil {
			return err
		}
		if !transitioned {
			return errConcurrentTransition
		}
		return nil
	})
	if errors.Is(err, errConcurrentTransition) {
		s.launcher.cancelRemote(ctx, flinkJobID)
		return nil, apierr.Conflict("job_status_changed", fmt.Errorf("job config %s changed state concurrently", id))
	}
	if err != nil {
		s.log.Error("Failed to record deployment", "job_id", id, "error", err)
		s.launcher.cancelRemote(ctx, flinkJobID)
		return nil, apierr.Storage(err)
	}

	s.log.Info("Deployed job", "job_id", id, "flink_job_id", flinkJobID, "deployed_by", deployedBy)
	config.Status = types.JobStatusRunning
	config.FlinkJobID = &flinkJobID
	config.LastDeployedAt = &now
	return config, nil
}

func (s *jobConfigService) Stop(ctx context.Context, id uuid.UUID, savepoint bool, savepointPath string) (*types.JobConfig, error) {
	unlock := s.launcher.lock(id)
	defer unlock()

	config, err := s.jobConfigRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if config == nil {
		return nil, apierr.NotFound("job_config_not_found", fmt.Errorf("job config %s does not exist", id))
	}
	if config.Status != types.JobStatusRunning {
		return nil, apierr.Conflict("job_not_running",
			fmt.Errorf("job config %s is %s, only running jobs can be stopped", id, config.Status))
	}
	if config.FlinkJobID == nil {
		return nil, apierr.Conflict("job_not_deployed", fmt.Errorf("job config %s has no flink job id", id))
	}

	if err := s.launcher.stopRemote(ctx, *config.FlinkJobID, savepoint, savepointPath); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	oldStatus := types.JobStatusRunning
	err = runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		entry := &types.DeploymentHistory{
			JobID:      id,
			ArtifactID: config.ArtifactID,
			Action:     types.ActionStop,
			DeployedBy: config.CreatedBy,
			DeployedAt: now,
			OldStatus:  &oldStatus,
			NewStatus:  types.JobStatusCanceled,
			FlinkJobID: config.FlinkJobID,
			Details: jsonColumn(map[string]interface{}{
				"savepoint":      savepoint,
				"savepoint_path": savepointPath,
			}),
		}
		if _, err := s.historyRepo.Append(ctx, tx, entry); err != nil {
			return err
		}
		transitioned, err := s.jobConfigRepo.TransitionStatus(ctx, tx, id,
			types.JobStatusRunning, types.JobStatusCanceled, nil)
		if err != nil {
			return err
		}
		if !transitioned {
			return errConcurrentTransition
		}
		return nil
	})
	if errors.Is(err, errConcurrentTransition) {
		return nil, apierr.Conflict("job_not_running", fmt.Errorf("job config %s changed state concurrently", id))
	}
	if err != nil {
		s.log.Error("Failed to record job stop", "job_id", id, "error", err)
		return nil, apierr.Storage(err)
	}

	s.log.Info("Stopped job", "job_id", id, "flink_job_id", *config.FlinkJobID, "savepoint", savepoint)
	config.Status = types.JobStatusCanceled
	return config, nil
}

func (s *jobConfigService) History(ctx context.Context, id uuid.UUID) ([]*types.DeploymentHistory, error) {
	config, err := s.jobConfigRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if config == nil {
		return nil, apierr.NotFound("job_config_not_found", fmt.Errorf("job config %s does not exist", id))
	}
	entries, err := s.historyRepo.ListByJob(ctx, nil, id)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	return entries, nil
}
