package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streamhub/flink-manager/internal/platform/apierr"
	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/repos"
	"github.com/streamhub/flink-manager/internal/types"
)

type CreateJobSpecInput struct {
	JobSpecName   string
	ArtifactID    uuid.UUID
	EntryClass    string
	Parallelism   int
	ProgramArgs   []string
	SavepointPath *string
	FlinkConfig   map[string]string
	CreatedBy     string
}

// UpdateJobSpecInput is a partial update: nil fields are left untouched.
type UpdateJobSpecInput struct {
	JobSpecName   *string
	EntryClass    *string
	Parallelism   *int
	ProgramArgs   []string
	SavepointPath *string
	FlinkConfig   map[string]string
}

type JobSpecService interface {
	Create(ctx context.Context, input CreateJobSpecInput) (*types.JobSpec, error)
	Get(ctx context.Context, id uuid.UUID) (*types.JobSpec, error)
	GetByName(ctx context.Context, name string) (*types.JobSpec, error)
	List(ctx context.Context, filter repos.JobSpecFilter, opts repos.ListOptions) ([]*types.JobSpec, int64, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateJobSpecInput) (*types.JobSpec, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type jobSpecService struct {
	db            *gorm.DB
	log           *logger.Logger
	jobSpecRepo   repos.JobSpecRepo
	artifactRepo  repos.ArtifactRepo
	executionRepo repos.ExecutionRepo
}

func NewJobSpecService(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobSpecRepo repos.JobSpecRepo,
	artifactRepo repos.ArtifactRepo,
	executionRepo repos.ExecutionRepo,
) JobSpecService {
	return &jobSpecService{
		db:            db,
		log:           baseLog.With("service", "JobSpecService"),
		jobSpecRepo:   jobSpecRepo,
		artifactRepo:  artifactRepo,
		executionRepo: executionRepo,
	}
}

func (s *jobSpecService) Create(ctx context.Context, input CreateJobSpecInput) (*types.JobSpec, error) {
	if err := validateJobName(input.JobSpecName); err != nil {
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

	existing, err := s.jobSpecRepo.GetByName(ctx, nil, input.JobSpecName)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if existing != nil {
		return nil, apierr.Conflict("job_spec_name_exists", fmt.Errorf("job spec %q already exists", input.JobSpecName))
	}

	spec := &types.JobSpec{
		JobSpecName:   input.JobSpecName,
		ArtifactID:    input.ArtifactID,
		EntryClass:    input.EntryClass,
		Parallelism:   input.Parallelism,
		ProgramArgs:   stringSliceColumn(input.ProgramArgs),
		SavepointPath: input.SavepointPath,
		FlinkConfig:   stringMapColumn(input.FlinkConfig),
		CreatedBy:     input.CreatedBy,
	}
	created, err := s.jobSpecRepo.Create(ctx, nil, spec)
	if err != nil {
		if errors.Is(err, repos.ErrDuplicateKey) {
			return nil, apierr.Conflict("job_spec_name_exists", fmt.Errorf("job spec %q already exists", input.JobSpecName))
		}
		return nil, apierr.Storage(err)
	}

	s.log.Info("Created job spec", "job_spec_id", created.ID, "job_spec_name", created.JobSpecName)
	return created, nil
}

func (s *jobSpecService) Get(ctx context.Context, id uuid.UUID) (*types.JobSpec, error) {
	spec, err := s.jobSpecRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if spec == nil {
		return nil, apierr.NotFound("job_spec_not_found", fmt.Errorf("job spec %s does not exist", id))
	}
	return spec, nil
}

func (s *jobSpecService) GetByName(ctx context.Context, name string) (*types.JobSpec, error) {
	spec, err := s.jobSpecRepo.GetByName(ctx, nil, name)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if spec == nil {
		return nil, apierr.NotFound("job_spec_not_found", fmt.Errorf("job spec %q does not exist", name))
	}
	return spec, nil
}

func (s *jobSpecService) List(ctx context.Context, filter repos.JobSpecFilter, opts repos.ListOptions) ([]*types.JobSpec, int64, error) {
	items, total, err := s.jobSpecRepo.List(ctx, nil, filter, opts)
	if err != nil {
		return nil, 0, apierr.Storage(err)
	}
	return items, total, nil
}

func (s *jobSpecService) Update(ctx context.Context, id uuid.UUID, input UpdateJobSpecInput) (*types.JobSpec, error) {
	updates := map[string]interface{}{}
	if input.JobSpecName != nil {
		if err := validateJobName(*input.JobSpecName); err != nil {
			return nil, err
		}
		updates["job_spec_name"] = *input.JobSpecName
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

	updated, err := s.jobSpecRepo.UpdateFields(ctx, nil, id, updates)
	if err != nil {
		if errors.Is(err, repos.ErrDuplicateKey) {
			return nil, apierr.Conflict("job_spec_name_exists", fmt.Errorf("job spec name already in use"))
		}
		return nil, apierr.Storage(err)
	}
	if !updated {
		return nil, apierr.NotFound("job_spec_not_found", fmt.Errorf("job spec %s does not exist", id))
	}

	s.log.Info("Updated job spec", "job_spec_id", id)
	return s.Get(ctx, id)
}

// Delete refuses to remove a spec that still has non-terminal executions so
// running jobs never lose their template.
func (s *jobSpecService) Delete(ctx context.Context, id uuid.UUID) error {
	spec, err := s.jobSpecRepo.GetByID(ctx, nil, id)
	if err != nil {
		return apierr.Storage(err)
	}
	if spec == nil {
		return apierr.NotFound("job_spec_not_found", fmt.Errorf("job spec %s does not exist", id))
	}

	// The active-execution check and the delete share a transaction so an
	// execution started in between cannot orphan itself.
	var deleted bool
	var active int64
	err = runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		n, err := s.executionRepo.CountActiveByJobSpec(ctx, tx, id)
		if err != nil {
			return err
		}
		active = n
		if active > 0 {
			return nil
		}
		ok, err := s.jobSpecRepo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		deleted = ok
		return nil
	})
	if err != nil {
		return apierr.Storage(err)
	}
	if active > 0 {
		return apierr.Conflict("job_spec_in_use",
			fmt.Errorf("job spec %s has %d active execution(s)", id, active))
	}
	if !deleted {
		return apierr.NotFound("job_spec_not_found", fmt.Errorf("job spec %s does not exist", id))
	}

	s.log.Info("Deleted job spec", "job_spec_id", id, "job_spec_name", spec.JobSpecName)
	return nil
}
