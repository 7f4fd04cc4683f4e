package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streamhub/flink-manager/internal/platform/flink"
	"github.com/streamhub/flink-manager/internal/repos"
	"github.com/streamhub/flink-manager/internal/types"
)

type fakeFlinkClient struct {
	submitJobID string
	submitErr   error
	submitCalls int
	lastSubmit  flink.SubmitRequest

	stopErr       error
	stopCalls     int
	lastStopJobID string
	lastStop      flink.StopRequest
}

func (f *fakeFlinkClient) Submit(ctx context.Context, req flink.SubmitRequest) (string, error) {
	f.submitCalls++
	f.lastSubmit = req
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.submitJobID, nil
}

func (f *fakeFlinkClient) Stop(ctx context.Context, jobID string, req flink.StopRequest) error {
	f.stopCalls++
	f.lastStopJobID = jobID
	f.lastStop = req
	return f.stopErr
}

func (f *fakeFlinkClient) JobStatus(ctx context.Context, jobID string) (string, error) {
	return "RUNNING", nil
}

func (f *fakeFlinkClient) Ping(ctx context.Context) error { return nil }

type fakeArtifactRepo struct {
	artifacts map[uuid.UUID]*types.Artifact
	createErr error
	deleted   []uuid.UUID
}

func newFakeArtifactRepo() *fakeArtifactRepo {
	return &fakeArtifactRepo{artifacts: map[uuid.UUID]*types.Artifact{}}
}

func (f *fakeArtifactRepo) Create(ctx context.Context, tx *gorm.DB, artifact *types.Artifact) (*types.Artifact, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, a := range f.artifacts {
		if a.ArtifactName == artifact.ArtifactName && a.Version == artifact.Version {
			return nil, repos.ErrDuplicateKey
		}
	}
	if artifact.ID == uuid.Nil {
		artifact.ID = uuid.New()
	}
	f.artifacts[artifact.ID] = artifact
	return artifact, nil
}

func (f *fakeArtifactRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Artifact, error) {
	return f.artifacts[id], nil
}

func (f *fakeArtifactRepo) GetByNameVersion(ctx context.Context, tx *gorm.DB, name, version string) (*types.Artifact, error) {
	for _, a := range f.artifacts {
		if a.ArtifactName == name && a.Version == version {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeArtifactRepo) List(ctx context.Context, tx *gorm.DB, filter repos.ArtifactFilter, opts repos.ListOptions) ([]*types.Artifact, int64, error) {
	var out []*types.Artifact
	for _, a := range f.artifacts {
		if filter.ArtifactName == "" || a.ArtifactName == filter.ArtifactName {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeArtifactRepo) ListVersions(ctx context.Context, tx *gorm.DB, name string) ([]string, error) {
	var out []string
	for _, a := range f.artifacts {
		if a.ArtifactName == name {
			out = append(out, a.Version)
		}
	}
	return out, nil
}

func (f *fakeArtifactRepo) Search(ctx context.Context, tx *gorm.DB, query string) ([]*types.Artifact, error) {
	var out []*types.Artifact
	for _, a := range f.artifacts {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeArtifactRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	if _, ok := f.artifacts[id]; !ok {
		return false, nil
	}
	delete(f.artifacts, id)
	f.deleted = append(f.deleted, id)
	return true, nil
}

type fakeBucket struct {
	uploadHash  string
	uploadErr   error
	uploadKeys  []string
	deleteKeys  []string
	deleteErr   error
	objects     map[string][]byte
	signedURL   string
	signedErr   error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{uploadHash: "deadbeef", objects: map[string][]byte{}}
}

func (f *fakeBucket) Upload(ctx context.Context, key string, file io.Reader) (string, int64, error) {
	if f.uploadErr != nil {
		return "", 0, f.uploadErr
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", 0, err
	}
	f.uploadKeys = append(f.uploadKeys, key)
	f.objects[key] = data
	return f.uploadHash, int64(len(data)), nil
}

func (f *fakeBucket) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(newByteReader(data)), nil
}

func (f *fakeBucket) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleteKeys = append(f.deleteKeys, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeBucket) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeBucket) SignedUploadURL(key string, ttl time.Duration) (string, error) {
	if f.signedErr != nil {
		return "", f.signedErr
	}
	if f.signedURL != "" {
		return f.signedURL, nil
	}
	return "https://signed.example/" + key, nil
}

func (f *fakeBucket) SignedDownloadURL(key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func (f *fakeBucket) ObjectURL(key string) string { return "gs://test-bucket/" + key }

func (f *fakeBucket) Ping(ctx context.Context) error { return nil }

type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

type fakeJobSpecRepo struct {
	specs     map[uuid.UUID]*types.JobSpec
	createErr error
}

func newFakeJobSpecRepo() *fakeJobSpecRepo {
	return &fakeJobSpecRepo{specs: map[uuid.UUID]*types.JobSpec{}}
}

func (f *fakeJobSpecRepo) Create(ctx context.Context, tx *gorm.DB, spec *types.JobSpec) (*types.JobSpec, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, s := range f.specs {
		if s.JobSpecName == spec.JobSpecName {
			return nil, repos.ErrDuplicateKey
		}
	}
	if spec.ID == uuid.Nil {
		spec.ID = uuid.New()
	}
	f.specs[spec.ID] = spec
	return spec, nil
}

func (f *fakeJobSpecRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobSpec, error) {
	return f.specs[id], nil
}

func (f *fakeJobSpecRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.JobSpec, error) {
	for _, s := range f.specs {
		if s.JobSpecName == name {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeJobSpecRepo) List(ctx context.Context, tx *gorm.DB, filter repos.JobSpecFilter, opts repos.ListOptions) ([]*types.JobSpec, int64, error) {
	var out []*types.JobSpec
	for _, s := range f.specs {
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (f *fakeJobSpecRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	_, ok := f.specs[id]
	return ok, nil
}

func (f *fakeJobSpecRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	if _, ok := f.specs[id]; !ok {
		return false, nil
	}
	delete(f.specs, id)
	return true, nil
}

type fakeExecutionRepo struct {
	executions  map[uuid.UUID]*types.Execution
	createErr   error
	createCalls int
	activeCount int64
}

func newFakeExecutionRepo() *fakeExecutionRepo {
	return &fakeExecutionRepo{executions: map[uuid.UUID]*types.Execution{}}
}

func (f *fakeExecutionRepo) Create(ctx context.Context, tx *gorm.DB, execution *types.Execution) (*types.Execution, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if execution.ID == uuid.Nil {
		execution.ID = uuid.New()
	}
	f.executions[execution.ID] = execution
	return execution, nil
}

func (f *fakeExecutionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Execution, error) {
	return f.executions[id], nil
}

func (f *fakeExecutionRepo) List(ctx context.Context, tx *gorm.DB, filter repos.ExecutionFilter, opts repos.ListOptions) ([]*types.Execution, int64, error) {
	var out []*types.Execution
	for _, e := range f.executions {
		if filter.JobSpecID != uuid.Nil && e.JobSpecID != filter.JobSpecID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.StartedBy != "" && e.StartedBy != filter.StartedBy {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (f *fakeExecutionRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to types.JobStatus, updates map[string]interface{}) (bool, error) {
	execution, ok := f.executions[id]
	if !ok || execution.Status != from {
		return false, nil
	}
	execution.Status = to
	if v, ok := updates["finished_at"]; ok {
		if at, ok := v.(time.Time); ok {
			execution.FinishedAt = &at
		}
	}
	return true, nil
}

func (f *fakeExecutionRepo) CountActiveByJobSpec(ctx context.Context, tx *gorm.DB, jobSpecID uuid.UUID) (int64, error) {
	return f.activeCount, nil
}

type fakeExecutionHistoryRepo struct {
	entries   []*types.ExecutionHistory
	appendErr error
}

func (f *fakeExecutionHistoryRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.ExecutionHistory) (*types.ExecutionHistory, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeExecutionHistoryRepo) ListByExecution(ctx context.Context, tx *gorm.DB, executionID uuid.UUID) ([]*types.ExecutionHistory, error) {
	var out []*types.ExecutionHistory
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].ExecutionID == executionID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func (f *fakeExecutionHistoryRepo) Latest(ctx context.Context, tx *gorm.DB, executionID uuid.UUID) (*types.ExecutionHistory, error) {
	entries, _ := f.ListByExecution(ctx, tx, executionID)
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

type fakeJobConfigRepo struct {
	configs   map[uuid.UUID]*types.JobConfig
	createErr error
}

func newFakeJobConfigRepo() *fakeJobConfigRepo {
	return &fakeJobConfigRepo{configs: map[uuid.UUID]*types.JobConfig{}}
}

func (f *fakeJobConfigRepo) Create(ctx context.Context, tx *gorm.DB, config *types.JobConfig) (*types.JobConfig, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, c := range f.configs {
		if c.JobName == config.JobName {
			return nil, repos.ErrDuplicateKey
		}
	}
	if config.ID == uuid.Nil {
		config.ID = uuid.New()
	}
	f.configs[config.ID] = config
	return config, nil
}

func (f *fakeJobConfigRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobConfig, error) {
	return f.configs[id], nil
}

func (f *fakeJobConfigRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.JobConfig, error) {
	for _, c := range f.configs {
		if c.JobName == name {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeJobConfigRepo) List(ctx context.Context, tx *gorm.DB, filter repos.JobConfigFilter, opts repos.ListOptions) ([]*types.JobConfig, int64, error) {
	var out []*types.JobConfig
	for _, c := range f.configs {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (f *fakeJobConfigRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	_, ok := f.configs[id]
	return ok, nil
}

func (f *fakeJobConfigRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to types.JobStatus, updates map[string]interface{}) (bool, error) {
	config, ok := f.configs[id]
	if !ok || config.Status != from {
		return false, nil
	}
	config.Status = to
	if v, ok := updates["flink_job_id"]; ok {
		if jobID, ok := v.(string); ok {
			config.FlinkJobID = &jobID
		}
	}
	if v, ok := updates["last_deployed_at"]; ok {
		if at, ok := v.(time.Time); ok {
			config.LastDeployedAt = &at
		}
	}
	return true, nil
}

func (f *fakeJobConfigRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	if _, ok := f.configs[id]; !ok {
		return false, nil
	}
	delete(f.configs, id)
	return true, nil
}

type fakeDeploymentHistoryRepo struct {
	entries   []*types.DeploymentHistory
	appendErr error
}

func (f *fakeDeploymentHistoryRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.DeploymentHistory) (*types.DeploymentHistory, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeDeploymentHistoryRepo) ListByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.DeploymentHistory, error) {
	var out []*types.DeploymentHistory
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].JobID == jobID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func (f *fakeDeploymentHistoryRepo) Latest(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*types.DeploymentHistory, error) {
	entries, _ := f.ListByJob(ctx, tx, jobID)
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}
