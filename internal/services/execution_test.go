package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/streamhub/flink-manager/internal/platform/apierr"
	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/repos"
	"github.com/streamhub/flink-manager/internal/types"
	"github.com/streamhub/flink-manager/internal/utils"
)

func newExecutionServiceForTest(t *testing.T, flinkClient *fakeFlinkClient, specRepo *fakeJobSpecRepo, artifactRepo *fakeArtifactRepo, executionRepo *fakeExecutionRepo, historyRepo *fakeExecutionHistoryRepo) ExecutionService {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewExecutionService(nil, log, flinkClient, specRepo, artifactRepo, executionRepo, historyRepo,
		func(key string) string { return "gs://test-bucket/" + key })
}

func seedSpecAndArtifact(specRepo *fakeJobSpecRepo, artifactRepo *fakeArtifactRepo) *types.JobSpec {
	artifact := &types.Artifact{
		ID:           uuid.New(),
		ArtifactName: "wordcount",
		Version:      "1.2.0",
		StorageKey:   utils.ArtifactStorageKey("wordcount", "1.2.0"),
	}
	artifactRepo.artifacts[artifact.ID] = artifact
	spec := &types.JobSpec{
		ID:          uuid.New(),
		JobSpecName: "wordcount-prod",
		ArtifactID:  artifact.ID,
		EntryClass:  "com.example.WordCount",
		Parallelism: 4,
		CreatedBy:   "alice",
	}
	specRepo.specs[spec.ID] = spec
	return spec
}

func TestExecutionStartSubmitsThenPersists(t *testing.T) {
	flinkClient := &fakeFlinkClient{submitJobID: "fjob-123"}
	specRepo := newFakeJobSpecRepo()
	artifactRepo := newFakeArtifactRepo()
	executionRepo := newFakeExecutionRepo()
	historyRepo := &fakeExecutionHistoryRepo{}
	svc := newExecutionServiceForTest(t, flinkClient, specRepo, artifactRepo, executionRepo, historyRepo)
	spec := seedSpecAndArtifact(specRepo, artifactRepo)

	execution, err := svc.Start(context.Background(), spec.ID, "alice")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if flinkClient.submitCalls != 1 {
		t.Fatalf("submit calls: want=1 got=%d", flinkClient.submitCalls)
	}
	wantJar := "gs://test-bucket/" + utils.ArtifactStorageKey("wordcount", "1.2.0")
	if flinkClient.lastSubmit.JarLocation != wantJar {
		t.Fatalf("jar location: want=%q got=%q", wantJar, flinkClient.lastSubmit.JarLocation)
	}
	if execution.Status != types.JobStatusRunning {
		t.Fatalf("status: want=%s got=%s", types.JobStatusRunning, execution.Status)
	}
	if execution.FlinkJobID == nil || *execution.FlinkJobID != "fjob-123" {
		t.Fatalf("flink job id: want=fjob-123 got=%v", execution.FlinkJobID)
	}
	if execution.StartedAt == nil {
		t.Fatalf("started_at should be set")
	}

	if len(historyRepo.entries) != 1 {
		t.Fatalf("history entries: want=1 got=%d", len(historyRepo.entries))
	}
	entry := historyRepo.entries[0]
	if entry.Action != types.ActionStart {
		t.Fatalf("action: want=%s got=%s", types.ActionStart, entry.Action)
	}
	if entry.OldStatus != nil {
		t.Fatalf("first entry old status: want=nil got=%v", *entry.OldStatus)
	}
	if entry.NewStatus != types.JobStatusRunning {
		t.Fatalf("new status: want=%s got=%s", types.JobStatusRunning, entry.NewStatus)
	}
	var details map[string]interface{}
	if err := json.Unmarshal(entry.Details, &details); err != nil {
		t.Fatalf("details unmarshal: %v", err)
	}
	if details["job_spec_id"] != spec.ID.String() {
		t.Fatalf("details job_spec_id: want=%s got=%v", spec.ID, details["job_spec_id"])
	}
}

func TestExecutionStartLeavesNoStateOnSubmitFailure(t *testing.T) {
	flinkClient := &fakeFlinkClient{submitErr: fmt.Errorf("cluster unreachable")}
	specRepo := newFakeJobSpecRepo()
	artifactRepo := newFakeArtifactRepo()
	executionRepo := newFakeExecutionRepo()
	historyRepo := &fakeExecutionHistoryRepo{}
	svc := newExecutionServiceForTest(t, flinkClient, specRepo, artifactRepo, executionRepo, historyRepo)
	spec := seedSpecAndArtifact(specRepo, artifactRepo)

	_, err := svc.Start(context.Background(), spec.ID, "alice")
	if err == nil {
		t.Fatalf("Start: expected error")
	}
	if apierr.CodeOf(err) != "flink_cluster_error" {
		t.Fatalf("error code: want=flink_cluster_error got=%s", apierr.CodeOf(err))
	}
	if apierr.StatusOf(err) != 502 {
		t.Fatalf("status: want=502 got=%d", apierr.StatusOf(err))
	}
	if executionRepo.createCalls != 0 {
		t.Fatalf("execution create calls: want=0 got=%d", executionRepo.createCalls)
	}
	if len(historyRepo.entries) != 0 {
		t.Fatalf("history entries: want=0 got=%d", len(historyRepo.entries))
	}
}

func TestExecutionStartCancelsRemoteJobWhenPersistFails(t *testing.T) {
	flinkClient := &fakeFlinkClient{submitJobID: "fjob-orphan"}
	specRepo := newFakeJobSpecRepo()
	artifactRepo := newFakeArtifactRepo()
	executionRepo := newFakeExecutionRepo()
	executionRepo.createErr = fmt.Errorf("insert failed")
	historyRepo := &fakeExecutionHistoryRepo{}
	svc := newExecutionServiceForTest(t, flinkClient, specRepo, artifactRepo, executionRepo, historyRepo)
	spec := seedSpecAndArtifact(specRepo, artifactRepo)

	_, err := svc.Start(context.Background(), spec.ID, "alice")
	if err == nil {
		t.Fatalf("Start: expected error")
	}
	if apierr.CodeOf(err) != "storage_error" {
		t.Fatalf("error code: want=storage_error got=%s", apierr.CodeOf(err))
	}
	if flinkClient.stopCalls != 1 {
		t.Fatalf("remote cancel calls: want=1 got=%d", flinkClient.stopCalls)
	}
	if flinkClient.lastStopJobID != "fjob-orphan" {
		t.Fatalf("canceled job id: want=fjob-orphan got=%s", flinkClient.lastStopJobID)
	}
	if len(historyRepo.entries) != 0 {
		t.Fatalf("history entries: want=0 got=%d", len(historyRepo.entries))
	}
}

func TestExecutionStartUnknownSpec(t *testing.T) {
	flinkClient := &fakeFlinkClient{submitJobID: "fjob-1"}
	svc := newExecutionServiceForTest(t, flinkClient, newFakeJobSpecRepo(), newFakeArtifactRepo(), newFakeExecutionRepo(), &fakeExecutionHistoryRepo{})

	_, err := svc.Start(context.Background(), uuid.New(), "alice")
	if err == nil {
		t.Fatalf("Start: expected error")
	}
	if apierr.CodeOf(err) != "job_spec_not_found" {
		t.Fatalf("error code: want=job_spec_not_found got=%s", apierr.CodeOf(err))
	}
	if flinkClient.submitCalls != 0 {
		t.Fatalf("submit calls: want=0 got=%d", flinkClient.submitCalls)
	}
}

func TestExecutionStopCancelsRunningExecution(t *testing.T) {
	flinkClient := &fakeFlinkClient{}
	specRepo := newFakeJobSpecRepo()
	artifactRepo := newFakeArtifactRepo()
	executionRepo := newFakeExecutionRepo()
	historyRepo := &fakeExecutionHistoryRepo{}
	svc := newExecutionServiceForTest(t, flinkClient, specRepo, artifactRepo, executionRepo, historyRepo)

	flinkJobID := "fjob-running"
	execution := &types.Execution{
		ID:         uuid.New(),
		JobSpecID:  uuid.New(),
		FlinkJobID: &flinkJobID,
		Status:     types.JobStatusRunning,
		StartedBy:  "alice",
	}
	executionRepo.executions[execution.ID] = execution

	stopped, err := svc.Stop(context.Background(), execution.ID, true, "s3://savepoints/wordcount")
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if flinkClient.stopCalls != 1 {
		t.Fatalf("stop calls: want=1 got=%d", flinkClient.stopCalls)
	}
	if !flinkClient.lastStop.Savepoint {
		t.Fatalf("savepoint flag should be forwarded")
	}
	if flinkClient.lastStop.TargetDirectory != "s3://savepoints/wordcount" {
		t.Fatalf("target directory: got=%q", flinkClient.lastStop.TargetDirectory)
	}
	if stopped.Status != types.JobStatusCanceled {
		t.Fatalf("status: want=%s got=%s", types.JobStatusCanceled, stopped.Status)
	}
	if stopped.FinishedAt == nil {
		t.Fatalf("finished_at should be set")
	}

	if len(historyRepo.entries) != 1 {
		t.Fatalf("history entries: want=1 got=%d", len(historyRepo.entries))
	}
	entry := historyRepo.entries[0]
	if entry.Action != types.ActionStop {
		t.Fatalf("action: want=%s got=%s", types.ActionStop, entry.Action)
	}
	if entry.OldStatus == nil || *entry.OldStatus != types.JobStatusRunning {
		t.Fatalf("old status: want=%s got=%v", types.JobStatusRunning, entry.OldStatus)
	}
	if entry.NewStatus != types.JobStatusCanceled {
		t.Fatalf("new status: want=%s got=%s", types.JobStatusCanceled, entry.NewStatus)
	}
	var details map[string]interface{}
	if err := json.Unmarshal(entry.Details, &details); err != nil {
		t.Fatalf("details unmarshal: %v", err)
	}
	if details["savepoint"] != true {
		t.Fatalf("details savepoint: want=true got=%v", details["savepoint"])
	}
	if details["savepoint_path"] != "s3://savepoints/wordcount" {
		t.Fatalf("details savepoint_path: got=%v", details["savepoint_path"])
	}
}

func TestExecutionStopRejectsNonRunning(t *testing.T) {
	flinkClient := &fakeFlinkClient{}
	executionRepo := newFakeExecutionRepo()
	historyRepo := &fakeExecutionHistoryRepo{}
	svc := newExecutionServiceForTest(t, flinkClient, newFakeJobSpecRepo(), newFakeArtifactRepo(), executionRepo, historyRepo)

	flinkJobID := "fjob-done"
	execution := &types.Execution{
		ID:         uuid.New(),
		JobSpecID:  uuid.New(),
		FlinkJobID: &flinkJobID,
		Status:     types.JobStatusFinished,
		StartedBy:  "alice",
	}
	executionRepo.executions[execution.ID] = execution

	_, err := svc.Stop(context.Background(), execution.ID, false, "")
	if err == nil {
		t.Fatalf("Stop: expected error")
	}
	if apierr.CodeOf(err) != "execution_not_running" {
		t.Fatalf("error code: want=execution_not_running got=%s", apierr.CodeOf(err))
	}
	if apierr.StatusOf(err) != 409 {
		t.Fatalf("status: want=409 got=%d", apierr.StatusOf(err))
	}
	if flinkClient.stopCalls != 0 {
		t.Fatalf("stop calls: want=0 got=%d", flinkClient.stopCalls)
	}
	if len(historyRepo.entries) != 0 {
		t.Fatalf("history entries: want=0 got=%d", len(historyRepo.entries))
	}
}

func TestExecutionHistoryNewestFirst(t *testing.T) {
	flinkClient := &fakeFlinkClient{submitJobID: "fjob-1"}
	specRepo := newFakeJobSpecRepo()
	artifactRepo := newFakeArtifactRepo()
	executionRepo := newFakeExecutionRepo()
	historyRepo := &fakeExecutionHistoryRepo{}
	svc := newExecutionServiceForTest(t, flinkClient, specRepo, artifactRepo, executionRepo, historyRepo)
	spec := seedSpecAndArtifact(specRepo, artifactRepo)

	execution, err := svc.Start(context.Background(), spec.ID, "alice")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Stop(context.Background(), execution.ID, false, ""); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	entries, err := svc.History(context.Background(), execution.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history entries: want=2 got=%d", len(entries))
	}
	if entries[0].Action != types.ActionStop || entries[1].Action != types.ActionStart {
		t.Fatalf("history order: want=[STOP START] got=[%s %s]", entries[0].Action, entries[1].Action)
	}
	if entries[1].OldStatus != nil {
		t.Fatalf("first entry old status: want=nil got=%v", *entries[1].OldStatus)
	}
	if entries[0].OldStatus == nil || *entries[0].OldStatus != types.JobStatusRunning {
		t.Fatalf("second entry old status: want=%s got=%v", types.JobStatusRunning, entries[0].OldStatus)
	}
}

func TestExecutionListFiltersByStarter(t *testing.T) {
	executionRepo := newFakeExecutionRepo()
	svc := newExecutionServiceForTest(t, &fakeFlinkClient{}, newFakeJobSpecRepo(), newFakeArtifactRepo(), executionRepo, &fakeExecutionHistoryRepo{})

	for _, by := range []string{"alice", "alice", "bob"} {
		e := &types.Execution{ID: uuid.New(), JobSpecID: uuid.New(), Status: types.JobStatusRunning, StartedBy: by}
		executionRepo.executions[e.ID] = e
	}

	items, total, err := svc.List(context.Background(), repos.ExecutionFilter{StartedBy: "alice"}, repos.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("filtered list: want=2 got total=%d len=%d", total, len(items))
	}
	for _, e := range items {
		if e.StartedBy != "alice" {
			t.Fatalf("filter leaked execution by %s", e.StartedBy)
		}
	}
}

func TestExecutionHistoryUnknownExecution(t *testing.T) {
	svc := newExecutionServiceForTest(t, &fakeFlinkClient{}, newFakeJobSpecRepo(), newFakeArtifactRepo(), newFakeExecutionRepo(), &fakeExecutionHistoryRepo{})

	_, err := svc.History(context.Background(), uuid.New())
	if err == nil {
		t.Fatalf("History: expected error")
	}
	if apierr.CodeOf(err) != "execution_not_found" {
		t.Fatalf("error code: want=execution_not_found got=%s", apierr.CodeOf(err))
	}
}

func TestExecutionStopAuditFailureLeavesStatusUnchanged(t *testing.T) {
	flinkClient := &fakeFlinkClient{}
	executionRepo := newFakeExecutionRepo()
	historyRepo := &fakeExecutionHistoryRepo{appendErr: fmt.Errorf("insert failed")}
	svc := newExecutionServiceForTest(t, flinkClient, newFakeJobSpecRepo(), newFakeArtifactRepo(), executionRepo, historyRepo)

	flinkJobID := "fjob-audit"
	execution := &types.Execution{
		ID:         uuid.New(),
		JobSpecID:  uuid.New(),
		FlinkJobID: &flinkJobID,
		Status:     types.JobStatusRunning,
		StartedBy:  "alice",
	}
	executionRepo.executions[execution.ID] = execution

	_, err := svc.Stop(context.Background(), execution.ID, false, "")
	if err == nil {
		t.Fatalf("Stop: expected error")
	}
	if apierr.CodeOf(err) != "storage_error" {
		t.Fatalf("error code: want=storage_error got=%s", apierr.CodeOf(err))
	}
	// The transition must not outlive its audit entry.
	if execution.Status != types.JobStatusRunning {
		t.Fatalf("status: want=%s got=%s", types.JobStatusRunning, execution.Status)
	}
	if execution.FinishedAt != nil {
		t.Fatalf("finished_at must stay unset, got=%v", execution.FinishedAt)
	}
	if len(historyRepo.entries) != 0 {
		t.Fatalf("history entries: want=0 got=%d", len(historyRepo.entries))
	}
}

func TestExecutionStartAuditFailureCancelsRemoteJob(t *testing.T) {
	flinkClient := &fakeFlinkClient{submitJobID: "fjob-audit"}
	specRepo := newFakeJobSpecRepo()
	artifactRepo := newFakeArtifactRepo()
	historyRepo := &fakeExecutionHistoryRepo{appendErr: fmt.Errorf("insert failed")}
	svc := newExecutionServiceForTest(t, flinkClient, specRepo, artifactRepo, newFakeExecutionRepo(), historyRepo)
	spec := seedSpecAndArtifact(specRepo, artifactRepo)

	_, err := svc.Start(context.Background(), spec.ID, "alice")
	if err == nil {
		t.Fatalf("Start: expected error")
	}
	if apierr.CodeOf(err) != "storage_error" {
		t.Fatalf("error code: want=storage_error got=%s", apierr.CodeOf(err))
	}
	if flinkClient.stopCalls != 1 {
		t.Fatalf("remote cancel calls: want=1 got=%d", flinkClient.stopCalls)
	}
	if flinkClient.lastStopJobID != "fjob-audit" {
		t.Fatalf("canceled job id: want=fjob-audit got=%s", flinkClient.lastStopJobID)
	}
}
