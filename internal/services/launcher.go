package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/streamhub/flink-manager/internal/platform/apierr"
	"github.com/streamhub/flink-manager/internal/platform/flink"
	"github.com/streamhub/flink-manager/internal/platform/logger"
)

// launcher is the shared submit/track half of the submit-and-audit pattern.
// ExecutionService and JobConfigService both run their lifecycle transitions
// through it: it serializes transitions per entity id and owns the single
// attempt-once call to the cluster.
type launcher struct {
	log   *logger.Logger
	flink flink.Client

	mu    sync.Mutex
	locks map[uuid.UUID]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

func newLauncher(log *logger.Logger, flinkClient flink.Client) *launcher {
	return &launcher{
		log:   log.With("component", "launcher"),
		flink: flinkClient,
		locks: map[uuid.UUID]*entityLock{},
	}
}

// lock acquires the per-id mutex. At most one start/stop transition is in
// flight per entity id; the returned func releases the lock.
func (l *launcher) lock(id uuid.UUID) func() {
	l.mu.Lock()
	el, ok := l.locks[id]
	if !ok {
		el = &entityLock{}
		l.locks[id] = el
	}
	el.refs++
	l.mu.Unlock()

	el.mu.Lock()
	return func() {
		el.mu.Unlock()
		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *launcher) submit(ctx context.Context, req flink.SubmitRequest) (string, error) {
	jobID, err := l.flink.Submit(ctx, req)
	if err != nil {
		l.log.Error("Flink submission failed", "entry_class", req.EntryClass, "error", err)
		return "", apierr.RemoteEngine(err)
	}
	return jobID, nil
}

func (l *launcher) stopRemote(ctx context.Context, flinkJobID string, savepoint bool, savepointPath string) error {
	err := l.flink.Stop(ctx, flinkJobID, flink.StopRequest{
		Savepoint:       savepoint,
		TargetDirectory: savepointPath,
	})
	if err != nil {
		l.log.Error("Flink stop failed", "flink_job_id", flinkJobID, "error", err)
		return apierr.RemoteEngine(err)
	}
	return nil
}

// cancelRemote is best-effort cleanup after a failed local write; the
// primary error already dominates, so the failure is only logged.
func (l *launcher) cancelRemote(ctx context.Context, flinkJobID string) {
	if err := l.flink.Stop(ctx, flinkJobID, flink.StopRequest{}); err != nil {
		l.log.Error("Best-effort cancel of orphaned Flink job failed", "flink_job_id", flinkJobID, "error", err)
	}
}
