package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/metrics"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
)

// ErrLeaseExpired is recorded on jobs that stopped making progress for longer than the lease.
var ErrLeaseExpired = errors.New("job abandoned: no progress within the lease")

// Janitor periodically fails jobs whose worker went away and purges terminal jobs older
// than the retention window. Purged ids then read as UNKNOWN.
type Janitor struct {
	store     repository.JobStore
	retention time.Duration
	lease     time.Duration
	interval  time.Duration
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewJanitor creates a new Janitor. A pending or running job untouched for longer than
// lease is considered lost.
func NewJanitor(store repository.JobStore, retention, lease, interval time.Duration) *Janitor {
	return &Janitor{
		store:     store,
		retention: retention,
		lease:     lease,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start sweeps once right away, covering jobs stranded by a previous process, then on
// every interval until ctx is done or Stop is called.
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	slog.Info("Job janitor started",
		slog.Duration("interval", j.interval),
		slog.Duration("retention", j.retention),
		slog.Duration("lease", j.lease))
	j.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Job janitor stopped by context")
			return
		case <-j.stopChan:
			slog.Info("Job janitor stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	if _, err := j.FailStale(ctx); err != nil {
		slog.Error("Failed to fail stale jobs", slog.Any("err", err))
	}
	if _, err := j.Purge(ctx); err != nil {
		slog.Error("Failed to purge expired jobs", slog.Any("err", err))
	}
}

// Stop stops the janitor
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
}

// FailStale marks pending or running jobs with no update within the lease as FAILED.
func (j *Janitor) FailStale(ctx context.Context) (int64, error) {
	failed, err := j.store.FailStale(ctx, time.Now().Add(-j.lease), ErrLeaseExpired.Error())
	if err != nil {
		return 0, err
	}
	if failed > 0 {
		metrics.JobsExpired.Add(float64(failed))
		slog.Warn("Failed stale jobs", slog.Int64("count", failed), slog.Duration("lease", j.lease))
	}
	return failed, nil
}

// Purge deletes terminal jobs last updated before now minus the retention window.
func (j *Janitor) Purge(ctx context.Context) (int64, error) {
	deleted, err := j.store.DeleteFinishedBefore(ctx, time.Now().Add(-j.retention))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		metrics.JobsPurged.Add(float64(deleted))
		slog.Info("Purged expired jobs", slog.Int64("count", deleted))
	}
	return deleted, nil
}
