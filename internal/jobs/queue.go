package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
)

var (
	// ErrQueueFull is returned when the in-process queue has no free slot.
	ErrQueueFull = errors.New("task queue is full")

	// ErrQueueStopped is returned when tasks are enqueued after Stop.
	ErrQueueStopped = errors.New("task queue is stopped")

	// ErrShutdown is recorded on queued jobs that the process will never run.
	ErrShutdown = errors.New("service shut down before the job started")
)

// Queue accepts tasks for asynchronous execution. Enqueue must not wait for the task to run.
type Queue interface {
	Enqueue(ctx context.Context, task model.Task) error
}

// TaskHandler executes one task. Abandon is called instead of Handle for a task that
// will not run, so its job can be closed out.
type TaskHandler interface {
	Handle(ctx context.Context, task model.Task) error
	Abandon(ctx context.Context, task model.Task, reason error)
}

// ChannelQueue is a bounded in-process queue drained by a fixed pool of goroutines.
type ChannelQueue struct {
	tasks   chan model.Task
	handler TaskHandler
	workers int

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewChannelQueue creates a queue holding up to size tasks, drained by workers goroutines once started.
func NewChannelQueue(size, workers int, handler TaskHandler) *ChannelQueue {
	if workers <= 0 {
		workers = 1
	}
	return &ChannelQueue{
		tasks:   make(chan model.Task, size),
		handler: handler,
		workers: workers,
	}
}

// Start launches the worker goroutines. They run until Stop closes the queue; once ctx is
// done, tasks still queued are abandoned rather than handled.
func (q *ChannelQueue) Start(ctx context.Context) {
	slog.Info("task queue started", slog.Int("workers", q.workers), slog.Int("capacity", cap(q.tasks)))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
}

func (q *ChannelQueue) work(ctx context.Context, worker int) {
	defer q.wg.Done()
	for task := range q.tasks {
		if ctx.Err() != nil {
			q.handler.Abandon(context.WithoutCancel(ctx), task, ErrShutdown)
			continue
		}
		err := q.handler.Handle(ctx, task)
		if err == nil {
			continue
		}
		slog.Error("task failed",
			slog.Int("worker", worker),
			slog.String("job_id", task.JobID),
			slog.String("kind", string(task.Kind)),
			slog.Any("err", err))
		if ctx.Err() != nil {
			// Cancellation may have hit before the job was claimed.
			q.handler.Abandon(context.WithoutCancel(ctx), task, ErrShutdown)
		}
	}
}

// Enqueue adds a task without blocking. It fails with ErrQueueFull when the buffer is full.
func (q *ChannelQueue) Enqueue(_ context.Context, task model.Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.stopped {
		return ErrQueueStopped
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new tasks and waits for the workers to drain what is already queued.
// It returns ctx.Err() if ctx ends first; the workers keep draining in that case and
// a later Stop waits for them again.
func (q *ChannelQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.stopped {
		q.stopped = true
		close(q.tasks)
	}
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		slog.Info("task queue stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
