package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/ingest"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/metrics"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/webhook"
	"github.com/google/uuid"
)

// Ingester runs a CSV file through the ingestion pipeline.
type Ingester interface {
	Run(ctx context.Context, path string, progress ingest.ProgressReporter) (ingest.Summary, error)
}

// WebhookFinder loads registered webhooks.
type WebhookFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Webhook, error)
}

// WebhookInvoker performs a webhook test call.
type WebhookInvoker interface {
	Invoke(ctx context.Context, url string, active bool) webhook.Result
}

// Executor is the worker side of the job system. It is the only writer of a claimed job.
type Executor struct {
	store    repository.JobStore
	ingester Ingester
	webhooks WebhookFinder
	invoker  WebhookInvoker
}

// NewExecutor creates an Executor.
func NewExecutor(store repository.JobStore, ingester Ingester, webhooks WebhookFinder, invoker WebhookInvoker) *Executor {
	return &Executor{
		store:    store,
		ingester: ingester,
		webhooks: webhooks,
		invoker:  invoker,
	}
}

// Handle claims the task's job and runs it to a terminal state. Job failures are recorded on
// the job, not returned; an error means the task should be delivered again.
func (e *Executor) Handle(ctx context.Context, task model.Task) error {
	id, err := uuid.Parse(task.JobID)
	if err != nil {
		slog.Error("dropping task with invalid job id", slog.String("job_id", task.JobID), slog.Any("err", err))
		return nil
	}

	job, err := e.store.Claim(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyClaimed) || errors.Is(err, repository.ErrNotFound) {
			slog.Info("skipping task", slog.String("job_id", task.JobID), slog.Any("reason", err))
			if e.jobDone(ctx, id) {
				e.removeUpload(task)
			}
			return nil
		}
		return fmt.Errorf("failed to claim job %s: %w", task.JobID, err)
	}

	if job.CancelRequested {
		e.finish(ctx, job, nil, ingest.ErrCanceled)
		e.removeUpload(task)
		return nil
	}

	switch task.Kind {
	case model.JobKindIngestion:
		e.runIngestion(ctx, job, task.FilePath)
	case model.JobKindWebhookTest:
		e.runWebhookTest(ctx, job, task.WebhookID)
	default:
		e.finish(ctx, job, nil, fmt.Errorf("unknown task kind %q", task.Kind))
	}
	return nil
}

// Abandon fails the task's job if it is still pending. The queue calls it for tasks
// that will never be handled, such as those left behind at shutdown.
func (e *Executor) Abandon(ctx context.Context, task model.Task, reason error) {
	id, err := uuid.Parse(task.JobID)
	if err != nil {
		return
	}

	job, err := e.store.Get(ctx, id)
	if err != nil {
		slog.Error("failed to load abandoned job", slog.String("job_id", task.JobID), slog.Any("err", err))
		return
	}
	if job.State != model.JobStatePending {
		return
	}
	e.finish(ctx, job, nil, reason)
	e.removeUpload(task)
}

// jobDone reports whether the job is gone or terminal, so nothing will read its upload again.
func (e *Executor) jobDone(ctx context.Context, id uuid.UUID) bool {
	job, err := e.store.Get(ctx, id)
	if err != nil {
		return errors.Is(err, repository.ErrNotFound)
	}
	return job.State.Terminal()
}

func (e *Executor) runIngestion(ctx context.Context, job *model.Job, path string) {
	defer e.removeUpload(model.Task{Kind: model.JobKindIngestion, FilePath: path})

	progress := &jobProgress{store: e.store, job: job}
	summary, err := e.ingester.Run(ctx, path, progress)
	if err != nil {
		e.finish(ctx, job, nil, err)
		return
	}

	job.Total = summary.Total
	job.Processed = summary.Processed
	result, err := json.Marshal(summary)
	if err != nil {
		e.finish(ctx, job, nil, fmt.Errorf("failed to encode summary: %w", err))
		return
	}
	e.finish(ctx, job, result, nil)
}

func (e *Executor) runWebhookTest(ctx context.Context, job *model.Job, webhookID string) {
	id, err := uuid.Parse(webhookID)
	if err != nil {
		e.finish(ctx, job, nil, fmt.Errorf("invalid webhook id %q: %w", webhookID, err))
		return
	}

	hook, err := e.webhooks.FindByID(ctx, id)
	if err != nil {
		e.finish(ctx, job, nil, err)
		return
	}

	invocation := e.invoker.Invoke(ctx, hook.URL, hook.Active)
	result, err := json.Marshal(invocation)
	if err != nil {
		e.finish(ctx, job, nil, fmt.Errorf("failed to encode webhook result: %w", err))
		return
	}

	job.Total = 1
	job.Processed = 1
	e.finish(ctx, job, result, nil)
}

// finish records the terminal state. It uses a context detached from ctx's cancellation
// so that a shutdown still persists the outcome.
func (e *Executor) finish(ctx context.Context, job *model.Job, result json.RawMessage, runErr error) {
	if runErr != nil {
		job.State = model.JobStateFailed
		job.Error = runErr.Error()
	} else {
		job.State = model.JobStateSucceeded
		job.Result = result
	}

	if err := e.store.Update(context.WithoutCancel(ctx), job); err != nil {
		slog.Error("failed to record job outcome",
			slog.String("job_id", job.ID.String()),
			slog.String("state", string(job.State)),
			slog.Any("err", err))
		return
	}
	metrics.JobsFinished.WithLabelValues(string(job.Kind), string(job.State)).Inc()

	if runErr != nil {
		slog.Error("job failed",
			slog.String("job_id", job.ID.String()),
			slog.String("kind", string(job.Kind)),
			slog.Int64("processed", job.Processed),
			slog.Int64("total", job.Total),
			slog.Any("err", runErr))
		return
	}
	slog.Info("job succeeded",
		slog.String("job_id", job.ID.String()),
		slog.String("kind", string(job.Kind)),
		slog.Int64("processed", job.Processed),
		slog.Int64("total", job.Total))
}

func (e *Executor) removeUpload(task model.Task) {
	if task.Kind != model.JobKindIngestion || task.FilePath == "" {
		return
	}
	if err := os.Remove(task.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove uploaded file", slog.String("path", task.FilePath), slog.Any("err", err))
	}
}

// jobProgress publishes pipeline progress to the store and turns a cancel request into ErrCanceled.
type jobProgress struct {
	store repository.JobStore
	job   *model.Job
}

func (p *jobProgress) Started(ctx context.Context, total int64) error {
	p.job.Total = total
	if err := p.store.Update(ctx, p.job); err != nil {
		return fmt.Errorf("failed to publish total: %w", err)
	}
	return nil
}

func (p *jobProgress) Advanced(ctx context.Context, processed int64) error {
	p.job.Processed = processed
	if err := p.store.Update(ctx, p.job); err != nil {
		return fmt.Errorf("failed to publish progress: %w", err)
	}
	if processed >= p.job.Total {
		// Every row is committed; a late cancel request has nothing left to stop.
		return nil
	}

	current, err := p.store.Get(ctx, p.job.ID)
	if err != nil {
		return fmt.Errorf("failed to check cancellation: %w", err)
	}
	if current.CancelRequested {
		return ingest.ErrCanceled
	}
	return nil
}
