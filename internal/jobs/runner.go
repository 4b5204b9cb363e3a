package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/metrics"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/google/uuid"
)

// Runner is the submit and poll side of the job system.
type Runner struct {
	store repository.JobStore
	queue Queue
}

// NewRunner creates a Runner recording jobs in store and dispatching tasks to queue.
func NewRunner(store repository.JobStore, queue Queue) *Runner {
	return &Runner{store: store, queue: queue}
}

// SubmitIngestionJob records a PENDING ingestion job for filePath and queues it.
// It returns as soon as the task is queued.
func (r *Runner) SubmitIngestionJob(ctx context.Context, filePath string) (string, error) {
	return r.submit(ctx, model.JobKindIngestion, model.Task{FilePath: filePath})
}

// SubmitWebhookTest queues a test invocation of the given webhook as its own job.
func (r *Runner) SubmitWebhookTest(ctx context.Context, webhookID uuid.UUID) (string, error) {
	return r.submit(ctx, model.JobKindWebhookTest, model.Task{WebhookID: webhookID.String()})
}

func (r *Runner) submit(ctx context.Context, kind model.JobKind, task model.Task) (string, error) {
	job := &model.Job{Kind: kind}
	job.InitMeta()

	if err := r.store.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to record job: %w", err)
	}

	task.JobID = job.ID.String()
	task.Kind = kind
	if err := r.queue.Enqueue(ctx, task); err != nil {
		slog.Error("failed to enqueue task", slog.String("job_id", task.JobID), slog.String("kind", string(kind)), slog.Any("err", err))
		job.State = model.JobStateFailed
		job.Error = "failed to enqueue job: " + err.Error()
		if updateErr := r.store.Update(context.WithoutCancel(ctx), job); updateErr != nil {
			slog.Error("failed to mark job as failed", slog.String("job_id", task.JobID), slog.Any("err", updateErr))
		}
		metrics.JobsFinished.WithLabelValues(string(kind), string(model.JobStateFailed)).Inc()
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	metrics.JobsSubmitted.WithLabelValues(string(kind)).Inc()
	slog.Info("job submitted", slog.String("job_id", task.JobID), slog.String("kind", string(kind)))
	return task.JobID, nil
}

// GetJobStatus returns the latest snapshot of a job. Ids that are malformed, unknown or expired
// report state UNKNOWN; only store failures return an error.
func (r *Runner) GetJobStatus(ctx context.Context, jobID string) (model.JobStatus, error) {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return model.UnknownJobStatus(jobID), nil
	}

	job, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.UnknownJobStatus(jobID), nil
		}
		return model.JobStatus{}, fmt.Errorf("failed to read job status: %w", err)
	}
	return job.Status(), nil
}

// CancelJob asks the worker to stop the job at its next checkpoint.
func (r *Runner) CancelJob(ctx context.Context, jobID string) error {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return fmt.Errorf("job %q: %w", jobID, repository.ErrJobNotCancelable)
	}
	if err := r.store.RequestCancel(ctx, id); err != nil {
		return err
	}
	slog.Info("job cancellation requested", slog.String("job_id", jobID))
	return nil
}
