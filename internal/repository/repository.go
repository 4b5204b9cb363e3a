package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrStaleUpdate is returned when a job update would move its state or progress backwards.
	ErrStaleUpdate = errors.New("stale job update")

	// ErrAlreadyClaimed is returned when a worker tries to claim a job that is no longer pending.
	ErrAlreadyClaimed = errors.New("job already claimed")

	// ErrJobNotCancelable is returned when cancellation is requested for a finished or unknown job.
	ErrJobNotCancelable = errors.New("job is not cancelable")
)

// ProductUpserter applies a batch of normalized records with insert-or-update semantics keyed on SKU.
type ProductUpserter interface {
	UpsertBatch(ctx context.Context, records []model.ProductRecord) error
}

// ProductCatalog is the full product store: ingestion writes and bulk deletes.
type ProductCatalog interface {
	ProductUpserter
	DeleteAll(ctx context.Context) (int64, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// WebhookRepository stores registered webhooks.
type WebhookRepository interface {
	Create(ctx context.Context, webhook *model.Webhook) (*model.Webhook, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Webhook, error)
	List(ctx context.Context, query Query) ([]*model.Webhook, error)
}

// JobStore keeps job snapshots shared between submitters, workers and pollers.
// Implementations must reject updates that regress state or progress with ErrStaleUpdate.
type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	// Claim moves a pending job to RUNNING and returns it, or fails with ErrAlreadyClaimed.
	Claim(ctx context.Context, id uuid.UUID) (*model.Job, error)
	Update(ctx context.Context, job *model.Job) error
	RequestCancel(ctx context.Context, id uuid.UUID) error
	// DeleteFinishedBefore purges terminal jobs last updated before cutoff.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// FailStale moves pending or running jobs not updated since cutoff to FAILED with reason.
	FailStale(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

// UniqueConstraintError represents a database unique constraint violation error.
type UniqueConstraintError struct {
	Detail string
}

func (u *UniqueConstraintError) Error() string {
	return "resource must be unique: " + u.Detail
}
