package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/google/uuid"
)

const (
	jobsTable  = "ingestion_jobs"
	jobColumns = "id, kind, state, processed, total, error, result, cancel_requested, created_at, updated_at"
)

type rowScanner interface {
	Scan(dest ...any) error
}

var _ repository.JobStore = (*JobRepository)(nil)

// JobRepository keeps job snapshots in postgres so that the API and SQS workers share them.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository instance.
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job.
func (r *JobRepository) Create(ctx context.Context, job *model.Job) error {
	if job.ID == uuid.Nil {
		job.InitMeta()
	}

	query := `INSERT INTO ingestion_jobs (` + jobColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, job.ID, string(job.Kind), string(job.State), job.Processed, job.Total,
		job.Error, nullableJSON(job.Result), job.CancelRequested, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", mapUniqueViolation(err))
	}
	return nil
}

// Get retrieves a job by ID.
func (r *JobRepository) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM ingestion_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query job: %w", err)
	}
	return job, nil
}

// Claim atomically moves a PENDING job to RUNNING. Only one caller wins.
func (r *JobRepository) Claim(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	query := `UPDATE ingestion_jobs SET state = $1, updated_at = $2
	          WHERE id = $3 AND state = $4
	          RETURNING ` + jobColumns

	row := r.db.QueryRowContext(ctx, query, string(model.JobStateRunning), time.Now(), id, string(model.JobStatePending))
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, repository.ErrAlreadyClaimed)
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return job, nil
}

// Update writes state, progress, error and result. The row only changes when the stored state
// may precede the new one and progress does not go backwards; otherwise ErrStaleUpdate is returned.
func (r *JobRepository) Update(ctx context.Context, job *model.Job) error {
	predecessors := job.State.Predecessors()
	if len(predecessors) == 0 {
		return fmt.Errorf("job %s cannot move to %s: %w", job.ID, job.State, repository.ErrStaleUpdate)
	}
	job.UpdatedAt = time.Now()

	query, args, err := psql.Update(jobsTable).
		Set("state", string(job.State)).
		Set("processed", job.Processed).
		Set("total", job.Total).
		Set("error", job.Error).
		Set("result", nullableJSON(job.Result)).
		Set("updated_at", job.UpdatedAt).
		Where(squirrel.Eq{"id": job.ID.String()}).
		Where(squirrel.Eq{"state": stateStrings(predecessors)}).
		Where(squirrel.LtOrEq{"processed": job.Processed}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update statement: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("job %s to %s at %d: %w", job.ID, job.State, job.Processed, repository.ErrStaleUpdate)
	}
	return nil
}

// RequestCancel flags a pending or running job for cooperative cancellation.
func (r *JobRepository) RequestCancel(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE ingestion_jobs SET cancel_requested = TRUE, updated_at = $1
	          WHERE id = $2 AND state IN ($3, $4)`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id, string(model.JobStatePending), string(model.JobStateRunning))
	if err != nil {
		return fmt.Errorf("failed to request cancellation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("job %s: %w", id, repository.ErrJobNotCancelable)
	}
	return nil
}

// DeleteFinishedBefore purges terminal jobs last updated before cutoff.
func (r *JobRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := psql.Delete(jobsTable).
		Where(squirrel.Eq{"state": stateStrings(model.TerminalJobStates)}).
		Where(squirrel.Lt{"updated_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete statement: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete finished jobs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// FailStale fails pending or running jobs whose row has not changed since cutoff.
// A live worker touches its row after every batch, so such jobs have lost their worker.
func (r *JobRepository) FailStale(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	query, args, err := psql.Update(jobsTable).
		Set("state", string(model.JobStateFailed)).
		Set("error", reason).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"state": stateStrings(model.JobStateFailed.Predecessors())}).
		Where(squirrel.Lt{"updated_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build stale job statement: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale jobs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job         model.Job
		kind, state string
		result      []byte
	)
	err := row.Scan(&job.ID, &kind, &state, &job.Processed, &job.Total, &job.Error, &result,
		&job.CancelRequested, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	job.Kind = model.JobKind(kind)
	job.State = model.JobState(state)
	if len(result) > 0 {
		job.Result = json.RawMessage(result)
	}
	return &job, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func stateStrings(states []model.JobState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
