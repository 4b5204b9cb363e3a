package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jobRowColumns = []string{"id", "kind", "state", "processed", "total", "error", "result", "cancel_requested", "created_at", "updated_at"}

func TestJobRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewJobRepository(db)
	job := &model.Job{Kind: model.JobKindIngestion}

	mock.ExpectPrepare("INSERT INTO ingestion_jobs").
		ExpectExec().
		WithArgs(sqlmock.AnyArg(), "ingestion", "PENDING", int64(0), int64(0), "", nil, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), job))
	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, model.JobStatePending, job.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewJobRepository(db)
	ctx := context.Background()

	t.Run("job with result", func(t *testing.T) {
		id := uuid.New()
		now := time.Now()
		rows := sqlmock.NewRows(jobRowColumns).
			AddRow(id.String(), "webhook_test", "SUCCEEDED", int64(1), int64(1), "", []byte(`{"success":true}`), false, now, now)

		mock.ExpectQuery("SELECT (.+) FROM ingestion_jobs WHERE id = \\$1").
			WithArgs(id).
			WillReturnRows(rows)

		job, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.JobKindWebhookTest, job.Kind)
		assert.Equal(t, model.JobStateSucceeded, job.State)
		assert.JSONEq(t, `{"success":true}`, string(job.Result))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("job not found", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery("SELECT (.+) FROM ingestion_jobs WHERE id = \\$1").
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		job, err := repo.Get(ctx, id)
		assert.Nil(t, job)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestJobRepository_Claim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewJobRepository(db)
	ctx := context.Background()

	t.Run("pending job is claimed", func(t *testing.T) {
		id := uuid.New()
		now := time.Now()
		rows := sqlmock.NewRows(jobRowColumns).
			AddRow(id.String(), "ingestion", "RUNNING", int64(0), int64(0), "", nil, false, now, now)

		mock.ExpectQuery("UPDATE ingestion_jobs SET state = \\$1, updated_at = \\$2 (.+) RETURNING").
			WithArgs("RUNNING", sqlmock.AnyArg(), id, "PENDING").
			WillReturnRows(rows)

		job, err := repo.Claim(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.JobStateRunning, job.State)
		assert.Nil(t, job.Result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second claim loses", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery("UPDATE ingestion_jobs SET state").
			WithArgs("RUNNING", sqlmock.AnyArg(), id, "PENDING").
			WillReturnError(sql.ErrNoRows)

		job, err := repo.Claim(ctx, id)
		assert.Nil(t, job)
		assert.ErrorIs(t, err, repository.ErrAlreadyClaimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestJobRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewJobRepository(db)
	ctx := context.Background()
	updateSQL := "UPDATE ingestion_jobs SET state = \\$1, processed = \\$2, total = \\$3, error = \\$4, result = \\$5, updated_at = \\$6 " +
		"WHERE id = \\$7 AND state IN \\((.+)\\) AND processed <= \\$\\d+"

	t.Run("progress update is applied", func(t *testing.T) {
		job := &model.Job{ID: uuid.New(), State: model.JobStateRunning, Processed: 20000, Total: 50000}

		mock.ExpectExec(updateSQL).
			WithArgs("RUNNING", int64(20000), int64(50000), "", nil, sqlmock.AnyArg(),
				job.ID.String(), "PENDING", "RUNNING", int64(20000)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(ctx, job))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success carries the result", func(t *testing.T) {
		job := &model.Job{ID: uuid.New(), State: model.JobStateSucceeded, Processed: 1, Total: 1, Result: json.RawMessage(`{"ok":true}`)}

		mock.ExpectExec(updateSQL).
			WithArgs("SUCCEEDED", int64(1), int64(1), "", `{"ok":true}`, sqlmock.AnyArg(),
				job.ID.String(), "RUNNING", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(ctx, job))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("regressing update is stale", func(t *testing.T) {
		job := &model.Job{ID: uuid.New(), State: model.JobStateRunning, Processed: 10}

		mock.ExpectExec(updateSQL).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(ctx, job)
		assert.ErrorIs(t, err, repository.ErrStaleUpdate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("moving back to pending is rejected without a query", func(t *testing.T) {
		job := &model.Job{ID: uuid.New(), State: model.JobStatePending}

		err := repo.Update(ctx, job)
		assert.ErrorIs(t, err, repository.ErrStaleUpdate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestJobRepository_RequestCancel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewJobRepository(db)
	ctx := context.Background()

	t.Run("running job is flagged", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec("UPDATE ingestion_jobs SET cancel_requested = TRUE").
			WithArgs(sqlmock.AnyArg(), id, "PENDING", "RUNNING").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.RequestCancel(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("finished job is not cancelable", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec("UPDATE ingestion_jobs SET cancel_requested = TRUE").
			WithArgs(sqlmock.AnyArg(), id, "PENDING", "RUNNING").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.RequestCancel(ctx, id)
		assert.ErrorIs(t, err, repository.ErrJobNotCancelable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestJobRepository_DeleteFinishedBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewJobRepository(db)
	cutoff := time.Now().Add(-24 * time.Hour)

	mock.ExpectExec("DELETE FROM ingestion_jobs WHERE state IN \\(\\$1,\\$2\\) AND updated_at < \\$3").
		WithArgs("SUCCEEDED", "FAILED", cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := repo.DeleteFinishedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_FailStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewJobRepository(db)
	cutoff := time.Now().Add(-30 * time.Minute)

	mock.ExpectExec("UPDATE ingestion_jobs SET state = \\$1, error = \\$2, updated_at = \\$3 WHERE state IN \\(\\$4,\\$5\\) AND updated_at < \\$6").
		WithArgs("FAILED", "worker lost", sqlmock.AnyArg(), "PENDING", "RUNNING", cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	failed, err := repo.FailStale(context.Background(), cutoff, "worker lost")
	require.NoError(t, err)
	assert.Equal(t, int64(2), failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
