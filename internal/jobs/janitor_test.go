package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/jobs"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestJanitor_Purge(t *testing.T) {
	ctx := context.Background()

	t.Run("expired terminal jobs become unknown", func(t *testing.T) {
		store := jobs.NewMemoryStore()
		job := newPendingJob(t, store)
		job.State = model.JobStateFailed
		require.NoError(t, store.Update(ctx, job))

		janitor := jobs.NewJanitor(store, -time.Second, time.Hour, time.Minute)
		deleted, err := janitor.Purge(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, err = store.Get(ctx, job.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("cutoff honors retention", func(t *testing.T) {
		store := new(MockJobStore)
		store.On("DeleteFinishedBefore", ctx, mock.MatchedBy(func(cutoff time.Time) bool {
			age := time.Since(cutoff)
			return age > 23*time.Hour && age < 25*time.Hour
		})).Return(int64(0), nil)

		_, err := jobs.NewJanitor(store, 24*time.Hour, time.Hour, time.Minute).Purge(ctx)
		require.NoError(t, err)
		store.AssertExpectations(t)
	})
}

func TestJanitor_FailStale(t *testing.T) {
	ctx := context.Background()

	t.Run("jobs without progress past the lease fail", func(t *testing.T) {
		// given
		store := jobs.NewMemoryStore()
		queued := newPendingJob(t, store)
		running, err := store.Claim(ctx, newPendingJob(t, store).ID)
		require.NoError(t, err)
		done := newPendingJob(t, store)
		done.State = model.JobStateFailed
		done.Error = "boom"
		require.NoError(t, store.Update(ctx, done))

		// when
		failed, err := jobs.NewJanitor(store, time.Hour, -time.Second, time.Minute).FailStale(ctx)

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(2), failed)
		for _, id := range []uuid.UUID{queued.ID, running.ID} {
			job, err := store.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, model.JobStateFailed, job.State)
			assert.Equal(t, jobs.ErrLeaseExpired.Error(), job.Error)
		}
		kept, err := store.Get(ctx, done.ID)
		require.NoError(t, err)
		assert.Equal(t, "boom", kept.Error)
	})

	t.Run("jobs within the lease are left alone", func(t *testing.T) {
		// given
		store := jobs.NewMemoryStore()
		job := newPendingJob(t, store)

		// when
		failed, err := jobs.NewJanitor(store, time.Hour, time.Hour, time.Minute).FailStale(ctx)

		// then
		require.NoError(t, err)
		assert.Zero(t, failed)
		current, err := store.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatePending, current.State)
	})

	t.Run("a worker that outlived its lease cannot overwrite the verdict", func(t *testing.T) {
		// given
		store := jobs.NewMemoryStore()
		job, err := store.Claim(ctx, newPendingJob(t, store).ID)
		require.NoError(t, err)
		_, err = jobs.NewJanitor(store, time.Hour, -time.Second, time.Minute).FailStale(ctx)
		require.NoError(t, err)

		// when
		job.Processed = 10
		err = store.Update(ctx, job)

		// then
		assert.ErrorIs(t, err, repository.ErrStaleUpdate)
	})
}

func TestJanitor_StartSweepsImmediately(t *testing.T) {
	store := new(MockJobStore)
	swept := make(chan struct{})
	store.On("FailStale", mock.Anything, mock.Anything, jobs.ErrLeaseExpired.Error()).
		Run(func(mock.Arguments) { close(swept) }).
		Return(int64(1), nil).Once()
	store.On("DeleteFinishedBefore", mock.Anything, mock.Anything).Return(int64(0), nil).Maybe()
	janitor := jobs.NewJanitor(store, time.Hour, time.Minute, time.Hour)

	go janitor.Start(context.Background())
	defer janitor.Stop()

	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("janitor did not sweep on start")
	}
}

func TestJanitor_StartStop(t *testing.T) {
	t.Run("janitor can be stopped gracefully", func(t *testing.T) {
		store := new(MockJobStore)
		store.On("DeleteFinishedBefore", mock.Anything, mock.Anything).Return(int64(0), nil).Maybe()
		store.On("FailStale", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil).Maybe()
		janitor := jobs.NewJanitor(store, time.Hour, time.Hour, 10*time.Millisecond)

		done := make(chan struct{})
		go func() {
			janitor.Start(context.Background())
			close(done)
		}()

		time.Sleep(30 * time.Millisecond)
		janitor.Stop()
		janitor.Stop()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("janitor did not stop")
		}
	})
}
