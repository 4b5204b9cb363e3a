package sql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var webhookRowColumns = []string{"id", "url", "event", "active", "created_at", "updated_at"}

func TestWebhookRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewWebhookRepository(db)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		webhook := &model.Webhook{URL: "https://example.com/hook", Event: "product.upserted", Active: true}

		mock.ExpectPrepare("INSERT INTO webhooks").
			ExpectExec().
			WithArgs(sqlmock.AnyArg(), webhook.URL, webhook.Event, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		result, err := repo.Create(ctx, webhook)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, result.ID)
		assert.False(t, result.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate webhook maps to unique constraint error", func(t *testing.T) {
		webhook := &model.Webhook{URL: "https://example.com/hook", Event: "product.upserted"}

		mock.ExpectPrepare("INSERT INTO webhooks").
			ExpectExec().
			WillReturnError(&pgconn.PgError{Code: "23505", Detail: "Key (url, event) already exists."})

		result, err := repo.Create(ctx, webhook)
		assert.Nil(t, result)
		var uniqueErr *repository.UniqueConstraintError
		require.ErrorAs(t, err, &uniqueErr)
		assert.Contains(t, uniqueErr.Detail, "already exists")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lib/pq unique violation is mapped too", func(t *testing.T) {
		webhook := &model.Webhook{URL: "https://example.com/hook", Event: "product.upserted"}

		mock.ExpectPrepare("INSERT INTO webhooks").
			ExpectExec().
			WillReturnError(&pq.Error{Code: "23505", Detail: "Key (url, event) already exists."})

		_, err := repo.Create(ctx, webhook)
		var uniqueErr *repository.UniqueConstraintError
		require.ErrorAs(t, err, &uniqueErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWebhookRepository_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewWebhookRepository(db)
	ctx := context.Background()

	t.Run("successful find", func(t *testing.T) {
		id := uuid.New()
		now := time.Now()
		rows := sqlmock.NewRows(webhookRowColumns).
			AddRow(id.String(), "https://example.com/hook", "product.upserted", false, now, now)

		mock.ExpectPrepare("SELECT (.+) FROM webhooks WHERE id").
			ExpectQuery().
			WithArgs(id).
			WillReturnRows(rows)

		webhook, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, webhook.ID)
		assert.False(t, webhook.Active)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("webhook not found", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectPrepare("SELECT (.+) FROM webhooks WHERE id").
			ExpectQuery().
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		webhook, err := repo.FindByID(ctx, id)
		assert.Nil(t, webhook)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWebhookRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewWebhookRepository(db)
	ctx := context.Background()

	t.Run("list active webhooks", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows(webhookRowColumns).
			AddRow(uuid.NewString(), "https://a.example.com", "product.upserted", true, now, now).
			AddRow(uuid.NewString(), "https://b.example.com", "product.upserted", true, now, now)

		mock.ExpectQuery("SELECT (.+) FROM webhooks WHERE active = \\$1 ORDER BY created_at DESC, id DESC LIMIT 5").
			WithArgs(true).
			WillReturnRows(rows)

		q := repository.NewQuery().With(repository.ActiveField, "true")
		q.Limit = 5
		webhooks, err := repo.List(ctx, *q)
		require.NoError(t, err)
		assert.Len(t, webhooks, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list with pagination", func(t *testing.T) {
		paginator := &repository.Paginator{LastID: uuid.New(), LastCreatedAt: time.Now()}
		rows := sqlmock.NewRows(webhookRowColumns)

		mock.ExpectQuery("SELECT (.+) FROM webhooks WHERE \\(created_at, id\\) < \\(\\$1, \\$2\\) ORDER BY created_at DESC, id DESC LIMIT 10").
			WithArgs(paginator.LastCreatedAt, paginator.LastID).
			WillReturnRows(rows)

		webhooks, err := repo.List(ctx, repository.Query{Paginator: paginator})
		require.NoError(t, err)
		assert.Empty(t, webhooks)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid active filter", func(t *testing.T) {
		q := repository.NewQuery().With(repository.ActiveField, "maybe")
		_, err := repo.List(ctx, *q)
		assert.Error(t, err)
	})
}
