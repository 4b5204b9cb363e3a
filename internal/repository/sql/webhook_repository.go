package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/Masterminds/squirrel"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/google/uuid"
)

const webhookColumns = "id, url, event, active, created_at, updated_at"

var _ repository.WebhookRepository = (*WebhookRepository)(nil)

// WebhookRepository stores registered webhooks.
type WebhookRepository struct {
	db *sql.DB
}

// NewWebhookRepository creates a new WebhookRepository instance.
func NewWebhookRepository(db *sql.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

// Create inserts a new webhook into the database.
func (r *WebhookRepository) Create(ctx context.Context, webhook *model.Webhook) (*model.Webhook, error) {
	if webhook.ID == uuid.Nil {
		webhook.InitMeta()
	}

	query := `INSERT INTO webhooks (id, url, event, active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, webhook.ID, webhook.URL, webhook.Event, webhook.Active, webhook.CreatedAt, webhook.UpdatedAt)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to insert webhook: %w", err)
	}

	return webhook, nil
}

// FindByID retrieves a single webhook by ID.
func (r *WebhookRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE id = $1`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	var result model.Webhook
	err = stmt.QueryRowContext(ctx, id).Scan(
		&result.ID, &result.URL, &result.Event, &result.Active, &result.CreatedAt, &result.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("webhook not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query webhook: %w", err)
	}

	return &result, nil
}

// List retrieves webhooks newest first, optionally filtered by the active flag.
func (r *WebhookRepository) List(ctx context.Context, query repository.Query) ([]*model.Webhook, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	builder := psql.Select(webhookColumns).
		From("webhooks").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))

	if value, ok := query.Values[repository.ActiveField]; ok {
		active, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid active filter %q: %w", value, err)
		}
		builder = builder.Where(squirrel.Eq{"active": active})
	}
	if query.Paginator != nil {
		builder = builder.Where(squirrel.Expr("(created_at, id) < (?, ?)",
			query.Paginator.LastCreatedAt, query.Paginator.LastID))
	}

	statement, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select statement: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []*model.Webhook
	for rows.Next() {
		var webhook model.Webhook
		err := rows.Scan(&webhook.ID, &webhook.URL, &webhook.Event, &webhook.Active, &webhook.CreatedAt, &webhook.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, &webhook)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return webhooks, nil
}
