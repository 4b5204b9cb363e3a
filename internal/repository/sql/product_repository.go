package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/google/uuid"
)

// upsertProductQuery resolves SKU conflicts in the database so concurrent jobs never
// race on a read-then-write. id, active and created_at survive the update.
const upsertProductQuery = `INSERT INTO products (id, sku, name, description, active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, TRUE, $5, $6)
	ON CONFLICT (sku) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		updated_at = EXCLUDED.updated_at`

var _ repository.ProductCatalog = (*ProductRepository)(nil)

// ProductRepository stores catalog products.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new ProductRepository instance.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// UpsertBatch applies records in one transaction. A SKU repeated inside the batch keeps its
// last values. Rows are written in SKU order so that concurrent batches touching the same
// SKUs take their row locks in the same order and cannot deadlock.
func (r *ProductRepository) UpsertBatch(ctx context.Context, records []model.ProductRecord) error {
	if len(records) == 0 {
		return nil
	}
	ordered := lastPerSKU(records)

	return withinTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertProductQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert statement: %w", err)
		}
		defer stmt.Close()

		now := time.Now()
		for _, rec := range ordered {
			_, err = stmt.ExecContext(ctx, uuid.New(), rec.SKU, rec.Name, rec.Description, now, now)
			if err != nil {
				return fmt.Errorf("failed to upsert product %q: %w", rec.SKU, err)
			}
		}
		return nil
	})
}

// lastPerSKU keeps the last record for every SKU, sorted by SKU.
func lastPerSKU(records []model.ProductRecord) []model.ProductRecord {
	latest := make(map[string]int, len(records))
	for i, rec := range records {
		latest[rec.SKU] = i
	}
	out := make([]model.ProductRecord, 0, len(latest))
	for _, i := range latest {
		out = append(out, records[i])
	}
	slices.SortFunc(out, func(a, b model.ProductRecord) int {
		return strings.Compare(a.SKU, b.SKU)
	})
	return out
}

// FindBySKU retrieves a single product by its SKU.
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	query := `SELECT id, sku, name, description, active, created_at, updated_at FROM products WHERE sku = $1`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	var result model.Product
	err = stmt.QueryRowContext(ctx, sku).Scan(
		&result.ID, &result.SKU, &result.Name, &result.Description, &result.Active, &result.CreatedAt, &result.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &result, nil
}

// DeleteAll removes every product and returns how many rows were deleted.
func (r *ProductRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// DeleteByIDs removes the products with the given ids. Unknown ids are ignored.
func (r *ProductRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := psql.Delete("products").Where(squirrel.Eq{"id": uuidStrings(ids)}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete statement: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// uuidStrings renders ids as strings; uuid.UUID is an array type that squirrel would expand.
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
