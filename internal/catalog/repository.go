package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository resolves catalog references against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ResolveProduct validates the product and, when variationID is non-zero,
// that the variation belongs to the product. A variation that does not
// belong to the product resolves as missing.
func (r *Repository) ResolveProduct(ctx context.Context, productID, variationID int64) (Resolution, error) {
	res, err := r.resolveRow(ctx,
		`SELECT is_active, deleted_at FROM products WHERE id=$1`, productID)
	if err != nil || !res.Exists {
		return res, err
	}
	if variationID == 0 {
		return res, nil
	}
	varRes, err := r.resolveRow(ctx,
		`SELECT is_active, deleted_at FROM product_variations WHERE id=$1 AND product_id=$2`,
		variationID, productID)
	if err != nil || !varRes.Exists {
		return varRes, err
	}
	return Resolution{Exists: true, Active: res.Active && varRes.Active}, nil
}

// ResolveSupplier validates a supplier id.
func (r *Repository) ResolveSupplier(ctx context.Context, supplierID int64) (Resolution, error) {
	return r.resolveRow(ctx,
		`SELECT is_active, deleted_at FROM suppliers WHERE id=$1`, supplierID)
}

func (r *Repository) resolveRow(ctx context.Context, query string, args ...any) (Resolution, error) {
	var active bool
	var deletedAt *time.Time
	err := r.pool.QueryRow(ctx, query, args...).Scan(&active, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Resolution{}, nil
		}
		return Resolution{}, err
	}
	return Resolution{Exists: true, Active: active && deletedAt == nil}, nil
}
