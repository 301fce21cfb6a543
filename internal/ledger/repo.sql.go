package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads stock records from PostgreSQL outside any movement
// transaction. Mutation goes through the TxStore returned by NewTxStore.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the committed record for key.
func (r *Repository) Get(ctx context.Context, key Key) (Record, error) {
	rec := Record{Key: key}
	err := r.pool.QueryRow(ctx, `SELECT quantity_available, reorder_level, version, updated_at
FROM stock_records WHERE product_id=$1 AND variation_id=$2 AND location=$3`,
		key.ProductID, key.VariationID, key.Location).
		Scan(&rec.QuantityAvailable, &rec.ReorderLevel, &rec.Version, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// ListBelowReorder returns records at or below their reorder level.
func (r *Repository) ListBelowReorder(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT product_id, variation_id, location, quantity_available, reorder_level, version, updated_at
FROM stock_records
WHERE reorder_level > 0 AND quantity_available <= reorder_level
ORDER BY product_id, variation_id, location
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Key.ProductID, &rec.Key.VariationID, &rec.Key.Location,
			&rec.QuantityAvailable, &rec.ReorderLevel, &rec.Version, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// NewTxStore wraps a pgx transaction as a TxStore. Row locks taken by
// SELECT FOR UPDATE provide the per-key exclusive section; the surrounding
// repeatable-read transaction provides atomicity with the document writes.
func NewTxStore(tx pgx.Tx) TxStore {
	return &pgTxStore{tx: tx}
}

type pgTxStore struct {
	tx pgx.Tx
}

func (s *pgTxStore) GetForUpdate(ctx context.Context, key Key) (Record, error) {
	// Ensure the row exists before locking it, otherwise two concurrent
	// first receipts of the same key would both observe "absent".
	_, err := s.tx.Exec(ctx, `INSERT INTO stock_records (product_id, variation_id, location, quantity_available, reorder_level, version, updated_at)
VALUES ($1,$2,$3,0,0,0,NOW())
ON CONFLICT (product_id, variation_id, location) DO NOTHING`,
		key.ProductID, key.VariationID, key.Location)
	if err != nil {
		return Record{}, MapError(err)
	}
	rec := Record{Key: key}
	err = s.tx.QueryRow(ctx, `SELECT quantity_available, reorder_level, version, updated_at
FROM stock_records WHERE product_id=$1 AND variation_id=$2 AND location=$3 FOR UPDATE`,
		key.ProductID, key.VariationID, key.Location).
		Scan(&rec.QuantityAvailable, &rec.ReorderLevel, &rec.Version, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, MapError(err)
	}
	return rec, nil
}

func (s *pgTxStore) Upsert(ctx context.Context, rec Record) error {
	_, err := s.tx.Exec(ctx, `INSERT INTO stock_records (product_id, variation_id, location, quantity_available, reorder_level, version, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (product_id, variation_id, location) DO UPDATE
SET quantity_available=EXCLUDED.quantity_available, version=EXCLUDED.version, updated_at=EXCLUDED.updated_at`,
		rec.Key.ProductID, rec.Key.VariationID, rec.Key.Location,
		rec.QuantityAvailable, rec.ReorderLevel, rec.Version, rec.UpdatedAt)
	return MapError(err)
}

// MapError folds serialization failures, deadlocks and lock timeouts into
// ErrContention so the coordinator can retry the unit of work. Any of these
// can surface from the row lock, the document inserts or the final commit.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return ErrContention
		}
	}
	return err
}
