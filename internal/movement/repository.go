package movement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockroom-ims/stockroom/internal/ledger"
)

// RepositoryPort is the unit-of-work surface the coordinator drives.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByNumber(ctx context.Context, number string) (Header, []Line, error)
}

// TxRepository couples the append-only document store with the stock ledger
// store so a movement commits both or neither.
type TxRepository interface {
	Ledger() ledger.TxStore
	InsertHeader(ctx context.Context, h Header) (int64, error)
	InsertLines(ctx context.Context, documentID int64, lines []Line) ([]int64, error)
}

// ErrDocumentNotFound indicates no document exists for a number.
var ErrDocumentNotFound = errors.New("movement: document not found")

// Repository is the PostgreSQL document store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("movement repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// GetByNumber loads a committed document header with its lines.
func (r *Repository) GetByNumber(ctx context.Context, number string) (Header, []Line, error) {
	var h Header
	err := r.pool.QueryRow(ctx, `SELECT id, number, kind, COALESCE(supplier_id, 0), issued_to, issue_reason, actor_id, occurred_at, total_amount, remarks, created_at
FROM movement_documents WHERE number=$1`, number).
		Scan(&h.ID, &h.Number, &h.Kind, &h.SupplierID, &h.IssuedTo, &h.IssueReason, &h.ActorID, &h.OccurredAt, &h.TotalAmount, &h.Remarks, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Header{}, nil, ErrDocumentNotFound
		}
		return Header{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, document_id, product_id, COALESCE(variation_id, 0), location, quantity, unit_cost, sub_total, quantity_before, quantity_after
FROM movement_lines WHERE document_id=$1 ORDER BY id ASC`, h.ID)
	if err != nil {
		return Header{}, nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.DocumentID, &line.ProductID, &line.VariationID, &line.Location,
			&line.Quantity, &line.UnitCost, &line.SubTotal, &line.QuantityBefore, &line.QuantityAfter); err != nil {
			return Header{}, nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return Header{}, nil, err
	}
	return h, lines, nil
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Ledger() ledger.TxStore {
	return ledger.NewTxStore(r.tx)
}

func (r *txRepository) InsertHeader(ctx context.Context, h Header) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO movement_documents (number, kind, supplier_id, issued_to, issue_reason, actor_id, occurred_at, total_amount, remarks, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		h.Number, string(h.Kind), nullInt(h.SupplierID), h.IssuedTo, h.IssueReason,
		h.ActorID, h.OccurredAt, h.TotalAmount, h.Remarks, h.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLines(ctx context.Context, documentID int64, lines []Line) ([]int64, error) {
	ids := make([]int64, len(lines))
	for i, line := range lines {
		err := r.tx.QueryRow(ctx, `INSERT INTO movement_lines (document_id, product_id, variation_id, location, quantity, unit_cost, sub_total, quantity_before, quantity_after)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
			documentID, line.ProductID, nullInt(line.VariationID), line.Location,
			line.Quantity, line.UnitCost, line.SubTotal, line.QuantityBefore, line.QuantityAfter).Scan(&ids[i])
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
