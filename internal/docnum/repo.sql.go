package docnum

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgGenerator draws numbers from the document_sequences table with a single
// upsert-increment statement. It deliberately runs on the pool rather than
// inside the movement transaction, so a rolled-back movement leaves a gap
// in the sequence instead of reusing its number.
type PgGenerator struct {
	pool *pgxpool.Pool
}

// NewPgGenerator constructs PgGenerator.
func NewPgGenerator(pool *pgxpool.Pool) *PgGenerator {
	return &PgGenerator{pool: pool}
}

// Next returns the next number for kind.
func (g *PgGenerator) Next(ctx context.Context, kind Kind) (string, error) {
	var n int64
	err := g.pool.QueryRow(ctx, `INSERT INTO document_sequences (kind, last_value)
VALUES ($1, 1)
ON CONFLICT (kind) DO UPDATE SET last_value = document_sequences.last_value + 1
RETURNING last_value`, string(kind)).Scan(&n)
	if err != nil {
		return "", err
	}
	return Format(kind, n), nil
}
