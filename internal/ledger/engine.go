package ledger

import (
	"context"
	"errors"
	"sort"
	"time"
)

// TxStore is the storage surface the engine mutates. An implementation must
// hold exclusive access to a key from GetForUpdate until the surrounding
// unit of work commits or rolls back.
type TxStore interface {
	// GetForUpdate locks the record for key and returns it. A key that has
	// never been written returns ErrRecordNotFound; the engine treats that
	// as an implicit create-if-absent.
	GetForUpdate(ctx context.Context, key Key) (Record, error)
	// Upsert writes the record, creating it when absent.
	Upsert(ctx context.Context, rec Record) error
}

// Engine validates and applies delta batches against a TxStore. It is
// stateless; atomicity and visibility come from the unit of work that owns
// the store.
type Engine struct{}

// NewEngine constructs Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// ApplyDelta applies a single delta and returns its snapshot.
func (e *Engine) ApplyDelta(ctx context.Context, store TxStore, delta Delta) (Snapshot, error) {
	snaps, err := e.ApplyBatch(ctx, store, []Delta{delta})
	if err != nil {
		return Snapshot{}, err
	}
	return snaps[0], nil
}

// ApplyBatch applies every delta or none. Deltas against the same key are
// cumulative and validated in request order; the whole batch is validated
// before any record is written, so an InsufficientStockError leaves the
// store untouched. Keys are locked in sorted order so two overlapping
// batches cannot deadlock.
func (e *Engine) ApplyBatch(ctx context.Context, store TxStore, deltas []Delta) ([]Snapshot, error) {
	if len(deltas) == 0 {
		return nil, errors.New("ledger: empty delta batch")
	}

	keys := distinctKeys(deltas)
	records := make(map[Key]Record, len(keys))
	for _, key := range keys {
		rec, err := store.GetForUpdate(ctx, key)
		if err != nil {
			if !errors.Is(err, ErrRecordNotFound) {
				return nil, err
			}
			rec = Record{Key: key}
		}
		records[key] = rec
	}

	running := make(map[Key]int64, len(keys))
	for key, rec := range records {
		running[key] = rec.QuantityAvailable
	}

	snapshots := make([]Snapshot, len(deltas))
	for i, d := range deltas {
		before := running[d.Key]
		after := before + d.Quantity
		if after < 0 {
			return nil, &InsufficientStockError{
				Line:      d.Line,
				Key:       d.Key,
				Requested: -d.Quantity,
				Available: before,
			}
		}
		running[d.Key] = after
		snapshots[i] = Snapshot{Key: d.Key, Before: before, After: after}
	}

	now := time.Now().UTC()
	for _, key := range keys {
		rec := records[key]
		rec.QuantityAvailable = running[key]
		rec.Version++
		rec.UpdatedAt = now
		if err := store.Upsert(ctx, rec); err != nil {
			return nil, err
		}
	}
	return snapshots, nil
}

func distinctKeys(deltas []Delta) []Key {
	seen := make(map[Key]struct{}, len(deltas))
	keys := make([]Key, 0, len(deltas))
	for _, d := range deltas {
		if _, ok := seen[d.Key]; ok {
			continue
		}
		seen[d.Key] = struct{}{}
		keys = append(keys, d.Key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
