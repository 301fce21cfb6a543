package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedRecord(t *testing.T, store *MemoryStore, key Key, qty, reorder int64) {
	t.Helper()
	tx := store.Begin()
	_, err := tx.GetForUpdate(context.Background(), key)
	if err != nil {
		require.ErrorIs(t, err, ErrRecordNotFound)
	}
	require.NoError(t, tx.Upsert(context.Background(), Record{Key: key, QuantityAvailable: qty, ReorderLevel: reorder, Version: 1}))
	tx.Commit()
}

func TestApplyBatchCreatesRecordOnFirstReceipt(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine()
	key := Key{ProductID: 1}

	tx := store.Begin()
	snaps, err := engine.ApplyBatch(context.Background(), tx, []Delta{{Key: key, Quantity: 5, Line: 0}})
	require.NoError(t, err)
	tx.Commit()

	require.Len(t, snaps, 1)
	require.Equal(t, int64(0), snaps[0].Before)
	require.Equal(t, int64(5), snaps[0].After)

	rec, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, int64(5), rec.QuantityAvailable)
	require.Equal(t, int64(1), rec.Version)
}

func TestApplyBatchCumulativeSameKey(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine()
	key := Key{ProductID: 7, Location: "main"}
	seedRecord(t, store, key, 10, 0)

	tx := store.Begin()
	snaps, err := engine.ApplyBatch(context.Background(), tx, []Delta{
		{Key: key, Quantity: -4, Line: 0},
		{Key: key, Quantity: -4, Line: 1},
	})
	require.NoError(t, err)
	tx.Commit()

	require.Equal(t, int64(10), snaps[0].Before)
	require.Equal(t, int64(6), snaps[0].After)
	require.Equal(t, int64(6), snaps[1].Before)
	require.Equal(t, int64(2), snaps[1].After)

	rec, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, int64(2), rec.QuantityAvailable)
}

func TestApplyBatchCumulativeOverdraw(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine()
	key := Key{ProductID: 7}
	seedRecord(t, store, key, 10, 0)

	// Each line is individually satisfiable but together they overdraw.
	tx := store.Begin()
	_, err := engine.ApplyBatch(context.Background(), tx, []Delta{
		{Key: key, Quantity: -6, Line: 0},
		{Key: key, Quantity: -6, Line: 1},
	})
	tx.Rollback()

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, 1, insufficient.Line)
	require.Equal(t, int64(6), insufficient.Requested)
	require.Equal(t, int64(4), insufficient.Available)
	require.Equal(t, int64(2), insufficient.Shortfall())

	rec, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, int64(10), rec.QuantityAvailable)
}

func TestApplyBatchAllOrNothingAcrossKeys(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine()
	okKey := Key{ProductID: 1}
	shortKey := Key{ProductID: 2}
	seedRecord(t, store, okKey, 100, 0)
	seedRecord(t, store, shortKey, 1, 0)

	tx := store.Begin()
	_, err := engine.ApplyBatch(context.Background(), tx, []Delta{
		{Key: okKey, Quantity: -10, Line: 0},
		{Key: shortKey, Quantity: -5, Line: 1},
	})
	tx.Rollback()

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, shortKey, insufficient.Key)

	rec, err := store.Get(context.Background(), okKey)
	require.NoError(t, err)
	require.Equal(t, int64(100), rec.QuantityAvailable)
}

func TestApplyBatchRejectsEmptyBatch(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine()

	tx := store.Begin()
	defer tx.Rollback()
	_, err := engine.ApplyBatch(context.Background(), tx, nil)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrContention))
}

func TestApplyDeltaIssueToZeroIsValid(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine()
	key := Key{ProductID: 3, VariationID: 9}
	seedRecord(t, store, key, 5, 0)

	tx := store.Begin()
	snap, err := engine.ApplyDelta(context.Background(), tx, Delta{Key: key, Quantity: -5})
	require.NoError(t, err)
	tx.Commit()

	require.Equal(t, int64(0), snap.After)

	rec, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, int64(0), rec.QuantityAvailable)
}

func TestKeyOrderingIsDeterministic(t *testing.T) {
	keys := distinctKeys([]Delta{
		{Key: Key{ProductID: 2, VariationID: 1}},
		{Key: Key{ProductID: 1, Location: "b"}},
		{Key: Key{ProductID: 1, Location: "a"}},
		{Key: Key{ProductID: 2, VariationID: 1}},
	})
	require.Equal(t, []Key{
		{ProductID: 1, Location: "a"},
		{ProductID: 1, Location: "b"},
		{ProductID: 2, VariationID: 1},
	}, keys)
}
