package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	defaultLockAttempts = 50
	defaultLockBackoff  = 2 * time.Millisecond
)

// MemoryStore is an in-process ledger store. It serves tests and
// single-node deployments without PostgreSQL. Writers serialize per key via
// keyLocker while disjoint keys proceed independently; mutations stage in a
// journal and become visible only on Commit.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Key]Record
	locker  *keyLocker

	lockAttempts int
	lockBackoff  time.Duration
}

// NewMemoryStore constructs an empty MemoryStore with the default lock
// acquisition budget.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:      make(map[Key]Record),
		locker:       newKeyLocker(),
		lockAttempts: defaultLockAttempts,
		lockBackoff:  defaultLockBackoff,
	}
}

// SetLockBudget overrides the per-key acquisition budget. Useful in tests
// that provoke contention.
func (s *MemoryStore) SetLockBudget(attempts int, backoff time.Duration) {
	s.lockAttempts = attempts
	s.lockBackoff = backoff
}

// Get returns the current committed record without locking it.
func (s *MemoryStore) Get(_ context.Context, key Key) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

// ListBelowReorder returns committed records at or below their reorder
// level, ordered by key.
func (s *MemoryStore) ListBelowReorder(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, rec := range s.records {
		if rec.ReorderLevel > 0 && rec.QuantityAvailable <= rec.ReorderLevel {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Begin opens a unit of work over the store.
func (s *MemoryStore) Begin() *MemoryTx {
	return &MemoryTx{
		store:  s,
		staged: make(map[Key]Record),
		held:   make(map[Key]bool),
	}
}

// MemoryTx implements TxStore over a MemoryStore. Key locks acquired by
// GetForUpdate are held until Commit or Rollback.
type MemoryTx struct {
	store  *MemoryStore
	staged map[Key]Record
	held   map[Key]bool
	done   bool
}

// GetForUpdate locks the key for the lifetime of the unit of work and
// returns the committed record, or any version already staged here.
func (t *MemoryTx) GetForUpdate(ctx context.Context, key Key) (Record, error) {
	if err := t.acquire(key); err != nil {
		return Record{}, err
	}
	if rec, ok := t.staged[key]; ok {
		return rec, nil
	}
	return t.store.Get(ctx, key)
}

// Upsert stages the record; it stays invisible to readers until Commit.
func (t *MemoryTx) Upsert(_ context.Context, rec Record) error {
	if err := t.acquire(rec.Key); err != nil {
		return err
	}
	t.staged[rec.Key] = rec
	return nil
}

func (t *MemoryTx) acquire(key Key) error {
	if t.held[key] {
		return nil
	}
	if err := t.store.locker.Acquire(key, t.store.lockAttempts, t.store.lockBackoff); err != nil {
		return err
	}
	t.held[key] = true
	return nil
}

// Commit publishes staged records and releases all key locks.
func (t *MemoryTx) Commit() {
	if t.done {
		return
	}
	t.done = true
	t.store.mu.Lock()
	for key, rec := range t.staged {
		t.store.records[key] = rec
	}
	t.store.mu.Unlock()
	t.release()
}

// Rollback discards staged records and releases all key locks.
func (t *MemoryTx) Rollback() {
	if t.done {
		return
	}
	t.done = true
	t.release()
}

func (t *MemoryTx) release() {
	for key := range t.held {
		t.store.locker.Release(key)
	}
}
