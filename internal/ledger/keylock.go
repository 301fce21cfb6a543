package ledger

import (
	"sync"
	"time"
)

// keyLocker hands out one semaphore per stock key so movements against
// disjoint keys never contend. Acquisition is bounded: a writer that cannot
// obtain a key within its attempt budget gives up with ErrContention
// instead of blocking indefinitely.
type keyLocker struct {
	mu    sync.Mutex
	locks map[Key]chan struct{}
}

func newKeyLocker() *keyLocker {
	return &keyLocker{locks: make(map[Key]chan struct{})}
}

func (l *keyLocker) semaphore(key Key) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.locks[key] = sem
	}
	return sem
}

// Acquire takes the key's lock, polling up to attempts times with backoff
// between tries before surfacing ErrContention.
func (l *keyLocker) Acquire(key Key, attempts int, backoff time.Duration) error {
	sem := l.semaphore(key)
	for i := 0; i < attempts; i++ {
		select {
		case sem <- struct{}{}:
			return nil
		default:
		}
		time.Sleep(backoff)
	}
	return ErrContention
}

// Release frees the key's lock. Releasing an unheld key is a no-op.
func (l *keyLocker) Release(key Key) {
	sem := l.semaphore(key)
	select {
	case <-sem:
	default:
	}
}
