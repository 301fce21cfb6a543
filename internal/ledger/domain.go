package ledger

import (
	"errors"
	"fmt"
	"time"
)

// Key identifies one stock position. VariationID and Location are optional
// discriminators; the zero value stands for "no variation" / "no location"
// and is a first-class key component.
type Key struct {
	ProductID   int64
	VariationID int64
	Location    string
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%s", k.ProductID, k.VariationID, k.Location)
}

// Less orders keys deterministically so every batch locks them in the same
// order regardless of line order.
func (k Key) Less(other Key) bool {
	if k.ProductID != other.ProductID {
		return k.ProductID < other.ProductID
	}
	if k.VariationID != other.VariationID {
		return k.VariationID < other.VariationID
	}
	return k.Location < other.Location
}

// Record is the authoritative on-hand quantity for a key. Records are
// created lazily on first receipt and never deleted; zero quantity is a
// valid steady state.
type Record struct {
	Key               Key
	QuantityAvailable int64
	ReorderLevel      int64
	Version           int64
	UpdatedAt         time.Time
}

// Delta is one signed quantity change. Line carries the index of the
// originating request line so failures name the offending line.
type Delta struct {
	Key      Key
	Quantity int64
	Line     int
}

// Snapshot captures the before/after quantities of a single applied delta.
type Snapshot struct {
	Key    Key
	Before int64
	After  int64
}

// ErrRecordNotFound indicates no record exists for a key.
var ErrRecordNotFound = errors.New("ledger: record not found")

// ErrContention signals the lock acquisition budget was exhausted. The
// whole operation is safe to retry unchanged.
var ErrContention = errors.New("ledger: stock key contended")

// InsufficientStockError reports the first delta in a batch that would
// drive a key negative. No record is mutated when it is returned.
type InsufficientStockError struct {
	Line      int
	Key       Key
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("ledger: insufficient stock for key %s on line %d: requested %d, available %d",
		e.Key, e.Line, e.Requested, e.Available)
}

// Shortfall is the quantity missing to satisfy the delta.
func (e *InsufficientStockError) Shortfall() int64 {
	return e.Requested - e.Available
}
