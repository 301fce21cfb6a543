// Package movement turns a batch of incoming or outgoing line items into an
// atomic adjustment of on-hand stock plus an immutable GRN/GIN document.
package movement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes goods receipt from goods issue documents.
type Kind string

const (
	// KindReceipt marks a GRN (stock in from a supplier).
	KindReceipt Kind = "RECEIPT"
	// KindIssue marks a GIN (stock out to a requester).
	KindIssue Kind = "ISSUE"
)

// Header is a GRN or GIN document header. Once committed it is immutable;
// corrections happen through a new compensating movement, never by edit.
type Header struct {
	ID          int64
	Number      string
	Kind        Kind
	SupplierID  int64  // receipts only
	IssuedTo    string // issues only
	IssueReason string // issues only
	ActorID     int64
	OccurredAt  time.Time
	TotalAmount decimal.Decimal
	Remarks     string
	CreatedAt   time.Time
}

// Line is one product movement inside a document. QuantityBefore and
// QuantityAfter snapshot the affected stock record at the instant the line
// was applied; they are part of the permanent audit trail and are never
// recomputed.
type Line struct {
	ID             int64
	DocumentID     int64
	ProductID      int64
	VariationID    int64
	Location       string
	Quantity       int64
	UnitCost       decimal.Decimal
	SubTotal       decimal.Decimal
	QuantityBefore int64
	QuantityAfter  int64
}

// ValidationError rejects a malformed request before any side effect.
// Line is -1 when the problem is not scoped to a single line.
type ValidationError struct {
	Line   int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("movement: invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("movement: line %d: invalid %s: %s", e.Line, e.Field, e.Reason)
}

// UnknownReferenceError reports a line citing a product, variation or
// supplier that is missing, inactive or soft-deleted. Line is -1 for the
// header-level supplier reference.
type UnknownReferenceError struct {
	Line   int
	Entity string
	ID     int64
}

func (e *UnknownReferenceError) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("movement: unknown %s %d", e.Entity, e.ID)
	}
	return fmt.Sprintf("movement: line %d: unknown %s %d", e.Line, e.Entity, e.ID)
}
