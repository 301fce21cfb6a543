// Package docnum allocates human-readable document numbers for goods
// receipt and goods issue notes.
package docnum

import (
	"context"
	"fmt"
)

// Kind selects the sequence a number is drawn from.
type Kind string

const (
	// KindReceipt numbers goods receipt notes.
	KindReceipt Kind = "GRN"
	// KindIssue numbers goods issue notes.
	KindIssue Kind = "GIN"
)

// Generator hands out document numbers. Numbers are unique per kind and
// monotonically non-decreasing in allocation order, even under concurrent
// callers. An allocation is consumed the moment it is returned: a movement
// that later fails leaves a gap in the sequence rather than freeing the
// number for reuse.
type Generator interface {
	Next(ctx context.Context, kind Kind) (string, error)
}

// Format renders the canonical number for a kind and sequence value.
func Format(kind Kind, n int64) string {
	return fmt.Sprintf("%s-%06d", kind, n)
}
