// Package catalog validates references to master data. The movement
// coordinator consumes only this read-only contract; creating and editing
// products or suppliers belongs to the surrounding application.
package catalog

import "context"

// Resolution reports whether a referenced entity may appear on new
// movements. A missing entity and a soft-deleted or deactivated one are
// treated identically by callers: neither can receive new stock lines,
// though historical documents may still reference them.
type Resolution struct {
	Exists bool
	Active bool
}

// OK reports whether the entity can receive new stock lines.
func (r Resolution) OK() bool {
	return r.Exists && r.Active
}

// Resolver looks up catalog references for the movement coordinator.
type Resolver interface {
	// ResolveProduct validates a (product, variation) pair. A zero
	// variationID means the product is used without variations.
	ResolveProduct(ctx context.Context, productID, variationID int64) (Resolution, error)
	ResolveSupplier(ctx context.Context, supplierID int64) (Resolution, error)
}
