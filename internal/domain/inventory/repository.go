package inventory

import "context"

// Ledger is the catalog's only mutation surface for the checkout subsystem.
// Reserve and Restore must be atomic conditional updates at the storage
// layer, never a read-then-write pair in application code.
type Ledger interface {
	Get(ctx context.Context, itemID string) (*Item, error)

	// Reserve atomically decrements stock by quantity when the item is
	// in-stock with at least that much remaining. ErrOutOfStock otherwise.
	Reserve(ctx context.Context, itemID string, quantity int) error

	// Restore atomically adds a released reservation back and re-derives
	// the stock status.
	Restore(ctx context.Context, itemID string, quantity int) error
}
