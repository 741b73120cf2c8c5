package memory

import (
	"context"
	"sync"

	domain "github.com/campus-bazaar/checkout/internal/domain/inventory"
)

// InventoryLedger is an in-memory inventory.Ledger. Reserve and Restore
// check and mutate under one lock, so two concurrent reservations for the
// last unit resolve to exactly one success.
type InventoryLedger struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
}

func NewInventoryLedger() *InventoryLedger {
	return &InventoryLedger{
		items: make(map[string]*domain.Item),
	}
}

// Seed inserts or replaces a catalog item. Intended for wiring and tests;
// catalog ownership lives outside this subsystem.
func (l *InventoryLedger) Seed(item *domain.Item) {
	if item == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	clone := *item
	l.items[item.ID] = &clone
}

func (l *InventoryLedger) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	_ = ctx

	l.mu.RLock()
	defer l.mu.RUnlock()

	item, ok := l.items[itemID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (l *InventoryLedger) Reserve(ctx context.Context, itemID string, quantity int) error {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.items[itemID]
	if !ok {
		return domain.ErrNotFound
	}
	return item.Reserve(quantity)
}

func (l *InventoryLedger) Restore(ctx context.Context, itemID string, quantity int) error {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.items[itemID]
	if !ok {
		return domain.ErrNotFound
	}
	return item.Restore(quantity)
}
