package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/campus-bazaar/checkout/internal/domain/inventory"
)

func seedLedger(t *testing.T, quantity int) *InventoryLedger {
	t.Helper()
	l := NewInventoryLedger()
	item, err := domain.NewItem("item-1", "seller-1", "vintage lamp", 10000, quantity)
	require.NoError(t, err)
	l.Seed(item)
	return l
}

func TestInventoryLedgerReserve(t *testing.T) {
	l := seedLedger(t, 5)

	require.NoError(t, l.Reserve(context.Background(), "item-1", 2))

	item, err := l.Get(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, domain.StatusInStock, item.Status)
}

func TestInventoryLedgerReserve_LastUnit(t *testing.T) {
	l := seedLedger(t, 2)

	require.NoError(t, l.Reserve(context.Background(), "item-1", 2))

	item, _ := l.Get(context.Background(), "item-1")
	assert.Equal(t, 0, item.Quantity)
	assert.Equal(t, domain.StatusOutOfStock, item.Status)

	assert.ErrorIs(t, l.Reserve(context.Background(), "item-1", 1), domain.ErrOutOfStock)
}

func TestInventoryLedgerReserve_InsufficientStock(t *testing.T) {
	l := seedLedger(t, 1)

	assert.ErrorIs(t, l.Reserve(context.Background(), "item-1", 2), domain.ErrOutOfStock)

	// The failed reservation must not partially decrement.
	item, _ := l.Get(context.Background(), "item-1")
	assert.Equal(t, 1, item.Quantity)
}

func TestInventoryLedgerReserve_UnknownItem(t *testing.T) {
	l := NewInventoryLedger()

	assert.ErrorIs(t, l.Reserve(context.Background(), "missing", 1), domain.ErrNotFound)
}

func TestInventoryLedgerRestore(t *testing.T) {
	l := seedLedger(t, 1)
	require.NoError(t, l.Reserve(context.Background(), "item-1", 1))

	require.NoError(t, l.Restore(context.Background(), "item-1", 1))

	item, _ := l.Get(context.Background(), "item-1")
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, domain.StatusInStock, item.Status)
}

func TestInventoryLedgerGet_CopiesState(t *testing.T) {
	l := seedLedger(t, 5)

	item, err := l.Get(context.Background(), "item-1")
	require.NoError(t, err)
	item.Quantity = 0

	stored, err := l.Get(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Quantity)
}

func TestInventoryLedgerReserve_NoOversellUnderContention(t *testing.T) {
	const stock = 10
	const callers = 50
	l := seedLedger(t, stock)

	var wg sync.WaitGroup
	var wins int64
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Reserve(context.Background(), "item-1", 1); err == nil {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, stock, wins)
	item, _ := l.Get(context.Background(), "item-1")
	assert.Equal(t, 0, item.Quantity)
}
