package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/campus-bazaar/checkout/internal/domain/inventory"
)

// InventoryLedger is the Postgres inventory.Ledger. Reserve is one guarded
// UPDATE: the availability check and the decrement happen in the same
// statement, never as a read-then-write pair.
type InventoryLedger struct {
	db *pgxpool.Pool
}

func NewInventoryLedger(db *pgxpool.Pool) *InventoryLedger {
	return &InventoryLedger{db: db}
}

func (l *InventoryLedger) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	var item domain.Item
	err := l.db.QueryRow(ctx, `
		SELECT id, seller_id, name, unit_price, quantity, status, updated_at
		FROM items WHERE id = $1`, itemID,
	).Scan(&item.ID, &item.SellerID, &item.Name, &item.UnitPrice, &item.Quantity, &item.Status, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (l *InventoryLedger) Reserve(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	ct, err := l.db.Exec(ctx, `
		UPDATE items
		SET quantity = quantity - $2,
			status = CASE WHEN quantity - $2 <= 0 THEN 'out-of-stock' ELSE 'in-stock' END,
			updated_at = now()
		WHERE id = $1 AND status = 'in-stock' AND quantity >= $2`,
		itemID, quantity,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	// Guard did not match: missing item or not enough stock.
	var exists bool
	if err := l.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, itemID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrOutOfStock
}

func (l *InventoryLedger) Restore(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	ct, err := l.db.Exec(ctx, `
		UPDATE items
		SET quantity = quantity + $2, status = 'in-stock', updated_at = now()
		WHERE id = $1`,
		itemID, quantity,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
