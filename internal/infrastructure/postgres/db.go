package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Schema is the DDL this subsystem owns. The unique index on
// gateway_order_id is the second line of defense against double intent
// creation; the check constraint on items.quantity backs the no-oversell
// invariant at the storage layer.
const Schema = `
CREATE TABLE IF NOT EXISTS items (
    id          text PRIMARY KEY,
    seller_id   text NOT NULL,
    name        text NOT NULL,
    unit_price  bigint NOT NULL,
    quantity    integer NOT NULL CHECK (quantity >= 0),
    status      text NOT NULL,
    updated_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS orders (
    id                   uuid PRIMARY KEY,
    item_id              text NOT NULL,
    buyer_id             text NOT NULL,
    seller_id            text NOT NULL,
    quantity             integer NOT NULL CHECK (quantity >= 1),
    unit_price           bigint NOT NULL,
    total_amount         bigint NOT NULL,
    status               text NOT NULL,
    payment_status       text NOT NULL,
    gateway_order_id     text NOT NULL UNIQUE,
    gateway_payment_id   text,
    payment_completed_at timestamptz,
    refund_id            text,
    created_at           timestamptz NOT NULL,
    updated_at           timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_buyer  ON orders (buyer_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders (seller_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_stale  ON orders (created_at) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_orders_payment ON orders (gateway_payment_id);
`

// EnsureSchema applies the DDL. Idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, Schema)
	return err
}
