package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/campus-bazaar/checkout/internal/domain/order"
)

const uniqueViolation = "23505"

const orderColumns = `id, item_id, buyer_id, seller_id, quantity, unit_price, total_amount,
	status, payment_status, gateway_order_id, gateway_payment_id,
	payment_completed_at, refund_id, created_at, updated_at`

// OrderStore is the Postgres order.Store. Transitions are single guarded
// UPDATE statements, so the compare-and-set contract holds across
// concurrent callers without application-level locking.
type OrderStore struct {
	db *pgxpool.Pool
}

func NewOrderStore(db *pgxpool.Pool) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (id, item_id, buyer_id, seller_id, quantity, unit_price,
			total_amount, status, payment_status, gateway_order_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.ID, o.ItemID, o.BuyerID, o.SellerID, o.Quantity, o.UnitPrice,
		o.TotalAmount, o.Status, o.PaymentStatus, o.GatewayOrderID, o.CreatedAt, o.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrConflict
	}
	return err
}

func (s *OrderStore) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE gateway_order_id = $1`, gatewayOrderID)
	return scanOrder(row)
}

func (s *OrderStore) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Order, error) {
	if gatewayPaymentID == "" {
		return nil, domain.ErrNotFound
	}
	row := s.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE gateway_payment_id = $1`, gatewayPaymentID)
	return scanOrder(row)
}

func (s *OrderStore) CompletePayment(ctx context.Context, gatewayOrderID, gatewayPaymentID string, at time.Time) (*domain.Order, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, payment_status = $3, gateway_payment_id = $4,
			payment_completed_at = $5, updated_at = now()
		WHERE gateway_order_id = $1 AND status = $6 AND payment_status = $7
		RETURNING `+orderColumns,
		gatewayOrderID, domain.StatusConfirmed, domain.PaymentCompleted,
		gatewayPaymentID, at.UTC(), domain.StatusPending, domain.PaymentPending,
	)
	o, err := scanOrder(row)
	if !errors.Is(err, domain.ErrNotFound) {
		return o, err
	}

	// Guard did not match: the order is missing or already past pending.
	current, err := s.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if current.PaymentStatus == domain.PaymentCompleted {
		return current, domain.ErrAlreadyCompleted
	}
	return nil, domain.ErrInvalidTransition
}

func (s *OrderStore) Cancel(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, payment_status = $3, updated_at = now()
		WHERE gateway_order_id = $1 AND status = $4 AND payment_status = $5
		RETURNING `+orderColumns,
		gatewayOrderID, domain.StatusCancelled, domain.PaymentFailed,
		domain.StatusPending, domain.PaymentPending,
	)
	o, err := scanOrder(row)
	if !errors.Is(err, domain.ErrNotFound) {
		return o, err
	}

	if _, err := s.GetByGatewayOrderID(ctx, gatewayOrderID); err != nil {
		return nil, err
	}
	return nil, domain.ErrInvalidTransition
}

func (s *OrderStore) MarkRefunded(ctx context.Context, gatewayOrderID, refundID string) (*domain.Order, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, payment_status = $3, refund_id = $4, updated_at = now()
		WHERE gateway_order_id = $1 AND status = $5 AND payment_status = $6
		RETURNING `+orderColumns,
		gatewayOrderID, domain.StatusCompleted, domain.PaymentRefunded, refundID,
		domain.StatusConfirmed, domain.PaymentCompleted,
	)
	o, err := scanOrder(row)
	if !errors.Is(err, domain.ErrNotFound) {
		return o, err
	}

	if _, err := s.GetByGatewayOrderID(ctx, gatewayOrderID); err != nil {
		return nil, err
	}
	return nil, domain.ErrInvalidTransition
}

func (s *OrderStore) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	return s.listWhere(ctx, `buyer_id = $1`, buyerID)
}

func (s *OrderStore) ListBySeller(ctx context.Context, sellerID string) ([]*domain.Order, error) {
	return s.listWhere(ctx, `seller_id = $1`, sellerID)
}

func (s *OrderStore) ListStalePending(ctx context.Context, before time.Time) ([]*domain.Order, error) {
	return s.listWhere(ctx, `status = 'pending' AND payment_status = 'pending' AND created_at < $1`, before.UTC())
}

func (s *OrderStore) listWhere(ctx context.Context, where string, arg any) ([]*domain.Order, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+where+` ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                domain.Order
		gatewayPaymentID *string
		completedAt      *time.Time
		refundID         *string
	)
	err := row.Scan(
		&o.ID, &o.ItemID, &o.BuyerID, &o.SellerID, &o.Quantity, &o.UnitPrice, &o.TotalAmount,
		&o.Status, &o.PaymentStatus, &o.GatewayOrderID, &gatewayPaymentID,
		&completedAt, &refundID, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if gatewayPaymentID != nil {
		o.GatewayPaymentID = *gatewayPaymentID
	}
	o.PaymentCompletedAt = completedAt
	if refundID != nil {
		o.RefundID = *refundID
	}
	return &o, nil
}
