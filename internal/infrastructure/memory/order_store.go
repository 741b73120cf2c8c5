package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/campus-bazaar/checkout/internal/domain/order"
)

// OrderStore is an in-memory order.Store. The store owns its entries:
// orders are cloned on the way in and out, and every transition happens
// under the lock so the compare-and-set contract holds.
type OrderStore struct {
	mu          sync.RWMutex
	orders      map[string]*domain.Order // keyed by local id
	byGatewayID map[string]string        // gateway order id -> local id
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:      make(map[string]*domain.Order),
		byGatewayID: make(map[string]string),
	}
}

func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" || o.GatewayOrderID == "" {
		return fmt.Errorf("order store: id and gateway order id are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := s.byGatewayID[o.GatewayOrderID]; exists {
		return domain.ErrConflict
	}

	s.orders[o.ID] = o.Clone()
	s.byGatewayID[o.GatewayOrderID] = o.ID
	return nil
}

func (s *OrderStore) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, err := s.lookupLocked(gatewayOrderID)
	if err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

func (s *OrderStore) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Order, error) {
	_ = ctx
	if gatewayPaymentID == "" {
		return nil, domain.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.GatewayPaymentID == gatewayPaymentID {
			return o.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *OrderStore) CompletePayment(ctx context.Context, gatewayOrderID, gatewayPaymentID string, at time.Time) (*domain.Order, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.lookupLocked(gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if err := o.CompletePayment(gatewayPaymentID, at); err != nil {
		if errors.Is(err, domain.ErrAlreadyCompleted) {
			return o.Clone(), domain.ErrAlreadyCompleted
		}
		return nil, err
	}
	return o.Clone(), nil
}

func (s *OrderStore) Cancel(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.lookupLocked(gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if err := o.Cancel(); err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

func (s *OrderStore) MarkRefunded(ctx context.Context, gatewayOrderID, refundID string) (*domain.Order, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.lookupLocked(gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if err := o.Refund(refundID); err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

func (s *OrderStore) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	_ = ctx
	return s.list(func(o *domain.Order) bool { return o.BuyerID == buyerID }), nil
}

func (s *OrderStore) ListBySeller(ctx context.Context, sellerID string) ([]*domain.Order, error) {
	_ = ctx
	return s.list(func(o *domain.Order) bool { return o.SellerID == sellerID }), nil
}

func (s *OrderStore) ListStalePending(ctx context.Context, before time.Time) ([]*domain.Order, error) {
	_ = ctx
	return s.list(func(o *domain.Order) bool {
		return o.Status == domain.StatusPending &&
			o.PaymentStatus == domain.PaymentPending &&
			o.CreatedAt.Before(before)
	}), nil
}

func (s *OrderStore) list(match func(*domain.Order) bool) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Order
	for _, o := range s.orders {
		if match(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *OrderStore) lookupLocked(gatewayOrderID string) (*domain.Order, error) {
	if gatewayOrderID == "" {
		return nil, domain.ErrNotFound
	}
	localID, ok := s.byGatewayID[gatewayOrderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o, ok := s.orders[localID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}
