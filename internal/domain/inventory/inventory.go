package inventory

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("inventory: item not found")
	ErrInvalidQuantity = errors.New("inventory: quantity must be greater than zero")
	ErrOutOfStock      = errors.New("inventory: insufficient stock")
)

// Status is derived from quantity: in-stock iff quantity > 0.
type Status string

const (
	StatusInStock    Status = "in-stock"
	StatusOutOfStock Status = "out-of-stock"
)

// Item is the catalog projection this subsystem reads and conditionally
// mutates. Everything else about the catalog is out of scope.
type Item struct {
	ID        string
	SellerID  string
	Name      string
	UnitPrice int64 // minor units
	Quantity  int
	Status    Status
	UpdatedAt time.Time
}

func NewItem(id, sellerID, name string, unitPrice int64, quantity int) (*Item, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	item := &Item{
		ID:        id,
		SellerID:  sellerID,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		UpdatedAt: time.Now().UTC(),
	}
	item.syncStatus()
	return item, nil
}

// Reserve checks availability and decrements stock in one step. Callers
// holding the item under a lock get at-most-one success when a single unit
// remains.
func (i *Item) Reserve(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if i.Status != StatusInStock || i.Quantity < quantity {
		return ErrOutOfStock
	}
	i.Quantity -= quantity
	i.syncStatus()
	i.touch()
	return nil
}

// Restore adds a released reservation's quantity back.
func (i *Item) Restore(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	i.Quantity += quantity
	i.syncStatus()
	i.touch()
	return nil
}

func (i *Item) syncStatus() {
	if i.Quantity > 0 {
		i.Status = StatusInStock
	} else {
		i.Quantity = 0
		i.Status = StatusOutOfStock
	}
}

func (i *Item) touch() {
	i.UpdatedAt = time.Now().UTC()
}
