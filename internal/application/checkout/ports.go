package checkout

// IDGenerator mints identifiers for new orders.
type IDGenerator interface {
	NewID() string
}
