package outbox

import "context"

// Event is any domain event with a name identifier.
type Event interface {
	EventName() string
}

// Publisher publishes domain events to whatever sink is configured. Publish
// failures are reported to the caller but never fail the originating
// operation.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
