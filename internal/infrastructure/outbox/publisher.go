package outbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/campus-bazaar/checkout/internal/domain/outbox"
)

// LogPublisher is the in-process outbox.Publisher used when no broker is
// configured. Events are logged at debug level and dropped; nothing in the
// transaction engine depends on their delivery.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With(zap.String("component", "outbox"))}
}

func (p *LogPublisher) Publish(ctx context.Context, e outbox.Event) error {
	if e == nil {
		return nil
	}
	_ = ctx
	p.logger.Debug("event_published", zap.String("event", e.EventName()))
	return nil
}
