package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/campus-bazaar/checkout/internal/domain/outbox"
)

// Callers bound each publish to a short deadline, so a synchronous write
// must flush well inside it. The writer's default batch timeout is 1s,
// which would exceed that deadline on every single-message write.
const batchTimeout = 10 * time.Millisecond

// Producer publishes order lifecycle events to a Kafka topic. Publishing is
// best effort: the checkout flow never fails on a broker problem, the error
// is returned for the caller to log and count.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: batchTimeout,
	}
	return &Producer{
		writer: writer,
		logger: logger,
	}
}

type eventRecord struct {
	Event   string       `json:"event"`
	Payload outbox.Event `json:"payload"`
}

func (p *Producer) Publish(ctx context.Context, e outbox.Event) error {
	if e == nil {
		return nil
	}

	value, err := json.Marshal(eventRecord{Event: e.EventName(), Payload: e})
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.EventName()),
		Value: value,
	})
	if err != nil {
		p.logger.Error("kafka_publish_failed",
			zap.String("event", e.EventName()),
			zap.Error(err),
		)
		return err
	}

	p.logger.Debug("kafka_event_published", zap.String("event", e.EventName()))
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
