package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer publishes change events with a kafka-go writer.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string, maxAttempts int) *Producer {
	return NewProducerFrom(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  maxAttempts,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	})
}

// NewProducerFrom wraps a configured writer.
func NewProducerFrom(w *kafka.Writer) *Producer {
	return &Producer{writer: w}
}

// Publish writes one message and waits for every in-sync replica.
// Messages with the same key land on the same partition.
func (p *Producer) Publish(
	ctx context.Context,
	key []byte,
	value []byte,
) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
