package broadcaster

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/cockroachdb/errors"
)

// SaramaPublisher publishes through a synchronous sarama producer.
type SaramaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewSaramaPublisher connects a sync producer that waits for all replicas.
func NewSaramaPublisher(brokers []string, topic string, maxRetries int) (*SaramaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, SaramaConfig(maxRetries))
	if err != nil {
		return nil, errors.Wrap(err, "broadcaster: sarama producer")
	}
	return NewSaramaPublisherFrom(producer, topic), nil
}

// SaramaConfig is the producer configuration NewSaramaPublisher uses.
func SaramaConfig(maxRetries int) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = maxRetries
	return cfg
}

// NewSaramaPublisherFrom wraps an existing producer.
func NewSaramaPublisherFrom(p sarama.SyncProducer, topic string) *SaramaPublisher {
	return &SaramaPublisher{producer: p, topic: topic}
}

func (p *SaramaPublisher) Publish(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	return err
}

func (p *SaramaPublisher) Close() error {
	return p.producer.Close()
}
