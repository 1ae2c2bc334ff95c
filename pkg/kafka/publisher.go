package kafkautils

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// Publisher produces messages and waits for the broker's delivery report, so
// a nil error means the message is actually stored. Outbox draining relies on
// that: a row is only deleted after its event is confirmed.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value []byte) error
	Close()
}

type PublisherImpl struct {
	logger   *zap.Logger
	producer *kafka.Producer
}

func NewPublisher(logger *zap.Logger, brokers string) (Publisher, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers, // Kafka broker(s)
		"acks":               "all",   // Wait for all replicas
		"enable.idempotence": "true",  // Ensure messages are not sent twice
		"retries":            "3",     // Built-in retry mechanism
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	logger.Info("kafka producer created successfully", zap.String("brokers", brokers))
	return &PublisherImpl{logger: logger, producer: p}, nil
}

func (k *PublisherImpl) Publish(ctx context.Context, topic string, key []byte, value []byte) error {
	deliveryChan := make(chan kafka.Event, 1)
	err := k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny, // keyed partitioning keeps per-key ordering
		},
		Key:   key,
		Value: value,
	}, deliveryChan)
	if err != nil {
		return err
	}

	select {
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %T", e)
		}
		return m.TopicPartition.Error
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *PublisherImpl) Close() {
	// Drain whatever is still in flight before releasing the producer.
	k.producer.Flush(5000)
	k.producer.Close()
}
