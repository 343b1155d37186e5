package repository

import (
	"context"

	"PlantDash/internal/domain/models"
	pkgkafka "PlantDash/pkg/kafka"
)

type messageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}, headers ...pkgkafka.Header) error
	Close() error
}

// KafkaPublisher implements Publisher for Kafka. Messages are keyed by device.
type KafkaPublisher struct {
	producer messageProducer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, s *models.BundleSummary) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Device), s,
		pkgkafka.Header{Key: "refresh_id", Value: s.RefreshID},
	)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// KafkaLogPublisher ships aggregated log batches through the same producer.
type KafkaLogPublisher struct {
	producer messageProducer
}

// NewKafkaLogPublisher adapts producer to the logger's Publisher interface.
func NewKafkaLogPublisher(producer *pkgkafka.Producer) *KafkaLogPublisher {
	return &KafkaLogPublisher{producer: producer}
}

func (p *KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
