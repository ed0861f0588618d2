// Package kafka publishes auth audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
)

// Config contains the producer settings.
type Config struct {
	Brokers  []string
	Topic    string
	RetryMax int
	Timeout  time.Duration
}

// AuditPublisher writes each auth event as a JSON message keyed by actor, so
// one actor's events land on one partition in order.
type AuditPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewAuditPublisher dials the brokers and returns a publisher.
func NewAuditPublisher(cfg Config) (*AuditPublisher, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Compression = sarama.CompressionSnappy
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	sc.Producer.Retry.Max = cfg.RetryMax
	if sc.Producer.Retry.Max <= 0 {
		sc.Producer.Retry.Max = 3
	}
	if cfg.Timeout > 0 {
		sc.Producer.Timeout = cfg.Timeout
	}
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewAuditPublisherWithProducer(producer, cfg.Topic), nil
}

// NewAuditPublisherWithProducer wraps an existing producer.
func NewAuditPublisherWithProducer(producer sarama.SyncProducer, topic string) *AuditPublisher {
	return &AuditPublisher{producer: producer, topic: topic}
}

// Write publishes a single event. The context is unused: sarama's sync
// producer has its own timeout.
func (p *AuditPublisher) Write(_ context.Context, event domain.AuthEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal auth event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.PartitionKey()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
		Timestamp: event.OccurredAt,
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}

// Close flushes and closes the producer.
func (p *AuditPublisher) Close() error {
	return p.producer.Close()
}
