// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/samber/oops"
	"github.com/sony/sonyflake/v2"
)

// Envelope is the wire shape of every published event.
type Envelope struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
	Close() error
}

type KafkaPublisher struct {
	producer  sarama.SyncProducer
	topic     string
	sonyflake *sonyflake.Sonyflake
	now       func() time.Time
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	var st sonyflake.Settings
	sf, err := sonyflake.New(st)
	if err != nil {
		return nil, oops.With("context", "failed to create sonyflake").Wrap(err)
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, oops.With("brokers", brokers, "context", "failed to start kafka producer").Wrap(err)
	}

	return newKafkaPublisher(producer, topic, sf), nil
}

func newKafkaPublisher(producer sarama.SyncProducer, topic string, sf *sonyflake.Sonyflake) *KafkaPublisher {
	return &KafkaPublisher{
		producer:  producer,
		topic:     topic,
		sonyflake: sf,
		now:       time.Now,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	id, err := p.sonyflake.NextID()
	if err != nil {
		return oops.With("type", eventType).Wrap(err)
	}

	data, err := json.Marshal(Envelope{
		ID:         id,
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return oops.With("type", eventType, "context", "failed to marshal event").Wrap(err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return oops.With("type", eventType, "topic", p.topic, "context", "failed to write event to kafka").Wrap(err)
	}

	slog.Debug("Event published", "type", eventType, "id", id, "partition", partition, "offset", offset)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// Nop discards events; used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, eventType, key string, payload any) error {
	return nil
}

func (Nop) Close() error {
	return nil
}
