package repository

import (
	"context"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	"TradeDesk/pkg/kafka"
)

// KafkaPublisher mirrors activity entries onto a Kafka topic, keyed by
// session so per-session consumers see entries in order.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *kafka.Producer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = "tradedesk.activity"
	}
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e *models.ActivityEntry) error {
	return p.producer.Publish(ctx, p.topic, []byte(e.SessionID), e)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)
