package repository

import (
	"context"

	"CoinSentry/internal/domain/models"
	domrepo "CoinSentry/internal/domain/repository"
	pkgkafka "CoinSentry/pkg/kafka"
)

// KafkaSignalPublisher implements SignalPublisher for Kafka.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates a Kafka signal publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) domrepo.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func signalPayload(s *models.TradingSignal) map[string]interface{} {
	m := map[string]interface{}{
		"id":     s.ID,
		"symbol": s.Symbol,
		"action": s.Action,
		"price":  s.CurrentPrice,
		"zscore": s.ZScore,
		"ts":     s.Timestamp.Unix(),
	}
	if s.NATR != nil {
		m["natr"] = *s.NATR
	}
	return m
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, s *models.TradingSignal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), signalPayload(s))
}

func (p *KafkaSignalPublisher) PublishBatch(ctx context.Context, signals []*models.TradingSignal) error {
	if len(signals) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(signals))
	for i, s := range signals {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(s.Symbol),
			Value: signalPayload(s),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
