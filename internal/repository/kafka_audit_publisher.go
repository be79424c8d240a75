package repository

import (
	"context"
	"fmt"

	"TradeGate/internal/domain/models"
	domrepo "TradeGate/internal/domain/repository"
	pkgkafka "TradeGate/pkg/kafka"
	applogger "TradeGate/pkg/logger"
)

// KafkaAuditPublisher publishes decisions and order intents to Kafka topics,
// keyed by symbol so per-symbol ordering is preserved.
type KafkaAuditPublisher struct {
	producer       *pkgkafka.Producer
	decisionsTopic string
	intentsTopic   string
	l              *applogger.Logger
}

func NewKafkaAuditPublisher(producer *pkgkafka.Producer, decisionsTopic, intentsTopic string) *KafkaAuditPublisher {
	return &KafkaAuditPublisher{
		producer:       producer,
		decisionsTopic: decisionsTopic,
		intentsTopic:   intentsTopic,
	}
}

// SetLogger injects a structured logger.
func (p *KafkaAuditPublisher) SetLogger(l *applogger.Logger) { p.l = l }

func (p *KafkaAuditPublisher) RecordDecision(ctx context.Context, d models.Decision) error {
	if err := p.producer.Publish(ctx, p.decisionsTopic, []byte(d.Symbol), d); err != nil {
		if p.l != nil {
			p.l.Error("kafka publish decision error",
				applogger.String("topic", p.decisionsTopic),
				applogger.String("symbol", d.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("publish decision: %w", err)
	}
	return nil
}

func (p *KafkaAuditPublisher) RecordIntent(ctx context.Context, oi models.OrderIntent) error {
	if err := p.producer.Publish(ctx, p.intentsTopic, []byte(oi.Symbol), oi); err != nil {
		if p.l != nil {
			p.l.Error("kafka publish intent error",
				applogger.String("topic", p.intentsTopic),
				applogger.String("symbol", oi.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("publish intent: %w", err)
	}
	return nil
}

func (p *KafkaAuditPublisher) Close() error {
	return p.producer.Close()
}

var _ domrepo.AuditSink = (*KafkaAuditPublisher)(nil)
