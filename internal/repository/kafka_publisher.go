package repository

import (
	"context"
	"time"

	"RegimeGuard/internal/domain/models"
	domrepo "RegimeGuard/internal/domain/repository"
	pkgkafka "RegimeGuard/pkg/kafka"
	applogger "RegimeGuard/pkg/logger"
)

// VerdictEvent is the wire form of a published evaluation.
type VerdictEvent struct {
	ID          string                   `json:"id"`
	Symbol      string                   `json:"symbol"`
	Regime      models.RegimeType        `json:"regime"`
	Rule        string                   `json:"rule"`
	ShouldVeto  bool                     `json:"should_veto"`
	Severity    string                   `json:"severity,omitempty"`
	Reasons     []string                 `json:"reasons"`
	Price       float64                  `json:"price"`
	Snapshot    models.IndicatorSnapshot `json:"snapshot"`
	EvaluatedAt time.Time                `json:"evaluated_at"`
}

func NewVerdictEvent(e *models.Evaluation) VerdictEvent {
	return VerdictEvent{
		ID:          e.ID,
		Symbol:      string(e.Symbol),
		Regime:      e.Regime.Type,
		Rule:        e.Regime.Rule,
		ShouldVeto:  e.Veto.ShouldVeto,
		Severity:    e.Veto.SeverityString(),
		Reasons:     e.Veto.Reasons,
		Price:       e.Snapshot.Trend.Current,
		Snapshot:    e.Snapshot,
		EvaluatedAt: e.EvaluatedAt,
	}
}

// KafkaPublisher implements VerdictPublisher. Messages are keyed by symbol.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.VerdictPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e *models.Evaluation) error {
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{{
		Key:     []byte(e.Symbol),
		Value:   NewVerdictEvent(e),
		Headers: map[string]string{"event": "regime.verdict", "content-type": "application/json"},
	}})
}

// Close is a no-op: the producer is shared with the log sink and closed by
// its owner.
func (p *KafkaPublisher) Close() error { return nil }

// KafkaLogSink ships aggregated warn/error entries to a topic.
type KafkaLogSink struct {
	producer *pkgkafka.Producer
	topic    string
	service  string
}

var _ applogger.LogSink = (*KafkaLogSink)(nil)

func NewKafkaLogSink(producer *pkgkafka.Producer, topic, service string) *KafkaLogSink {
	return &KafkaLogSink{producer: producer, topic: topic, service: service}
}

func (s *KafkaLogSink) PublishLogs(ctx context.Context, entries []applogger.AggregatedLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(entries))
	for i, e := range entries {
		msgs[i] = pkgkafka.Message{
			Key:     []byte(s.service),
			Value:   e,
			Headers: map[string]string{"level": e.Level},
		}
	}
	return s.producer.PublishBatch(ctx, s.topic, msgs)
}
