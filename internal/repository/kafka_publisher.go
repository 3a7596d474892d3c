package repository

import (
	"context"
	"time"

	"FinCorr/internal/domain/models"
	pkgkafka "FinCorr/pkg/kafka"

	"github.com/google/uuid"
)

// DefaultAnalysisTopic receives one event per completed analysis.
const DefaultAnalysisTopic = "correlation.analysis.completed"

// AnalysisCompletedEvent is the payload published after an analysis is cached.
type AnalysisCompletedEvent struct {
	EventID      string                   `json:"event_id"`
	SessionID    string                   `json:"session_id"`
	Tickers      []string                 `json:"tickers"`
	Observations int                      `json:"observations"`
	DateRange    models.DateRange         `json:"date_range"`
	Matrix       models.CorrelationMatrix `json:"matrix"`
	ComputedAt   time.Time                `json:"computed_at"`
}

type eventProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaAnalysisPublisher implements AnalysisPublisher for Kafka. Messages are
// keyed by session so one session's events stay ordered.
type KafkaAnalysisPublisher struct {
	producer eventProducer
	topic    string
}

// NewKafkaAnalysisPublisher creates Kafka publisher.
func NewKafkaAnalysisPublisher(producer *pkgkafka.Producer, topic string) *KafkaAnalysisPublisher {
	return newKafkaAnalysisPublisher(producer, topic)
}

func newKafkaAnalysisPublisher(producer eventProducer, topic string) *KafkaAnalysisPublisher {
	if topic == "" {
		topic = DefaultAnalysisTopic
	}
	return &KafkaAnalysisPublisher{producer: producer, topic: topic}
}

func (p *KafkaAnalysisPublisher) PublishAnalysis(ctx context.Context, res *models.CorrelationAnalysisResult) error {
	ev := AnalysisCompletedEvent{
		EventID:      uuid.NewString(),
		SessionID:    res.SessionID,
		Tickers:      res.Tickers,
		Observations: res.Observations,
		DateRange:    res.DateRange,
		Matrix:       res.Matrix,
		ComputedAt:   res.ComputedAt,
	}
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{{Key: []byte(res.SessionID), Value: ev}})
}

func (p *KafkaAnalysisPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishAnalysis(context.Context, *models.CorrelationAnalysisResult) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
