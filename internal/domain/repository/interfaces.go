package repository

import (
	"context"

	"FinCorr/internal/domain/models"
)

// PriceSeriesStore supplies return series aligned to common observation dates.
// Failures wrap models.ErrTickerNotFound or models.ErrInsufficientHistory.
type PriceSeriesStore interface {
	FetchAlignedReturns(ctx context.Context, tickers []string, dr models.DateRange) (map[string][]float64, error)
}

// AnalysisStore keeps the latest analysis per session. Get fails with
// models.ErrNoAnalysisAvailable when nothing is stored.
type AnalysisStore interface {
	Put(ctx context.Context, sessionID string, res *models.CorrelationAnalysisResult) error
	Get(ctx context.Context, sessionID string) (*models.CorrelationAnalysisResult, error)
	Delete(ctx context.Context, sessionID string) error
}

// AnalysisPublisher announces completed analyses to downstream consumers.
type AnalysisPublisher interface {
	PublishAnalysis(ctx context.Context, res *models.CorrelationAnalysisResult) error
	Close() error
}

type Metrics interface {
	RecordAnalysis(result string, tickers int, seconds float64)
	RecordCacheLookup(hit bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
