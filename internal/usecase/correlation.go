package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"FinCorr/internal/domain/models"
	domrepo "FinCorr/internal/domain/repository"
	"FinCorr/internal/services/correlation"
	"FinCorr/internal/services/features"
	applogger "FinCorr/pkg/logger"
)

// CorrelationUseCase runs analyses for a session and answers heatmap, pair and
// diversification queries from the session's cached result.
type CorrelationUseCase struct {
	prices    domrepo.PriceSeriesStore
	store     domrepo.AnalysisStore
	publisher domrepo.AnalysisPublisher
	metrics   domrepo.Metrics
	engine    *correlation.Engine
	l         *applogger.Logger
	now       func() time.Time
}

func NewCorrelationUseCase(
	prices domrepo.PriceSeriesStore,
	store domrepo.AnalysisStore,
	publisher domrepo.AnalysisPublisher,
	metrics domrepo.Metrics,
	engine *correlation.Engine,
) *CorrelationUseCase {
	return &CorrelationUseCase{
		prices:    prices,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		engine:    engine,
		now:       time.Now,
	}
}

// SetLogger injects a structured logger.
func (uc *CorrelationUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

// Analyze computes the correlation matrix of tickers over dr and makes it the
// session's current analysis.
func (uc *CorrelationUseCase) Analyze(ctx context.Context, sessionID string, tickers []string, dr models.DateRange) (*models.CorrelationAnalysisResult, error) {
	start := time.Now()
	res, err := uc.analyze(ctx, sessionID, tickers, dr)
	dur := time.Since(start)
	if err != nil {
		uc.metrics.RecordAnalysis("error", len(tickers), dur.Seconds())
		uc.fail("analyze", sessionID, err)
		return nil, err
	}
	uc.metrics.RecordAnalysis("ok", len(res.Tickers), dur.Seconds())
	if uc.l != nil {
		uc.l.Info("correlation analysis stored",
			applogger.String("session_id", sessionID),
			applogger.Int("tickers", len(res.Tickers)),
			applogger.Int("observations", res.Observations),
			applogger.Duration("duration_ms", dur),
		)
	}

	if err := uc.publisher.PublishAnalysis(ctx, res); err != nil {
		uc.metrics.RecordError("publish")
		if uc.l != nil {
			uc.l.Warn("analysis event not published",
				applogger.String("session_id", sessionID),
				applogger.Error(err),
			)
		}
	}
	return res, nil
}

func (uc *CorrelationUseCase) analyze(ctx context.Context, sessionID string, raw []string, dr models.DateRange) (*models.CorrelationAnalysisResult, error) {
	tickers, err := correlation.NormalizeTickers(raw)
	if err != nil {
		return nil, err
	}
	if len(tickers) < 2 {
		return nil, fmt.Errorf("%w: at least two tickers are required", models.ErrInsufficientData)
	}
	if err := features.ValidateRange(dr); err != nil {
		return nil, err
	}
	matrix, observations, err := uc.compute(ctx, tickers, dr)
	if err != nil {
		return nil, err
	}

	res := &models.CorrelationAnalysisResult{
		SessionID:    sessionID,
		Tickers:      tickers,
		Matrix:       matrix,
		DateRange:    dr,
		Observations: observations,
		ComputedAt:   uc.now().UTC(),
	}
	if err := uc.store.Put(ctx, sessionID, res); err != nil {
		return nil, fmt.Errorf("store analysis: %w", err)
	}
	return res, nil
}

func (uc *CorrelationUseCase) compute(ctx context.Context, tickers []string, dr models.DateRange) (models.CorrelationMatrix, int, error) {
	start := time.Now()
	returns, err := uc.prices.FetchAlignedReturns(ctx, tickers, dr)
	uc.metrics.RecordLatency("fetch_returns", time.Since(start).Seconds())
	if err != nil {
		return models.CorrelationMatrix{}, 0, fmt.Errorf("fetch returns: %w", err)
	}

	start = time.Now()
	matrix, err := uc.engine.Compute(tickers, returns)
	uc.metrics.RecordLatency("compute_matrix", time.Since(start).Seconds())
	if err != nil {
		return models.CorrelationMatrix{}, 0, err
	}
	return matrix, len(returns[tickers[0]]), nil
}

// Results returns the session's current analysis.
func (uc *CorrelationUseCase) Results(ctx context.Context, sessionID string) (*models.CorrelationAnalysisResult, error) {
	res, err := uc.cached(ctx, sessionID)
	if err != nil {
		uc.fail("results", sessionID, err)
		return nil, err
	}
	return res, nil
}

func (uc *CorrelationUseCase) cached(ctx context.Context, sessionID string) (*models.CorrelationAnalysisResult, error) {
	res, err := uc.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrNoAnalysisAvailable) {
			uc.metrics.RecordCacheLookup(false)
		}
		return nil, err
	}
	uc.metrics.RecordCacheLookup(true)
	return res, nil
}

// Heatmap projects the cached matrix onto tickers, or onto the full cached
// universe when tickers is empty.
func (uc *CorrelationUseCase) Heatmap(ctx context.Context, sessionID string, tickers []string) (*models.HeatmapData, error) {
	start := time.Now()
	defer func() { uc.metrics.RecordLatency("heatmap", time.Since(start).Seconds()) }()

	var subset []string
	if len(tickers) > 0 {
		var err error
		if subset, err = correlation.NormalizeTickers(tickers); err != nil {
			uc.fail("heatmap", sessionID, err)
			return nil, err
		}
	}
	res, err := uc.cached(ctx, sessionID)
	if err != nil {
		uc.fail("heatmap", sessionID, err)
		return nil, err
	}
	hm, err := correlation.BuildHeatmap(subset, res.Matrix)
	if err != nil {
		uc.fail("heatmap", sessionID, err)
		return nil, err
	}
	return hm, nil
}

// HighCorrelationPairs lists cached pairs with |r| >= threshold.
func (uc *CorrelationUseCase) HighCorrelationPairs(ctx context.Context, sessionID string, threshold float64) ([]models.HighCorrelationPair, error) {
	if err := correlation.ValidateThreshold(threshold); err != nil {
		uc.fail("high_correlations", sessionID, err)
		return nil, err
	}
	res, err := uc.cached(ctx, sessionID)
	if err != nil {
		uc.fail("high_correlations", sessionID, err)
		return nil, err
	}
	return correlation.ExtractPairs(res.Matrix, threshold)
}

// DiversificationGuide runs the optimizer over the cached universe. Tickers
// with the lowest average |r| are considered first.
func (uc *CorrelationUseCase) DiversificationGuide(ctx context.Context, sessionID string, threshold float64) (*models.DiversificationGuide, error) {
	if err := correlation.ValidateThreshold(threshold); err != nil {
		uc.fail("diversification_guide", sessionID, err)
		return nil, err
	}
	res, err := uc.cached(ctx, sessionID)
	if err != nil {
		uc.fail("diversification_guide", sessionID, err)
		return nil, err
	}

	summaries := correlation.Summarize(res.Matrix, threshold)
	avg := make(map[string]float64, len(summaries))
	for _, s := range summaries {
		avg[s.Ticker] = -s.AverageAbsCorrelation
	}
	sel, err := correlation.Optimize(res.Matrix.Tickers, res.Matrix, threshold, correlation.ScorePriority(avg))
	if err != nil {
		return nil, err
	}
	pairs, err := correlation.ExtractPairs(res.Matrix, threshold)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].AverageAbsCorrelation != summaries[j].AverageAbsCorrelation {
			return summaries[i].AverageAbsCorrelation < summaries[j].AverageAbsCorrelation
		}
		return summaries[i].Ticker < summaries[j].Ticker
	})

	if uc.l != nil {
		uc.l.Info("diversification guide built",
			applogger.String("session_id", sessionID),
			applogger.Float64("threshold", threshold),
			applogger.Int("selected", len(sel.Selected)),
			applogger.Int("excluded", len(sel.Excluded)),
		)
	}
	return &models.DiversificationGuide{
		SessionID:            sessionID,
		Threshold:            threshold,
		Selection:            *sel,
		HighCorrelationPairs: pairs,
		Tickers:              summaries,
		TotalTickers:         len(res.Matrix.Tickers),
	}, nil
}

// DiversifyParams selects candidates without requiring a prior analysis.
// The matrix comes from Matrix when set, from the session's cached analysis
// when it covers every ticker, and from the price store otherwise.
type DiversifyParams struct {
	SessionID string
	Tickers   []string
	Threshold float64
	Priority  map[string]float64
	Matrix    *models.CorrelationMatrix
	DateRange models.DateRange
}

func (uc *CorrelationUseCase) Diversify(ctx context.Context, p DiversifyParams) (*models.DiversificationSelection, error) {
	sel, err := uc.diversify(ctx, p)
	if err != nil {
		uc.fail("diversify", p.SessionID, err)
		return nil, err
	}
	if uc.l != nil {
		uc.l.Info("diversification optimized",
			applogger.String("session_id", p.SessionID),
			applogger.Float64("threshold", p.Threshold),
			applogger.Int("candidates", len(p.Tickers)),
			applogger.Int("selected", len(sel.Selected)),
			applogger.Float64("score", sel.PortfolioDiversificationScore),
		)
	}
	return sel, nil
}

func (uc *CorrelationUseCase) diversify(ctx context.Context, p DiversifyParams) (*models.DiversificationSelection, error) {
	if err := correlation.ValidateThreshold(p.Threshold); err != nil {
		return nil, err
	}
	if len(p.Tickers) == 0 {
		return correlation.Optimize(nil, models.CorrelationMatrix{}, p.Threshold, nil)
	}
	tickers, err := correlation.NormalizeTickers(p.Tickers)
	if err != nil {
		return nil, err
	}
	matrix, err := uc.matrixFor(ctx, p, tickers)
	if err != nil {
		return nil, err
	}

	var priority correlation.PriorityFunc
	if len(p.Priority) > 0 {
		scores := make(map[string]float64, len(p.Priority))
		for t, s := range p.Priority {
			scores[correlation.NormalizeTicker(t)] = s
		}
		priority = correlation.ScorePriority(scores)
	}
	return correlation.Optimize(tickers, matrix, p.Threshold, priority)
}

func (uc *CorrelationUseCase) matrixFor(ctx context.Context, p DiversifyParams, tickers []string) (models.CorrelationMatrix, error) {
	if p.Matrix != nil {
		return correlation.NormalizeMatrix(*p.Matrix)
	}
	if p.SessionID != "" {
		res, err := uc.cached(ctx, p.SessionID)
		switch {
		case err == nil && covers(res.Matrix, tickers):
			return res.Matrix, nil
		case err != nil && !errors.Is(err, models.ErrNoAnalysisAvailable):
			return models.CorrelationMatrix{}, err
		}
	}
	if err := features.ValidateRange(p.DateRange); err != nil {
		return models.CorrelationMatrix{}, err
	}
	if len(tickers) < 2 {
		// Nothing to correlate, but the ticker must still be known.
		if _, err := uc.prices.FetchAlignedReturns(ctx, tickers, p.DateRange); err != nil {
			return models.CorrelationMatrix{}, fmt.Errorf("fetch returns: %w", err)
		}
		return correlation.Identity(tickers), nil
	}
	m, _, err := uc.compute(ctx, tickers, p.DateRange)
	return m, err
}

func covers(m models.CorrelationMatrix, tickers []string) bool {
	idx := m.IndexMap()
	for _, t := range tickers {
		if _, ok := idx[t]; !ok {
			return false
		}
	}
	return true
}

// DeleteResults drops the session's analysis.
func (uc *CorrelationUseCase) DeleteResults(ctx context.Context, sessionID string) error {
	if err := uc.store.Delete(ctx, sessionID); err != nil {
		uc.fail("delete_results", sessionID, err)
		return err
	}
	if uc.l != nil {
		uc.l.Info("correlation results deleted", applogger.String("session_id", sessionID))
	}
	return nil
}

func (uc *CorrelationUseCase) fail(op, sessionID string, err error) {
	kind := ErrorKind(err)
	uc.metrics.RecordError(kind)
	if uc.l == nil {
		return
	}
	fields := []applogger.Field{
		applogger.String("op", op),
		applogger.String("session_id", sessionID),
		applogger.String("kind", kind),
		applogger.Error(err),
	}
	switch kind {
	case "upstream", "internal":
		uc.l.Error("correlation request failed", fields...)
	default:
		uc.l.Warn("correlation request rejected", fields...)
	}
}

// ErrorKind classifies an error by its domain sentinel.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidThreshold):
		return "invalid_threshold"
	case errors.Is(err, models.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, models.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, models.ErrNoAnalysisAvailable):
		return "no_analysis"
	case errors.Is(err, models.ErrUpstreamData):
		return "upstream"
	default:
		return "internal"
	}
}
