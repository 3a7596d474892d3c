package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"FinCorr/internal/domain/models"
	"FinCorr/internal/repository"
	"FinCorr/internal/service/session"
	"FinCorr/internal/services/correlation"
	"FinCorr/pkg/cache"
	"FinCorr/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.CorrelationAnalysisResult
	err    error
}

func (p *recordingPublisher) PublishAnalysis(_ context.Context, res *models.CorrelationAnalysisResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, res)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type countingStore struct {
	*repository.MemoryPriceStore
	calls int
}

func (s *countingStore) FetchAlignedReturns(ctx context.Context, tickers []string, dr models.DateRange) (map[string][]float64, error) {
	s.calls++
	return s.MemoryPriceStore.FetchAlignedReturns(ctx, tickers, dr)
}

func day(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC) }

// AAA and BBB move together, CCC mirrors them, DDD is unrelated.
func priceStore() *countingStore {
	s := repository.NewMemoryPriceStore(3)
	closes := map[string][]float64{
		"AAA": {100, 101, 103, 102, 105, 107, 106},
		"BBB": {50, 50.5, 51.5, 51, 52.5, 53.5, 53},
		"CCC": {80, 79.2, 77.6, 78.4, 76, 74.4, 75.2},
		"DDD": {40, 40.4, 40.0, 40.4, 40.8, 40.4, 40.0},
	}
	for ticker, cs := range closes {
		for i, c := range cs {
			s.Add(ticker, models.ClosePoint{Date: day(i + 1), Close: c})
		}
	}
	return &countingStore{MemoryPriceStore: s}
}

type fixture struct {
	uc     *CorrelationUseCase
	prices *countingStore
	pub    *recordingPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	prices := priceStore()
	pub := &recordingPublisher{}
	uc := NewCorrelationUseCase(prices, session.NewCache(mem), pub, metrics.Nop{}, correlation.NewEngine(correlation.WithWorkers(2)))
	uc.now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }
	return fixture{uc: uc, prices: prices, pub: pub}
}

func TestAnalyze_StoresAndPublishes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.uc.Analyze(ctx, "s1", []string{"aaa", " bbb", "CCC", "ddd"}, models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB", "CCC", "DDD"}, res.Tickers)
	assert.Equal(t, 6, res.Observations)
	assert.Equal(t, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), res.ComputedAt)

	ab, _ := res.Matrix.At("AAA", "BBB")
	ac, _ := res.Matrix.At("AAA", "CCC")
	assert.Greater(t, ab, 0.9)
	assert.Less(t, ac, -0.9)

	cached, err := f.uc.Results(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, res.Matrix, cached.Matrix)
	require.Len(t, f.pub.events, 1)
}

func TestAnalyze_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	_, err := f.uc.Analyze(context.Background(), "s1", []string{"AAA", "BBB"}, models.DateRange{})
	assert.NoError(t, err)
}

func TestAnalyze_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name    string
		tickers []string
		dr      models.DateRange
		want    error
	}{
		{"empty", nil, models.DateRange{}, models.ErrInvalidInput},
		{"duplicate", []string{"AAA", "aaa"}, models.DateRange{}, models.ErrInvalidInput},
		{"single ticker", []string{"AAA"}, models.DateRange{}, models.ErrInsufficientData},
		{"unknown ticker", []string{"AAA", "ZZZ"}, models.DateRange{}, models.ErrTickerNotFound},
		{"short history", []string{"AAA", "BBB"}, models.DateRange{From: day(6)}, models.ErrInsufficientHistory},
		{"inverted range", []string{"AAA", "BBB"}, models.DateRange{From: day(5), To: day(2)}, models.ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.uc.Analyze(ctx, "s1", tc.tickers, tc.dr)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	_, err := f.uc.Results(ctx, "s1")
	assert.ErrorIs(t, err, models.ErrNoAnalysisAvailable)
}

func TestAnalyze_LaterAnalysisSupersedes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.uc.Analyze(ctx, "s1", []string{"AAA", "BBB", "CCC"}, models.DateRange{})
	require.NoError(t, err)
	_, err = f.uc.Analyze(ctx, "s1", []string{"CCC", "DDD"}, models.DateRange{})
	require.NoError(t, err)

	res, err := f.uc.Results(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"CCC", "DDD"}, res.Tickers)

	_, err = f.uc.Heatmap(ctx, "s1", []string{"AAA"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestQueriesRequireAnalysis(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.uc.Heatmap(ctx, "none", nil)
	assert.ErrorIs(t, err, models.ErrNoAnalysisAvailable)
	_, err = f.uc.HighCorrelationPairs(ctx, "none", 0.7)
	assert.ErrorIs(t, err, models.ErrNoAnalysisAvailable)
	_, err = f.uc.DiversificationGuide(ctx, "none", 0.7)
	assert.ErrorIs(t, err, models.ErrNoAnalysisAvailable)
}

func TestHeatmapAndPairs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.uc.Analyze(ctx, "s1", []string{"AAA", "BBB", "CCC", "DDD"}, models.DateRange{})
	require.NoError(t, err)

	hm, err := f.uc.Heatmap(ctx, "s1", nil)
	require.NoError(t, err)
	assert.Len(t, hm.Cells, 16)
	assert.Equal(t, models.BucketHighPositive, hm.Cells[1].Bucket)
	assert.Equal(t, models.BucketHighNegative, hm.Cells[2].Bucket)

	sub, err := f.uc.Heatmap(ctx, "s1", []string{"ddd", "aaa"})
	require.NoError(t, err)
	assert.Equal(t, []string{"DDD", "AAA"}, sub.RowLabels)

	pairs, err := f.uc.HighCorrelationPairs(ctx, "s1", 0.9)
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	for _, p := range pairs {
		assert.NotEqual(t, "DDD", p.TickerA)
		assert.NotEqual(t, "DDD", p.TickerB)
	}

	all, err := f.uc.HighCorrelationPairs(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	_, err = f.uc.HighCorrelationPairs(ctx, "s1", 1.01)
	assert.ErrorIs(t, err, models.ErrInvalidThreshold)
}

func TestDiversificationGuide(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.uc.Analyze(ctx, "s1", []string{"AAA", "BBB", "CCC", "DDD"}, models.DateRange{})
	require.NoError(t, err)

	guide, err := f.uc.DiversificationGuide(ctx, "s1", 0.7)
	require.NoError(t, err)
	assert.Equal(t, 4, guide.TotalTickers)
	assert.Equal(t, "DDD", guide.Tickers[0].Ticker, "least correlated ticker is listed first")
	assert.Equal(t, "DDD", guide.Selection.Selected[0])
	assert.Len(t, guide.Selection.Selected, 2)
	assert.Len(t, guide.Selection.Excluded, 2)
	assert.Len(t, guide.HighCorrelationPairs, 3)
}

func TestDiversify_MatrixSources(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	supplied := &models.CorrelationMatrix{
		Tickers: []string{"A", "B", "C"},
		Values:  [][]float64{{1, 0.9, 0.1}, {0.9, 1, 0.2}, {0.1, 0.2, 1}},
	}
	sel, err := f.uc.Diversify(ctx, DiversifyParams{Tickers: []string{"a", "b", "c"}, Threshold: 0.7, Matrix: supplied})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, sel.Selected)
	assert.InDelta(t, 0.9, sel.PortfolioDiversificationScore, 1e-12)
	assert.Equal(t, 0, f.prices.calls)

	_, err = f.uc.Analyze(ctx, "s1", []string{"AAA", "BBB", "CCC", "DDD"}, models.DateRange{})
	require.NoError(t, err)
	calls := f.prices.calls
	sel, err = f.uc.Diversify(ctx, DiversifyParams{SessionID: "s1", Tickers: []string{"BBB", "AAA"}, Threshold: 0.7})
	require.NoError(t, err)
	assert.Equal(t, []string{"BBB"}, sel.Selected)
	assert.Equal(t, calls, f.prices.calls, "cached matrix reused")

	sel, err = f.uc.Diversify(ctx, DiversifyParams{Tickers: []string{"AAA", "DDD", "BBB"}, Threshold: 0.7, Priority: map[string]float64{"bbb": 2}})
	require.NoError(t, err)
	assert.Equal(t, "BBB", sel.Selected[0])
	assert.Equal(t, calls+1, f.prices.calls)
}

func TestDiversify_EdgeCases(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sel, err := f.uc.Diversify(ctx, DiversifyParams{Threshold: 0.5})
	require.NoError(t, err)
	assert.Empty(t, sel.Selected)
	assert.Equal(t, 1.0, sel.PortfolioDiversificationScore)

	sel, err = f.uc.Diversify(ctx, DiversifyParams{Tickers: []string{"AAA"}, Threshold: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, sel.Selected)

	_, err = f.uc.Diversify(ctx, DiversifyParams{Tickers: []string{"NOPE"}, Threshold: 0.5})
	assert.ErrorIs(t, err, models.ErrTickerNotFound)

	_, err = f.uc.Diversify(ctx, DiversifyParams{Tickers: []string{"AAA", "BBB"}, Threshold: -1})
	assert.ErrorIs(t, err, models.ErrInvalidThreshold)

	_, err = f.uc.Diversify(ctx, DiversifyParams{Tickers: []string{"AAA", "ZZZ"}, Threshold: 0.5})
	assert.ErrorIs(t, err, models.ErrUpstreamData)

	_, err = f.uc.Diversify(ctx, DiversifyParams{
		Tickers:   []string{"X"},
		Threshold: 0.5,
		Matrix:    &models.CorrelationMatrix{Tickers: []string{"A", "B"}, Values: [][]float64{{1, 0}, {0, 1}}},
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestDeleteResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.uc.Analyze(ctx, "s1", []string{"AAA", "BBB"}, models.DateRange{})
	require.NoError(t, err)

	require.NoError(t, f.uc.DeleteResults(ctx, "s1"))
	_, err = f.uc.Results(ctx, "s1")
	assert.ErrorIs(t, err, models.ErrNoAnalysisAvailable)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "invalid_threshold", ErrorKind(models.ErrInvalidThreshold))
	assert.Equal(t, "upstream", ErrorKind(models.ErrTickerNotFound))
	assert.Equal(t, "no_analysis", ErrorKind(models.ErrNoAnalysisAvailable))
	assert.Equal(t, "internal", ErrorKind(errors.New("x")))
}

func TestAnalyze_RepeatedRunIsBitIdentical(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tickers := []string{"AAA", "BBB", "CCC", "DDD"}

	for i := 0; i < 2; i++ {
		_, err := f.uc.Analyze(ctx, "s1", tickers, models.DateRange{})
		require.NoError(t, err)
	}
	_, err := f.uc.Analyze(ctx, "s2", tickers, models.DateRange{})
	require.NoError(t, err)

	twice, err := f.uc.Results(ctx, "s1")
	require.NoError(t, err)
	once, err := f.uc.Results(ctx, "s2")
	require.NoError(t, err)

	require.Equal(t, once.Tickers, twice.Tickers)
	for i := range once.Matrix.Values {
		for j := range once.Matrix.Values[i] {
			assert.Equal(t, math.Float64bits(once.Matrix.Values[i][j]), math.Float64bits(twice.Matrix.Values[i][j]), "cell (%d,%d)", i, j)
		}
	}
}
