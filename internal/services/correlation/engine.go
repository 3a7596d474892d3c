package correlation

import (
	"fmt"
	"math"

	"FinCorr/internal/domain/models"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Engine builds Pearson correlation matrices from aligned return series.
// Upper-triangle rows are spread over a bounded worker pool; each cell is a
// single sequential reduction, so the output does not depend on the number of
// workers.
type Engine struct {
	workers int
}

// EngineOption configures Engine.
type EngineOption func(*Engine)

// WithWorkers sets the number of row workers (<= 1 computes inline).
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine creates a correlation engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{workers: 4}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// seriesStats keeps a return series with its sample standard deviation.
type seriesStats struct {
	xs  []float64
	std float64
}

func newSeriesStats(xs []float64) seriesStats {
	return seriesStats{xs: xs, std: stat.StdDev(xs, nil)}
}

// Compute returns the correlation matrix for tickers using their return series.
func (e *Engine) Compute(tickers []string, series map[string][]float64) (models.CorrelationMatrix, error) {
	n := len(tickers)
	if n < 2 {
		return models.CorrelationMatrix{}, fmt.Errorf("%w: at least 2 tickers are required, got %d", models.ErrInsufficientData, n)
	}

	stats := make([]seriesStats, n)
	seen := make(map[string]struct{}, n)
	length := -1
	for i, t := range tickers {
		if _, dup := seen[t]; dup {
			return models.CorrelationMatrix{}, fmt.Errorf("%w: duplicate ticker %s", models.ErrInvalidInput, t)
		}
		seen[t] = struct{}{}

		s, ok := series[t]
		if !ok {
			return models.CorrelationMatrix{}, fmt.Errorf("%w: no return series for %s", models.ErrInsufficientData, t)
		}
		if len(s) < 2 {
			return models.CorrelationMatrix{}, fmt.Errorf("%w: %s has %d observations, need at least 2", models.ErrInsufficientData, t, len(s))
		}
		if length >= 0 && len(s) != length {
			return models.CorrelationMatrix{}, fmt.Errorf("%w: series lengths disagree (%s has %d, expected %d)", models.ErrInsufficientData, t, len(s), length)
		}
		length = len(s)
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return models.CorrelationMatrix{}, fmt.Errorf("%w: non-finite return for %s", models.ErrInvalidInput, t)
			}
		}
		stats[i] = newSeriesStats(s)
	}

	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		values[i][i] = 1
	}

	// Each worker owns whole rows of the upper triangle.
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := 0; i < n-1; i++ {
		row := i
		g.Go(func() error {
			for j := row + 1; j < n; j++ {
				r, err := pearson(stats[row], stats[j])
				if err != nil {
					return fmt.Errorf("%s/%s: %w", tickers[row], tickers[j], err)
				}
				values[row][j] = r
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.CorrelationMatrix{}, err
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			values[j][i] = values[i][j]
		}
	}

	labels := make([]string, n)
	copy(labels, tickers)
	return models.CorrelationMatrix{Tickers: labels, Values: values}, nil
}

// pearson returns the clamped coefficient, 0 when either series has no variance.
func pearson(x, y seriesStats) (float64, error) {
	if len(x.xs) != len(y.xs) {
		return 0, fmt.Errorf("%w: series lengths disagree", models.ErrInsufficientData)
	}
	if x.std == 0 || y.std == 0 || math.IsNaN(x.std) || math.IsNaN(y.std) {
		return 0, nil
	}
	r := stat.Correlation(x.xs, y.xs, nil)
	switch {
	case math.IsNaN(r):
		return 0, nil
	case r > 1:
		return 1, nil
	case r < -1:
		return -1, nil
	}
	return r, nil
}
