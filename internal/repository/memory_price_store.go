package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"FinCorr/internal/domain/models"
	"FinCorr/internal/services/correlation"
	"FinCorr/internal/services/features"

	"gopkg.in/yaml.v3"
)

// MemoryPriceStore keeps daily closes in process. It backs local runs and tests.
type MemoryPriceStore struct {
	mu              sync.RWMutex
	closes          map[string][]models.ClosePoint
	minObservations int
}

func NewMemoryPriceStore(minObservations int) *MemoryPriceStore {
	return &MemoryPriceStore{closes: make(map[string][]models.ClosePoint), minObservations: minObservations}
}

// Add appends closes for ticker. Symbols are stored normalized, so "aapl"
// and "AAPL" share one history.
func (s *MemoryPriceStore) Add(ticker string, points ...models.ClosePoint) {
	ticker = correlation.NormalizeTicker(ticker)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes[ticker] = append(s.closes[ticker], points...)
}

type fixtureClose struct {
	Date  string  `yaml:"date"`
	Close float64 `yaml:"close"`
}

// LoadFixture reads a YAML map of ticker to [{date, close}] entries.
func (s *MemoryPriceStore) LoadFixture(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read price fixture: %w", err)
	}
	var doc map[string][]fixtureClose
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse price fixture: %w", err)
	}
	for ticker, rows := range doc {
		points := make([]models.ClosePoint, 0, len(rows))
		for _, r := range rows {
			d, err := time.Parse("2006-01-02", r.Date)
			if err != nil {
				return fmt.Errorf("price fixture %s: %w", ticker, err)
			}
			points = append(points, models.ClosePoint{Date: d, Close: r.Close})
		}
		s.Add(ticker, points...)
	}
	return nil
}

func (s *MemoryPriceStore) FetchAlignedReturns(_ context.Context, tickers []string, dr models.DateRange) (map[string][]float64, error) {
	if err := features.ValidateRange(dr); err != nil {
		return nil, err
	}
	s.mu.RLock()
	history := make(map[string][]models.ClosePoint, len(tickers))
	for _, t := range tickers {
		for _, p := range s.closes[correlation.NormalizeTicker(t)] {
			if features.InRange(p.Date, dr) {
				history[t] = append(history[t], p)
			}
		}
	}
	s.mu.RUnlock()
	return features.AlignedReturns(tickers, history, s.minObservations)
}
