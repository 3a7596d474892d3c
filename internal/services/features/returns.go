package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"FinCorr/internal/domain/models"
)

const dayLayout = "2006-01-02"

// DefaultMinObservations is the smallest number of aligned closes that yields
// a usable return series (two returns).
const DefaultMinObservations = 3

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(closes)-1, or nil if insufficient data.
// A non-positive close yields a zero return for both adjacent steps.
func ComputeLogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// AlignCloses keeps only the calendar days present for every ticker and
// returns closes per ticker in ascending date order. Duplicate days within one
// ticker keep the last close seen.
func AlignCloses(tickers []string, history map[string][]models.ClosePoint) map[string][]float64 {
	byDay := make(map[string]map[string]float64, len(tickers))
	var common map[string]struct{}
	for _, t := range tickers {
		days := make(map[string]float64, len(history[t]))
		for _, p := range history[t] {
			days[p.Date.UTC().Format(dayLayout)] = p.Close
		}
		byDay[t] = days
		if common == nil {
			common = make(map[string]struct{}, len(days))
			for d := range days {
				common[d] = struct{}{}
			}
			continue
		}
		for d := range common {
			if _, ok := days[d]; !ok {
				delete(common, d)
			}
		}
	}

	dates := make([]string, 0, len(common))
	for d := range common {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make(map[string][]float64, len(tickers))
	for _, t := range tickers {
		closes := make([]float64, len(dates))
		for i, d := range dates {
			closes[i] = byDay[t][d]
		}
		out[t] = closes
	}
	return out
}

// AlignedReturns turns raw close history into equal-length log return series.
// A ticker without history fails with ErrTickerNotFound; fewer than
// minObservations aligned closes fails with ErrInsufficientHistory.
func AlignedReturns(tickers []string, history map[string][]models.ClosePoint, minObservations int) (map[string][]float64, error) {
	if minObservations < 2 {
		minObservations = DefaultMinObservations
	}
	for _, t := range tickers {
		if len(history[t]) == 0 {
			return nil, fmt.Errorf("%w: %s", models.ErrTickerNotFound, t)
		}
	}
	aligned := AlignCloses(tickers, history)
	out := make(map[string][]float64, len(tickers))
	for _, t := range tickers {
		closes := aligned[t]
		if len(closes) < minObservations {
			return nil, fmt.Errorf("%w: %s has %d aligned closes, need %d", models.ErrInsufficientHistory, t, len(closes), minObservations)
		}
		out[t] = ComputeLogReturns(closes)
	}
	return out, nil
}

// InRange reports whether day falls within the range, inclusive on both ends.
// A zero bound is open.
func InRange(day time.Time, dr models.DateRange) bool {
	if !dr.From.IsZero() && day.Before(dr.From) {
		return false
	}
	if !dr.To.IsZero() && day.After(dr.To) {
		return false
	}
	return true
}

// ValidateRange rejects ranges whose From is after To.
func ValidateRange(dr models.DateRange) error {
	if !dr.From.IsZero() && !dr.To.IsZero() && dr.From.After(dr.To) {
		return fmt.Errorf("%w: from %s is after to %s", models.ErrInvalidInput, dr.From.Format(dayLayout), dr.To.Format(dayLayout))
	}
	return nil
}
