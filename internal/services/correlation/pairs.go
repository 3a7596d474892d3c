package correlation

import (
	"math"
	"sort"

	"FinCorr/internal/domain/models"
)

// ExtractPairs returns every off-diagonal pair with |r| >= threshold, sorted by
// |r| descending and then by (TickerA, TickerB).
func ExtractPairs(m models.CorrelationMatrix, threshold float64) ([]models.HighCorrelationPair, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	pairs := make([]models.HighCorrelationPair, 0)
	n := m.Size()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := m.Values[i][j]
			if math.Abs(v) < threshold {
				continue
			}
			a, b := m.Tickers[i], m.Tickers[j]
			if a > b {
				a, b = b, a
			}
			pairs = append(pairs, models.HighCorrelationPair{
				TickerA:     a,
				TickerB:     b,
				Coefficient: v,
				IsPositive:  v > 0,
			})
		}
	}
	sort.Slice(pairs, func(x, y int) bool {
		ax, ay := math.Abs(pairs[x].Coefficient), math.Abs(pairs[y].Coefficient)
		if ax != ay {
			return ax > ay
		}
		if pairs[x].TickerA != pairs[y].TickerA {
			return pairs[x].TickerA < pairs[y].TickerA
		}
		return pairs[x].TickerB < pairs[y].TickerB
	})
	return pairs, nil
}
