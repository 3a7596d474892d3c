package correlation

import (
	"fmt"
	"math"
	"sort"

	"FinCorr/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// PriorityFunc scores a candidate; higher scores are considered first.
type PriorityFunc func(ticker string) float64

// ScorePriority builds a PriorityFunc from a score table. Missing tickers score 0.
func ScorePriority(scores map[string]float64) PriorityFunc {
	if len(scores) == 0 {
		return nil
	}
	return func(t string) float64 { return scores[t] }
}

// OrderCandidates returns candidates in evaluation order. Without a priority
// the input order is kept; otherwise higher scores come first and equal scores
// fall back to the ticker name.
func OrderCandidates(candidates []string, priority PriorityFunc) []string {
	ordered := make([]string, len(candidates))
	copy(ordered, candidates)
	if priority == nil {
		return ordered
	}
	scores := make(map[string]float64, len(ordered))
	for _, c := range ordered {
		scores[c] = priority(c)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := scores[ordered[i]], scores[ordered[j]]
		if si != sj {
			return si > sj
		}
		return ordered[i] < ordered[j]
	})
	return ordered
}

// Optimize greedily selects candidates whose maximum |r| to every already
// selected ticker stays below threshold. The result is a heuristic, not the
// optimal subset.
func Optimize(candidates []string, m models.CorrelationMatrix, threshold float64, priority PriorityFunc) (*models.DiversificationSelection, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	idx := m.IndexMap()
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w: ticker %s is not part of the correlation matrix", models.ErrInvalidInput, c)
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: duplicate candidate %s", models.ErrInvalidInput, c)
		}
		seen[c] = struct{}{}
	}

	sel := &models.DiversificationSelection{
		Selected:  make([]string, 0, len(candidates)),
		Excluded:  make([]models.ExcludedTicker, 0),
		Threshold: threshold,
	}
	for _, c := range OrderCandidates(candidates, priority) {
		ci := idx[c]
		maxCorr, conflict := 0.0, ""
		for _, s := range sel.Selected {
			v := math.Abs(m.Values[ci][idx[s]])
			if conflict == "" || v > maxCorr {
				maxCorr, conflict = v, s
			}
		}
		// A zero correlation never conflicts, even at threshold 0.
		if conflict != "" && maxCorr > 0 && maxCorr >= threshold {
			sel.Excluded = append(sel.Excluded, models.ExcludedTicker{
				Ticker:            c,
				Reason:            models.ReasonHighCorrelation,
				ConflictingTicker: conflict,
				Correlation:       m.Values[ci][idx[conflict]],
			})
			continue
		}
		sel.Selected = append(sel.Selected, c)
	}
	sel.PortfolioDiversificationScore = DiversificationScore(sel.Selected, m)
	return sel, nil
}

// DiversificationScore is 1 minus the mean |r| over all unordered pairs of
// tickers, or 1 when fewer than two tickers are given.
func DiversificationScore(tickers []string, m models.CorrelationMatrix) float64 {
	if len(tickers) < 2 {
		return 1
	}
	idx := m.IndexMap()
	abs := make([]float64, 0, len(tickers)*(len(tickers)-1)/2)
	for a := 0; a < len(tickers); a++ {
		for b := a + 1; b < len(tickers); b++ {
			abs = append(abs, math.Abs(m.Values[idx[tickers[a]]][idx[tickers[b]]]))
		}
	}
	score := 1 - stat.Mean(abs, nil)
	return math.Max(0, math.Min(1, score))
}

// Summarize reports the mean |r| of each ticker against the others and how many
// partners reach threshold.
func Summarize(m models.CorrelationMatrix, threshold float64) []models.TickerCorrelationSummary {
	n := m.Size()
	out := make([]models.TickerCorrelationSummary, 0, n)
	for i := 0; i < n; i++ {
		abs := make([]float64, 0, n-1)
		partners := 0
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			v := math.Abs(m.Values[i][j])
			abs = append(abs, v)
			if v >= threshold && v > 0 {
				partners++
			}
		}
		avg := 0.0
		if len(abs) > 0 {
			avg = stat.Mean(abs, nil)
		}
		out = append(out, models.TickerCorrelationSummary{
			Ticker:                  m.Tickers[i],
			AverageAbsCorrelation:   avg,
			HighCorrelationPartners: partners,
		})
	}
	return out
}
