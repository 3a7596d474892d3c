package models

import "time"

// DateRange bounds the observation window of an analysis. A zero From or To
// leaves that side open.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// IsZero reports whether the range is fully open.
func (r DateRange) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// CorrelationMatrix is a square symmetric matrix of Pearson coefficients whose
// rows and columns follow Tickers.
type CorrelationMatrix struct {
	Tickers []string    `json:"tickers"`
	Values  [][]float64 `json:"values"`
}

// Size returns the number of tickers covered by the matrix.
func (m CorrelationMatrix) Size() int { return len(m.Tickers) }

// IndexMap maps each ticker to its row index.
func (m CorrelationMatrix) IndexMap() map[string]int {
	idx := make(map[string]int, len(m.Tickers))
	for i, t := range m.Tickers {
		idx[t] = i
	}
	return idx
}

// At returns the coefficient for a ticker pair.
func (m CorrelationMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, t := range m.Tickers {
		if t == a {
			i = k
		}
		if t == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// CorrelationAnalysisResult is the latest analysis owned by one session.
type CorrelationAnalysisResult struct {
	SessionID    string            `json:"session_id"`
	Tickers      []string          `json:"tickers"`
	Matrix       CorrelationMatrix `json:"matrix"`
	DateRange    DateRange         `json:"date_range"`
	Observations int               `json:"observations"`
	ComputedAt   time.Time         `json:"computed_at"`
}

// HighCorrelationPair is an unordered pair with TickerA < TickerB.
type HighCorrelationPair struct {
	TickerA     string  `json:"ticker_a"`
	TickerB     string  `json:"ticker_b"`
	Coefficient float64 `json:"coefficient"`
	IsPositive  bool    `json:"is_positive"`
}
