package models

// ReasonHighCorrelation marks a candidate rejected for co-moving with an
// already selected ticker.
const ReasonHighCorrelation = "high_correlation"

type ExcludedTicker struct {
	Ticker            string  `json:"ticker"`
	Reason            string  `json:"reason"`
	ConflictingTicker string  `json:"conflicting_ticker"`
	Correlation       float64 `json:"correlation"`
}

// DiversificationSelection is recomputed on every call and never cached.
type DiversificationSelection struct {
	Selected                      []string         `json:"selected"`
	Excluded                      []ExcludedTicker `json:"excluded"`
	PortfolioDiversificationScore float64          `json:"portfolio_diversification_score"`
	Threshold                     float64          `json:"threshold"`
}

// TickerCorrelationSummary is the mean absolute correlation of a ticker
// against the rest of the analysed universe.
type TickerCorrelationSummary struct {
	Ticker                  string  `json:"ticker"`
	AverageAbsCorrelation   float64 `json:"average_abs_correlation"`
	HighCorrelationPartners int     `json:"high_correlation_partners"`
}

// DiversificationGuide summarises a cached analysis for a threshold.
type DiversificationGuide struct {
	SessionID            string                     `json:"session_id"`
	Threshold            float64                    `json:"threshold"`
	Selection            DiversificationSelection   `json:"selection"`
	HighCorrelationPairs []HighCorrelationPair      `json:"high_correlation_pairs"`
	Tickers              []TickerCorrelationSummary `json:"tickers"`
	TotalTickers         int                        `json:"total_tickers"`
}
