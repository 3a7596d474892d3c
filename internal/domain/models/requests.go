package models

import "github.com/shopspring/decimal"

// Request bodies of the HTTP API.

type AnalyzeRequest struct {
	Tickers []string `json:"tickers" validate:"required,min=2,max=200,dive,required"`
	From    string   `json:"from"`
	To      string   `json:"to"`
}

type DiversifyRequest struct {
	SessionID string             `json:"session_id"`
	Tickers   []string           `json:"tickers" validate:"required,min=1,max=200,dive,required"`
	Threshold *float64           `json:"threshold"`
	Priority  map[string]float64 `json:"priority,omitempty"`
	Matrix    *CorrelationMatrix `json:"matrix,omitempty"`
	From      string             `json:"from"`
	To        string             `json:"to"`
}

type FactorWeightRequest struct {
	RoeWeight *decimal.Decimal `json:"roe_weight"`
	PbrWeight *decimal.Decimal `json:"pbr_weight"`
	PerWeight *decimal.Decimal `json:"per_weight"`
}

type FactorWeights struct {
	RoeWeight            decimal.Decimal `json:"roe_weight"`
	PbrWeight            decimal.Decimal `json:"pbr_weight"`
	PerWeight            decimal.Decimal `json:"per_weight"`
	TotalWeight          decimal.Decimal `json:"total_weight"`
	AutoCalculatedFactor string          `json:"auto_calculated_factor,omitempty"`
}
