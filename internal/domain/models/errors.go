package models

import (
	"errors"
	"fmt"
)

// Error taxonomy of the analysis core. Callers match with errors.Is.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidThreshold    = fmt.Errorf("%w: threshold must be within [0, 1]", ErrInvalidInput)
	ErrInsufficientData    = errors.New("insufficient data")
	ErrNoAnalysisAvailable = errors.New("no analysis available")
	ErrUpstreamData        = errors.New("upstream data error")
	ErrTickerNotFound      = fmt.Errorf("%w: ticker not found", ErrUpstreamData)
	ErrInsufficientHistory = fmt.Errorf("%w: insufficient history", ErrUpstreamData)
)
