package correlation

import (
	"fmt"
	"math"
	"strings"

	"FinCorr/internal/domain/models"
)

// NormalizeTicker trims and upper-cases a raw ticker symbol.
func NormalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeTickers normalizes a universe, preserving order. Empty symbols and
// duplicates (after normalization) are rejected.
func NormalizeTickers(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: ticker list is empty", models.ErrInvalidInput)
	}
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		t := NormalizeTicker(r)
		if t == "" {
			return nil, fmt.Errorf("%w: empty ticker", models.ErrInvalidInput)
		}
		if _, dup := seen[t]; dup {
			return nil, fmt.Errorf("%w: duplicate ticker %s", models.ErrInvalidInput, t)
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// ValidateThreshold checks that a correlation threshold lies within [0, 1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: got %v", models.ErrInvalidThreshold, threshold)
	}
	return nil
}
