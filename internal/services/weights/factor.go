package weights

import (
	"fmt"

	"FinCorr/internal/domain/models"

	"github.com/shopspring/decimal"
)

const scale = 4

// Factor names reported as AutoCalculatedFactor.
const (
	FactorROE = "ROE"
	FactorPBR = "PBR"
	FactorPER = "PER"
)

var (
	one  = decimal.NewFromInt(1)
	zero = decimal.Zero
)

// Defaults are the weights a session starts with.
func Defaults() models.FactorWeights {
	roe := decimal.RequireFromString("0.3334")
	pbr := decimal.RequireFromString("0.3333")
	per := decimal.RequireFromString("0.3333")
	return models.FactorWeights{
		RoeWeight:   roe,
		PbrWeight:   pbr,
		PerWeight:   per,
		TotalWeight: roe.Add(pbr).Add(per).Round(scale),
	}
}

// CompleteFactorWeights fills in the one missing weight so the three sum to 1.
// Exactly two weights must be given, each within [0, 1], and their sum must
// not exceed 1.
func CompleteFactorWeights(req models.FactorWeightRequest) (models.FactorWeights, error) {
	given := 0
	sum := zero
	for _, w := range []struct {
		name  string
		value *decimal.Decimal
	}{
		{FactorROE, req.RoeWeight},
		{FactorPBR, req.PbrWeight},
		{FactorPER, req.PerWeight},
	} {
		if w.value == nil {
			continue
		}
		if w.value.LessThan(zero) || w.value.GreaterThan(one) {
			return models.FactorWeights{}, fmt.Errorf("%w: %s weight must be within [0, 1], got %s", models.ErrInvalidInput, w.name, w.value)
		}
		given++
		sum = sum.Add(*w.value)
	}
	if given != 2 {
		return models.FactorWeights{}, fmt.Errorf("%w: exactly two weights are required, got %d", models.ErrInvalidInput, given)
	}
	if sum.GreaterThan(one) {
		return models.FactorWeights{}, fmt.Errorf("%w: weights sum to %s%%, must not exceed 100%%", models.ErrInvalidInput, sum.Mul(decimal.NewFromInt(100)).StringFixed(2))
	}

	// Round rounds half away from zero; the remainder is never negative here.
	remaining := one.Sub(sum).Round(scale)
	if remaining.LessThan(zero) {
		remaining = zero
	}

	out := models.FactorWeights{}
	switch {
	case req.RoeWeight == nil:
		out.RoeWeight, out.PbrWeight, out.PerWeight = remaining, *req.PbrWeight, *req.PerWeight
		out.AutoCalculatedFactor = FactorROE
	case req.PbrWeight == nil:
		out.RoeWeight, out.PbrWeight, out.PerWeight = *req.RoeWeight, remaining, *req.PerWeight
		out.AutoCalculatedFactor = FactorPBR
	default:
		out.RoeWeight, out.PbrWeight, out.PerWeight = *req.RoeWeight, *req.PbrWeight, remaining
		out.AutoCalculatedFactor = FactorPER
	}
	out.TotalWeight = out.RoeWeight.Add(out.PbrWeight).Add(out.PerWeight).Round(scale)
	return out, nil
}
