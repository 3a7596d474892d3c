package weights

import (
	"testing"

	"FinCorr/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestCompleteFactorWeights(t *testing.T) {
	tests := []struct {
		name     string
		req      models.FactorWeightRequest
		roe      string
		pbr      string
		per      string
		computed string
	}{
		{"missing per", models.FactorWeightRequest{RoeWeight: d("0.5"), PbrWeight: d("0.3")}, "0.5", "0.3", "0.2", FactorPER},
		{"missing roe", models.FactorWeightRequest{PbrWeight: d("0.25"), PerWeight: d("0.25")}, "0.5", "0.25", "0.25", FactorROE},
		{"missing pbr rounds half up", models.FactorWeightRequest{RoeWeight: d("0.33335"), PerWeight: d("0.3333")}, "0.33335", "0.3334", "0.3333", FactorPBR},
		{"sum exactly one", models.FactorWeightRequest{RoeWeight: d("0.6"), PbrWeight: d("0.4")}, "0.6", "0.4", "0", FactorPER},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CompleteFactorWeights(tc.req)
			require.NoError(t, err)
			assert.True(t, got.RoeWeight.Equal(decimal.RequireFromString(tc.roe)), "roe %s", got.RoeWeight)
			assert.True(t, got.PbrWeight.Equal(decimal.RequireFromString(tc.pbr)), "pbr %s", got.PbrWeight)
			assert.True(t, got.PerWeight.Equal(decimal.RequireFromString(tc.per)), "per %s", got.PerWeight)
			assert.Equal(t, tc.computed, got.AutoCalculatedFactor)
		})
	}
}

func TestCompleteFactorWeights_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  models.FactorWeightRequest
	}{
		{"one weight", models.FactorWeightRequest{RoeWeight: d("0.5")}},
		{"three weights", models.FactorWeightRequest{RoeWeight: d("0.2"), PbrWeight: d("0.2"), PerWeight: d("0.2")}},
		{"negative", models.FactorWeightRequest{RoeWeight: d("-0.1"), PbrWeight: d("0.2")}},
		{"above one", models.FactorWeightRequest{RoeWeight: d("1.1"), PbrWeight: d("0")}},
		{"sum above one", models.FactorWeightRequest{RoeWeight: d("0.7"), PbrWeight: d("0.4")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CompleteFactorWeights(tc.req)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}

func TestDefaults(t *testing.T) {
	def := Defaults()
	assert.True(t, def.TotalWeight.Equal(decimal.NewFromInt(1)))
}
