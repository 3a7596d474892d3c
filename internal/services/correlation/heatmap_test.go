package correlation

import (
	"testing"

	"FinCorr/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketFor(t *testing.T) {
	tests := []struct {
		value float64
		want  models.HeatmapBucket
	}{
		{1, models.BucketHighPositive},
		{0.7, models.BucketHighPositive},
		{0.69, models.BucketNeutral},
		{0, models.BucketNeutral},
		{-0.69, models.BucketNeutral},
		{-0.7, models.BucketHighNegative},
		{-1, models.BucketHighNegative},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, BucketFor(tc.value), "value %v", tc.value)
	}
}

func TestBuildHeatmap_FullGrid(t *testing.T) {
	m := matrixFrom([]string{"A", "B", "C"}, map[string]float64{"A|B": 0.9, "A|C": -0.8, "B|C": 0.2})
	hm, err := BuildHeatmap(nil, m)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, hm.RowLabels)
	assert.Equal(t, hm.RowLabels, hm.ColumnLabels)
	require.Len(t, hm.Cells, 9)

	// row-major: (A,A) (A,B) (A,C) (B,A) ...
	assert.Equal(t, models.HeatmapCell{Row: "A", Column: "B", Value: 0.9, Bucket: models.BucketHighPositive}, hm.Cells[1])
	assert.Equal(t, models.HeatmapCell{Row: "A", Column: "C", Value: -0.8, Bucket: models.BucketHighNegative}, hm.Cells[2])
	assert.Equal(t, models.HeatmapCell{Row: "B", Column: "C", Value: 0.2, Bucket: models.BucketNeutral}, hm.Cells[5])
	assert.Equal(t, 1.0, hm.Cells[8].Value)
}

func TestBuildHeatmap_SubsetKeepsRequestedOrder(t *testing.T) {
	m := matrixFrom([]string{"A", "B", "C"}, map[string]float64{"A|B": 0.9, "A|C": -0.8, "B|C": 0.2})
	hm, err := BuildHeatmap([]string{"C", "A"}, m)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, hm.RowLabels)
	require.Len(t, hm.Cells, 4)
	assert.Equal(t, -0.8, hm.Cells[1].Value)

	again, err := BuildHeatmap([]string{"C", "A"}, m)
	require.NoError(t, err)
	assert.Equal(t, hm, again)
}

func TestBuildHeatmap_UnknownTicker(t *testing.T) {
	m := matrixFrom([]string{"A", "B"}, map[string]float64{"A|B": 0.1})
	_, err := BuildHeatmap([]string{"A", "Z"}, m)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestNormalizeMatrix(t *testing.T) {
	m, err := NormalizeMatrix(models.CorrelationMatrix{
		Tickers: []string{" aaa", "bbb "},
		Values:  [][]float64{{1, 0.4}, {0.4, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, m.Tickers)

	bad := []models.CorrelationMatrix{
		{Tickers: []string{"A", "B"}, Values: [][]float64{{1, 0.4}}},
		{Tickers: []string{"A", "B"}, Values: [][]float64{{1, 0.4}, {0.3, 1}}},
		{Tickers: []string{"A", "B"}, Values: [][]float64{{1, 1.5}, {1.5, 1}}},
		{Tickers: []string{"A", "a"}, Values: [][]float64{{1, 0}, {0, 1}}},
		{Tickers: []string{"A", "B"}, Values: [][]float64{{0, 0.5}, {0.5, -1}}},
		{Tickers: []string{"A", "B"}, Values: [][]float64{{1, 0.5}, {0.5, 0.99}}},
	}
	for _, b := range bad {
		_, err := NormalizeMatrix(b)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	}
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, Identity([]string{"A", "B"}).Values)
}
