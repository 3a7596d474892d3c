package correlation

import (
	"fmt"

	"FinCorr/internal/domain/models"
)

// HighCorrelationCutoff is the absolute coefficient from which a heatmap cell
// is bucketed as high-positive or high-negative.
const HighCorrelationCutoff = 0.7

// BucketFor maps a coefficient to its presentation bucket.
func BucketFor(v float64) models.HeatmapBucket {
	switch {
	case v >= HighCorrelationCutoff:
		return models.BucketHighPositive
	case v <= -HighCorrelationCutoff:
		return models.BucketHighNegative
	default:
		return models.BucketNeutral
	}
}

// BuildHeatmap projects the matrix onto tickers (all matrix tickers when empty)
// as a row-major grid.
func BuildHeatmap(tickers []string, m models.CorrelationMatrix) (*models.HeatmapData, error) {
	if len(tickers) == 0 {
		tickers = m.Tickers
	}
	idx := m.IndexMap()
	rows := make([]int, len(tickers))
	for k, t := range tickers {
		i, ok := idx[t]
		if !ok {
			return nil, fmt.Errorf("%w: ticker %s is not part of the analysis", models.ErrInvalidInput, t)
		}
		rows[k] = i
	}

	labels := make([]string, len(tickers))
	copy(labels, tickers)
	cols := make([]string, len(tickers))
	copy(cols, tickers)

	cells := make([]models.HeatmapCell, 0, len(tickers)*len(tickers))
	for a, i := range rows {
		for b, j := range rows {
			v := m.Values[i][j]
			cells = append(cells, models.HeatmapCell{
				Row:    labels[a],
				Column: cols[b],
				Value:  v,
				Bucket: BucketFor(v),
			})
		}
	}
	return &models.HeatmapData{RowLabels: labels, ColumnLabels: cols, Cells: cells}, nil
}
