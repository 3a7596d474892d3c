package correlation

import (
	"fmt"
	"math"

	"FinCorr/internal/domain/models"
)

// NormalizeMatrix validates a caller-supplied matrix and returns a copy with
// normalized tickers. The matrix must be square, symmetric, have a unit
// diagonal and stay within [-1, 1].
func NormalizeMatrix(m models.CorrelationMatrix) (models.CorrelationMatrix, error) {
	tickers, err := NormalizeTickers(m.Tickers)
	if err != nil {
		return models.CorrelationMatrix{}, err
	}
	n := len(tickers)
	if len(m.Values) != n {
		return models.CorrelationMatrix{}, fmt.Errorf("%w: matrix has %d rows for %d tickers", models.ErrInvalidInput, len(m.Values), n)
	}
	values := make([][]float64, n)
	for i, row := range m.Values {
		if len(row) != n {
			return models.CorrelationMatrix{}, fmt.Errorf("%w: matrix row %d has %d columns", models.ErrInvalidInput, i, len(row))
		}
		values[i] = make([]float64, n)
		for j, v := range row {
			if math.IsNaN(v) || v < -1 || v > 1 {
				return models.CorrelationMatrix{}, fmt.Errorf("%w: matrix value %v at (%d,%d) out of range", models.ErrInvalidInput, v, i, j)
			}
			values[i][j] = v
		}
	}
	for i := 0; i < n; i++ {
		if values[i][i] != 1 {
			return models.CorrelationMatrix{}, fmt.Errorf("%w: matrix diagonal at %d is %v, want 1", models.ErrInvalidInput, i, values[i][i])
		}
		for j := i + 1; j < n; j++ {
			if values[i][j] != values[j][i] {
				return models.CorrelationMatrix{}, fmt.Errorf("%w: matrix is not symmetric at (%d,%d)", models.ErrInvalidInput, i, j)
			}
		}
	}
	return models.CorrelationMatrix{Tickers: tickers, Values: values}, nil
}

// Identity returns the matrix of a universe with no off-diagonal information.
func Identity(tickers []string) models.CorrelationMatrix {
	values := make([][]float64, len(tickers))
	for i := range values {
		values[i] = make([]float64, len(tickers))
		values[i][i] = 1
	}
	return models.CorrelationMatrix{Tickers: tickers, Values: values}
}
