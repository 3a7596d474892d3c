package correlation

import "FinCorr/internal/domain/models"

// matrixFrom builds a symmetric matrix from upper-triangle coefficients keyed
// by "A|B".
func matrixFrom(tickers []string, upper map[string]float64) models.CorrelationMatrix {
	n := len(tickers)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		values[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v, ok := upper[tickers[i]+"|"+tickers[j]]
			if !ok {
				v = upper[tickers[j]+"|"+tickers[i]]
			}
			values[i][j], values[j][i] = v, v
		}
	}
	return models.CorrelationMatrix{Tickers: tickers, Values: values}
}
