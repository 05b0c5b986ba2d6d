package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func checkLengths(actual, predicted []float64) {
	if len(actual) != len(predicted) {
		panic(fmt.Sprintf("metrics: series lengths differ (%d vs %d)", len(actual), len(predicted)))
	}
}

// Residuals returns predicted - actual.
func Residuals(actual, predicted []float64) []float64 {
	checkLengths(actual, predicted)
	return floats.SubTo(make([]float64, len(actual)), predicted, actual)
}

// RMSE is the root mean squared difference between the series.
func RMSE(actual, predicted []float64) float64 {
	checkLengths(actual, predicted)
	if len(actual) == 0 {
		return 0
	}
	return floats.Distance(actual, predicted, 2) / math.Sqrt(float64(len(actual)))
}

// MaxAbsError is the largest pointwise difference between the series.
func MaxAbsError(actual, predicted []float64) float64 {
	checkLengths(actual, predicted)
	if len(actual) == 0 {
		return 0
	}
	return floats.Distance(actual, predicted, math.Inf(1))
}

// RSquared is the coefficient of determination of predicted against actual.
// A constant recorded series has no variance to explain and yields NaN.
func RSquared(actual, predicted []float64) float64 {
	checkLengths(actual, predicted)
	if len(actual) < 2 {
		return math.NaN()
	}
	return stat.RSquaredFrom(predicted, actual, nil)
}
