// Package regression provides the small set of statistics the correction
// pipeline needs: a two-parameter least-squares line, medians, standard
// deviations and percentile ranks.
package regression

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Line is an ordinary least-squares fit y = Intercept + Slope*x.
type Line struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// At evaluates the line at x.
func (l Line) At(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// Fit fits y against x. It returns false when there are fewer than two
// points, the slices differ in length, or x has no spread.
// RSquared is 0 when y has no spread.
func Fit(x, y []float64) (Line, bool) {
	if len(x) < 2 || len(x) != len(y) {
		return Line{}, false
	}
	if stat.Variance(x, nil) == 0 {
		return Line{}, false
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return Line{}, false
	}

	line := Line{Slope: beta, Intercept: alpha}
	if stat.Variance(y, nil) > 0 {
		line.RSquared = stat.RSquared(x, y, nil, alpha, beta)
	}
	return line, true
}

// Median returns the median of values, averaging the two middle values for
// even lengths. Returns 0 for an empty slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	// Copy so the caller's order is preserved.
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// MedianInt is Median over integers.
func MedianInt(values []int) float64 {
	fs := make([]float64, len(values))
	for i, v := range values {
		fs[i] = float64(v)
	}
	return Median(fs)
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// PopStdDev returns the population (n denominator) standard deviation.
// Returns 0 for an empty slice.
func PopStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std
}

// StdDev returns the sample (n-1 denominator) standard deviation.
// Returns 0 for fewer than two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// Min returns the smallest value, or 0 for an empty slice.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// PercentileRank returns the percentage of values at or below score,
// averaging the strict and weak rankings when score ties with entries in
// values. The result is in [0, 100]; 0 for an empty slice.
func PercentileRank(values []float64, score float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	var below, atOrBelow int
	for _, v := range values {
		if v < score {
			below++
		}
		if v <= score {
			atOrBelow++
		}
	}
	bump := 0
	if below < atOrBelow {
		bump = 1
	}
	return float64(below+atOrBelow+bump) * 50 / float64(n)
}
