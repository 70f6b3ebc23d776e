// internal/stats/stats.go
package stats

import "math"

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev returns the sample standard deviation of values. Fewer than
// two values report 0 rather than NaN.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSquares float64
	for _, v := range values {
		delta := v - mean
		sumSquares += delta * delta
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}

// Running holds the values needed for online calculation of mean, variance,
// and standard deviation using Welford's algorithm.
type Running struct {
	Count int64   `json:"-"`
	Mean  float64 `json:"mean"`
	M2    float64 `json:"-"` // Sum of squares of differences from the current mean
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Observe folds a single value into the running statistic.
func (r *Running) Observe(value float64) {
	r.Count++
	if r.Count == 1 {
		r.Min = value
		r.Max = value
	} else {
		if value < r.Min {
			r.Min = value
		}
		if value > r.Max {
			r.Max = value
		}
	}

	delta := value - r.Mean
	r.Mean += delta / float64(r.Count)
	delta2 := value - r.Mean
	r.M2 += delta * delta2
}

// StdDev returns the sample standard deviation accumulated so far.
func (r *Running) StdDev() float64 {
	if r.Count < 2 {
		return 0
	}
	return math.Sqrt(r.M2 / float64(r.Count-1))
}
