// internal/stats/stats_test.go
package stats

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty", values: nil, want: 0},
		{name: "single", values: []float64{4.2}, want: 4.2},
		{name: "several", values: []float64{1, 2, 3, 4}, want: 2.5},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Mean(tt.values); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Mean(%v)=%v want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestSampleStdDev(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty", values: nil, want: 0},
		{name: "single value reports zero", values: []float64{3.7}, want: 0},
		{name: "known sample", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, want: 2.1380899352993},
		{name: "identical values", values: []float64{5, 5, 5}, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SampleStdDev(tt.values); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("SampleStdDev(%v)=%v want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestRunningObserve(t *testing.T) {
	t.Parallel()

	var r Running
	for _, v := range []float64{10, 20, 30} {
		r.Observe(v)
	}

	if r.Count != 3 {
		t.Fatalf("Count=%d want 3", r.Count)
	}
	if math.Abs(r.Mean-20) > 1e-9 {
		t.Fatalf("Mean=%v want 20", r.Mean)
	}
	if r.Min != 10 || r.Max != 30 {
		t.Fatalf("Min/Max=%v/%v want 10/30", r.Min, r.Max)
	}
	if got := r.StdDev(); math.Abs(got-10) > 1e-9 {
		t.Fatalf("StdDev=%v want 10", got)
	}
}

func TestRunningStdDevSingleObservation(t *testing.T) {
	t.Parallel()

	var r Running
	r.Observe(42)
	if got := r.StdDev(); got != 0 {
		t.Fatalf("StdDev after one observation=%v want 0", got)
	}
}

func TestRunningMatchesBatchStdDev(t *testing.T) {
	t.Parallel()

	values := []float64{0.12, 3.4, 2.2, 9.9, 4.6, 1.05}
	var r Running
	for _, v := range values {
		r.Observe(v)
	}

	if got, want := r.StdDev(), SampleStdDev(values); math.Abs(got-want) > 1e-9 {
		t.Fatalf("running stddev %v diverges from batch %v", got, want)
	}
}
