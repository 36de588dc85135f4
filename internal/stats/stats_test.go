package stats_test

import (
	"math"
	"reflect"
	"sort"
	"testing"

	"github.com/llmpulse/llmpulse/internal/stats"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestComputeKnownValues(t *testing.T) {
	summary, ok := stats.Compute([]float64{1.0, 2.0, 3.0, 4.0})
	if !ok {
		t.Fatal("expected ok for non-empty input")
	}

	if summary.Count != 4 {
		t.Errorf("expected count 4, got %d", summary.Count)
	}
	if !almostEqual(summary.Mean, 2.5) {
		t.Errorf("expected mean 2.5, got %g", summary.Mean)
	}
	if !almostEqual(summary.Median, 2.5) {
		t.Errorf("expected median 2.5, got %g", summary.Median)
	}
	// rank 0.9*3 = 2.7 -> 3.0 + 0.7*(4.0-3.0) = 3.7
	if !almostEqual(summary.P90, 3.7) {
		t.Errorf("expected p90 3.7, got %g", summary.P90)
	}
	if !almostEqual(summary.Min, 1.0) || !almostEqual(summary.Max, 4.0) {
		t.Errorf("expected min 1.0 max 4.0, got %g %g", summary.Min, summary.Max)
	}
	// sample stdev of 1..4 = sqrt(5/3)
	if !almostEqual(summary.Stdev, math.Sqrt(5.0/3.0)) {
		t.Errorf("expected stdev sqrt(5/3), got %g", summary.Stdev)
	}
}

func TestComputeEmptyIsAbsent(t *testing.T) {
	if _, ok := stats.Compute(nil); ok {
		t.Error("expected ok=false for empty input")
	}
	if _, ok := stats.Compute([]float64{}); ok {
		t.Error("expected ok=false for empty slice")
	}
}

func TestComputeSingleSample(t *testing.T) {
	summary, ok := stats.Compute([]float64{0.42})
	if !ok {
		t.Fatal("expected ok for single sample")
	}
	if summary.Stdev != 0 {
		t.Errorf("expected stdev 0 for n=1, got %g", summary.Stdev)
	}
	if !almostEqual(summary.Median, 0.42) || !almostEqual(summary.P99, 0.42) {
		t.Errorf("expected all positional stats 0.42, got median %g p99 %g", summary.Median, summary.P99)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	input := []float64{0.5, 0.1, 0.9, 0.3, 0.7}
	first, _ := stats.Compute(input)
	second, _ := stats.Compute(input)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results, got %+v and %+v", first, second)
	}
	// Compute must not reorder the caller's slice.
	if !reflect.DeepEqual(input, []float64{0.5, 0.1, 0.9, 0.3, 0.7}) {
		t.Errorf("input slice was modified: %v", input)
	}
}

func TestMedianOddCount(t *testing.T) {
	summary, _ := stats.Compute([]float64{3, 1, 2})
	if !almostEqual(summary.Median, 2) {
		t.Errorf("expected median 2, got %g", summary.Median)
	}
}

func TestPercentile50MatchesMedian(t *testing.T) {
	inputs := [][]float64{
		{1, 2, 3, 4},
		{0.1, 0.2, 0.3},
		{5},
		{2.5, 1.5, 9.0, 4.0, 3.3, 7.7},
	}
	for _, input := range inputs {
		summary, _ := stats.Compute(input)
		sorted := append([]float64(nil), input...)
		sort.Float64s(sorted)
		p50 := stats.Percentile(sorted, 50)
		if !almostEqual(p50, summary.Median) {
			t.Errorf("input %v: percentile(50)=%g, median=%g", input, p50, summary.Median)
		}
	}
}

func TestPercentileInterpolation(t *testing.T) {
	sorted := make([]float64, 100)
	for i := range sorted {
		sorted[i] = float64(i + 1) // 1..100
	}
	// rank = 0.95*99 = 94.05 -> 95 + 0.05*(96-95) = 95.05
	if got := stats.Percentile(sorted, 95); !almostEqual(got, 95.05) {
		t.Errorf("expected p95 95.05, got %g", got)
	}
	// rank = 0.99*99 = 98.01 -> 99 + 0.01*1 = 99.01
	if got := stats.Percentile(sorted, 99); !almostEqual(got, 99.01) {
		t.Errorf("expected p99 99.01, got %g", got)
	}
	if got := stats.Percentile(sorted, 100); !almostEqual(got, 100) {
		t.Errorf("expected p100 100, got %g", got)
	}
	if got := stats.Percentile(sorted, 0); !almostEqual(got, 1) {
		t.Errorf("expected p0 1, got %g", got)
	}
}
