// Package stats reduces latency samples to descriptive statistics and
// fixed-width histogram buckets. All computations are deterministic:
// percentiles use linear interpolation on the sorted sample so identical
// inputs always produce identical results.
package stats

import (
	"math"
	"sort"
)

// DefaultBuckets is the histogram bucket count used when none is configured.
const DefaultBuckets = 10

// Summary holds descriptive statistics over successful latencies, in
// seconds. A Summary only exists for a non-empty sample; callers represent
// the empty case as absence, never as a zero Summary.
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Stdev  float64 `json:"stdev"`
	P90    float64 `json:"p90"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
}

// Compute derives a Summary from the given samples. The second return is
// false when samples is empty, in which case the Summary is meaningless.
// The input slice is not modified.
func Compute(samples []float64) (Summary, bool) {
	n := len(samples)
	if n == 0 {
		return Summary{}, false
	}

	sorted := make([]float64, n)
	copy(sorted, samples)
	sort.Float64s(sorted)

	return Summary{
		Count:  n,
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   mean(sorted),
		Median: median(sorted),
		Stdev:  sampleStdev(sorted),
		P90:    Percentile(sorted, 90),
		P95:    Percentile(sorted, 95),
		P99:    Percentile(sorted, 99),
	}, true
}

// Percentile computes the p-th percentile of a sorted sample using linear
// interpolation: rank r = p/100 * (n-1), result interpolated between the
// neighboring order statistics. Matches numpy's default method.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	r := p / 100 * float64(n-1)
	lo := int(math.Floor(r))
	hi := int(math.Ceil(r))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := r - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// sampleStdev is the n-1 standard deviation. A single sample has no
// dispersion estimate; 0 is reported by convention.
func sampleStdev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
