package stats

import (
	"fmt"
	"math"
	"strings"
)

// barScale is the rendered width of the largest bucket's bar.
const barScale = 40

// NoDataIndicator is rendered in place of an empty histogram.
const NoDataIndicator = "No data to display"

// Bucket is one fixed-width histogram bin [Lower, Upper). The final bucket
// is closed on both ends so the maximum sample lands inside it.
type Bucket struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// BuildHistogram buckets samples into bins fixed-width buckets spanning
// [min, max]. Identical samples collapse into a single bucket. Returns nil
// for an empty sample.
func BuildHistogram(samples []float64, bins int) []Bucket {
	if len(samples) == 0 {
		return nil
	}
	if bins < 1 {
		bins = DefaultBuckets
	}

	lo, hi := samples[0], samples[0]
	for _, s := range samples[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}

	if hi == lo {
		return []Bucket{{Lower: lo, Upper: hi, Count: len(samples)}}
	}

	width := (hi - lo) / float64(bins)
	buckets := make([]Bucket, bins)
	for i := range buckets {
		buckets[i].Lower = lo + float64(i)*width
		buckets[i].Upper = lo + float64(i+1)*width
	}
	for _, s := range samples {
		idx := int((s - lo) / width)
		if idx >= bins { // the max sample sits on the top edge
			idx = bins - 1
		}
		buckets[idx].Count++
	}
	return buckets
}

// RenderHistogram formats buckets as an ASCII bar chart, one bucket per
// line, bars scaled to the largest count. Empty input yields
// NoDataIndicator instead of an empty chart.
func RenderHistogram(buckets []Bucket) string {
	if len(buckets) == 0 {
		return NoDataIndicator
	}

	maxCount := 0
	for _, b := range buckets {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}

	var sb strings.Builder
	for i, b := range buckets {
		bar := 0
		if maxCount > 0 {
			bar = int(math.Round(float64(b.Count) / float64(maxCount) * barScale))
		}
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%.4f - %.4f | %s (%d)", b.Lower, b.Upper, strings.Repeat("#", bar), b.Count)
	}
	return sb.String()
}
