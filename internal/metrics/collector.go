// Package metrics provides a thread-safe live collector for in-flight
// benchmark progress. The final report's statistics come from
// internal/stats, which is exact; this collector trades exactness for
// cheap concurrent snapshots (HdrHistogram quantiles) consumed by the
// progress line, the dashboard, and the REST job status.
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/llmpulse/llmpulse/internal/bench"
)

// Collector accumulates per-request outcomes as the benchmark runs.
// It implements bench.Observer.
type Collector struct {
	mu             sync.Mutex
	hist           *hdrhistogram.Histogram
	total          int
	successes      int64
	failures       int64
	attempts       int64
	minLatency     time.Duration
	maxLatency     time.Duration
	sumLatency     time.Duration
	failuresByKind map[bench.FailureKind]int64
	lastSample     string
	start          time.Time
}

// Snapshot is a point-in-time view of collector state.
type Snapshot struct {
	Total     int   `json:"total"`
	Completed int64 `json:"completed"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
	Attempts  int64 `json:"attempts"`

	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`

	ElapsedMs float64          `json:"elapsed_ms"`
	Failed    map[string]int64 `json:"failures_by_kind,omitempty"`
	Sample    string           `json:"last_sample,omitempty"`
}

// NewCollector creates a collector for a benchmark of total logical
// requests.
func NewCollector(total int) *Collector {
	// Track latencies from 1µs up to 10 minutes with 3 significant figures;
	// model endpoints routinely take tens of seconds.
	h := hdrhistogram.New(1, 600_000_000, 3)
	return &Collector{
		hist:           h,
		total:          total,
		failuresByKind: make(map[bench.FailureKind]int64),
		start:          time.Now(),
	}
}

// Start marks the benchmark start time. Call just before the first request
// so elapsed time excludes setup.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// Observe records one completed logical request.
func (c *Collector) Observe(o bench.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attempts += int64(o.Attempts)

	if o.Status != bench.StatusSuccess {
		c.failures++
		c.failuresByKind[o.Failure]++
		return
	}

	c.successes++
	if o.Sample != "" {
		c.lastSample = o.Sample
	}

	latency := o.Latency
	us := latency.Microseconds()
	if us < c.hist.LowestTrackableValue() {
		us = c.hist.LowestTrackableValue()
	}
	if us > c.hist.HighestTrackableValue() {
		us = c.hist.HighestTrackableValue()
	}
	_ = c.hist.RecordValue(us)

	c.sumLatency += latency
	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}
}

// Snapshot returns the current aggregated view.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Total:     c.total,
		Completed: c.successes + c.failures,
		Successes: c.successes,
		Failures:  c.failures,
		Attempts:  c.attempts,
		ElapsedMs: float64(time.Since(c.start)) / float64(time.Millisecond),
		Sample:    c.lastSample,
	}

	if c.successes > 0 {
		snap.MinLatencyMs = float64(c.minLatency) / float64(time.Millisecond)
		snap.MaxLatencyMs = float64(c.maxLatency) / float64(time.Millisecond)
		snap.MeanLatencyMs = float64(c.sumLatency) / float64(c.successes) / float64(time.Millisecond)
	}
	if c.hist.TotalCount() > 0 {
		snap.P50LatencyMs = float64(c.hist.ValueAtQuantile(50)) / 1000
		snap.P90LatencyMs = float64(c.hist.ValueAtQuantile(90)) / 1000
		snap.P99LatencyMs = float64(c.hist.ValueAtQuantile(99)) / 1000
	}

	if len(c.failuresByKind) > 0 {
		snap.Failed = make(map[string]int64, len(c.failuresByKind))
		for kind, count := range c.failuresByKind {
			snap.Failed[string(kind)] = count
		}
	}
	return snap
}
