package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/llmpulse/llmpulse/internal/metrics"
)

// ProgressReporter displays real-time progress updates on a single
// carriage-returned line.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and terminates the line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, FormatProgress(p.collector.Snapshot()))
		case <-p.done:
			return
		}
	}
}

// FormatProgress renders one snapshot as a single status line.
func FormatProgress(snap metrics.Snapshot) string {
	line := fmt.Sprintf("\rRequest %d/%d | ok: %d | failed: %d",
		snap.Completed, snap.Total, snap.Successes, snap.Failures)
	if snap.Successes > 0 {
		line += fmt.Sprintf(" | mean: %.0fms | p99: %.0fms", snap.MeanLatencyMs, snap.P99LatencyMs)
	}
	return line
}
