// Package output renders benchmark reports as text or JSON and streams
// single-line progress updates while a run is in flight.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/llmpulse/llmpulse/internal/bench"
	"github.com/llmpulse/llmpulse/internal/stats"
)

// Report is the canonical result document for one benchmark run. The same
// shape is rendered to the terminal, written to disk and returned by the API.
type Report struct {
	GeneratedAt    time.Time       `json:"generated_at"`
	Endpoint       string          `json:"endpoint"`
	Model          string          `json:"model"`
	Requests       int             `json:"requests"`
	Successes      int             `json:"successes"`
	Failures       int             `json:"failures"`
	FailuresByKind map[string]int  `json:"failures_by_kind,omitempty"`
	Stats          *stats.Summary  `json:"stats,omitempty"`
	Histogram      []stats.Bucket  `json:"histogram,omitempty"`
	Outcomes       []bench.Outcome `json:"results"`
}

// BuildReport assembles a Report from a finished run.
func BuildReport(endpoint, model string, result bench.Result) Report {
	report := Report{
		GeneratedAt: time.Now().UTC(),
		Endpoint:    endpoint,
		Model:       model,
		Requests:    len(result.Outcomes),
		Stats:       result.Summary,
		Histogram:   result.Buckets,
		Outcomes:    result.Outcomes,
	}
	for _, o := range result.Outcomes {
		if o.Status == bench.StatusSuccess {
			report.Successes++
			continue
		}
		report.Failures++
		if o.Failure != "" {
			if report.FailuresByKind == nil {
				report.FailuresByKind = make(map[string]int)
			}
			report.FailuresByKind[string(o.Failure)]++
		}
	}
	return report
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, report Report) {
	fmt.Fprintln(w, "\n--- LLM Latency Benchmark ---")
	fmt.Fprintf(w, "Endpoint:          %s\n", report.Endpoint)
	fmt.Fprintf(w, "Model:             %s\n", report.Model)
	fmt.Fprintf(w, "Total Requests:    %d\n", report.Requests)
	fmt.Fprintf(w, "Successful:        %d\n", report.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", report.Failures)
	if len(report.FailuresByKind) > 0 {
		kinds := make([]string, 0, len(report.FailuresByKind))
		for kind := range report.FailuresByKind {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(w, "  %-16s %d\n", kind+":", report.FailuresByKind[kind])
		}
	}

	if report.Stats == nil {
		fmt.Fprintln(w, "\nNo successful requests; latency statistics unavailable.")
		return
	}

	s := report.Stats
	fmt.Fprintln(w, "\nLatency (seconds):")
	fmt.Fprintf(w, "  Min:             %.4f\n", s.Min)
	fmt.Fprintf(w, "  Max:             %.4f\n", s.Max)
	fmt.Fprintf(w, "  Mean:            %.4f\n", s.Mean)
	fmt.Fprintf(w, "  Median:          %.4f\n", s.Median)
	fmt.Fprintf(w, "  Stdev:           %.4f\n", s.Stdev)
	fmt.Fprintf(w, "  P90:             %.4f\n", s.P90)
	fmt.Fprintf(w, "  P95:             %.4f\n", s.P95)
	fmt.Fprintf(w, "  P99:             %.4f\n", s.P99)

	fmt.Fprintln(w, "\nLatency Distribution:")
	fmt.Fprintln(w, stats.RenderHistogram(report.Histogram))
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
