// Package bench implements the benchmark engine: it drives a configurable
// number of strictly sequential chat-completion requests against a model
// endpoint, retries transient failures with deterministic exponential
// backoff, and reduces the successful latencies to summary statistics and
// histogram buckets.
//
// # Architecture
//
// The engine is built from three pieces:
//
//   - [Classifier] maps a failed attempt to a retry/abort decision and the
//     backoff wait before the next attempt.
//   - [Executor] runs one logical request to its terminal [Outcome],
//     consulting the classifier after every failed attempt.
//   - [Runner] issues the configured number of logical requests in order,
//     pacing them with a fixed inter-request delay, and attaches the
//     derived statistics to the final [Result].
//
// The physical exchange is abstracted behind [Sender], so the engine can be
// unit tested with scripted transports and a recording sleep function:
//
//	exec := &bench.Executor{
//		Sender:     sender,
//		Classifier: bench.DefaultClassifier{MaxRetries: 3, BaseDelay: time.Second},
//	}
//	r := bench.NewRunner(bench.Options{Requests: 10, Executor: exec})
//	result := r.Run(ctx)
//
// Exactly one request is in flight at any time. The sequential design is
// deliberate: it keeps the benchmark from tripping provider-side rate
// limits and makes per-request latency attributable.
package bench
