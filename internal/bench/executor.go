package bench

import (
	"context"
	"time"
)

// Status is the terminal state of a logical request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Outcome is the terminal result of one logical request after all retries.
type Outcome struct {
	Sequence       int           `json:"sequence"`
	Status         Status        `json:"status"`
	Latency        time.Duration `json:"-"`
	LatencySeconds float64       `json:"latency_seconds,omitempty"`
	Attempts       int           `json:"attempts"`
	Failure        FailureKind   `json:"failure,omitempty"`
	Sample         string        `json:"-"`
}

// SleepFunc blocks for the given duration or until the context is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Executor runs one logical request to completion, applying the
// classifier's retry policy between attempts.
type Executor struct {
	Sender     Sender
	Classifier Classifier
	Sleep      SleepFunc // nil means Sleep
	// AttemptLimit caps total attempts including the first; when 0 the
	// cap is derived from DefaultClassifier.MaxRetries+1, falling back
	// to a single attempt for custom classifiers.
	AttemptLimit int
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

func (e *Executor) attemptLimit() int {
	if e.AttemptLimit > 0 {
		return e.AttemptLimit
	}
	if c, ok := e.Classifier.(DefaultClassifier); ok {
		return c.MaxRetries + 1
	}
	return 1
}

// Execute runs logical request seq (1-based) and returns exactly one
// Outcome. The reported latency covers only the successful attempt, never
// cumulative retry time. The loop is an explicit state machine:
// Attempting, then Success, RetryWait+Attempting, or Aborted.
func (e *Executor) Execute(ctx context.Context, seq int, prompt string) Outcome {
	limit := e.attemptLimit()
	attempt := 0
	var lastErr error

	for {
		attempt++
		res, err := e.Sender.Send(ctx, prompt)
		if err == nil {
			return Outcome{
				Sequence:       seq,
				Status:         StatusSuccess,
				Latency:        res.Latency,
				LatencySeconds: res.Latency.Seconds(),
				Attempts:       attempt,
				Sample:         res.Sample,
			}
		}
		lastErr = err

		if attempt >= limit {
			break
		}
		decision := e.Classifier.Classify(err, attempt)
		if !decision.Retry {
			break
		}
		if sleepErr := e.sleep(ctx, decision.Wait); sleepErr != nil {
			break
		}
	}

	return Outcome{
		Sequence: seq,
		Status:   StatusFailed,
		Attempts: attempt,
		Failure:  KindOf(lastErr),
	}
}
