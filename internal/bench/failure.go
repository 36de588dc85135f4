package bench

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// FailureKind categorizes why a physical attempt failed.
type FailureKind string

const (
	FailureConnection     FailureKind = "connection"
	FailureTimeout        FailureKind = "timeout"
	FailureAuthentication FailureKind = "authentication"
	FailureRateLimit      FailureKind = "rate_limit"
	FailureServerError    FailureKind = "server_error"
	FailureMalformed      FailureKind = "malformed"
	FailureUnknown        FailureKind = "unknown"
)

// Failure represents a failed physical attempt with its classified kind.
type Failure struct {
	Kind       FailureKind
	StatusCode int // HTTP status when the exchange completed, 0 otherwise
	Message    string
}

func (f *Failure) Error() string {
	if f.StatusCode > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", f.Kind, f.StatusCode, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// KindOf extracts the failure kind from an attempt error.
// Errors that are not a *Failure map to FailureTimeout for context
// deadlines and FailureUnknown for everything else.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return FailureUnknown
}

// Attempt is the result of one successful physical exchange.
type Attempt struct {
	Latency time.Duration // wall-clock time of this exchange only
	Sample  string        // trimmed model response content
}

// Sender abstracts one physical chat-completion exchange. Implementations
// return a *Failure (or any error) for failed exchanges; the prompt is
// supplied per call so logical requests can carry randomized prompts that
// stay stable across their retries.
type Sender interface {
	Send(ctx context.Context, prompt string) (Attempt, error)
}
