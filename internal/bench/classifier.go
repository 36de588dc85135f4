package bench

import "time"

// Decision is the classifier's verdict on a failed attempt.
type Decision struct {
	Retry bool
	Wait  time.Duration // backoff before the next attempt; meaningful only when Retry
}

// Classifier decides whether a failed attempt should be retried and how
// long to wait first. attempt is the 1-based count of attempts made so
// far. Implementations must be deterministic so benchmark timing is
// reproducible.
type Classifier interface {
	Classify(err error, attempt int) Decision
}

// DefaultClassifier implements the stock retry policy:
//
//   - authentication failures never retry; bad credentials do not heal
//   - malformed responses never retry; the payload shape will not change
//   - connection, timeout, rate-limit, and server errors retry while
//     attempts remain, with backoff BaseDelay * 2^(attempt-1)
//   - unclassified failures are treated as transient and retried
//
// The backoff is intentionally jitter-free and uncapped: the retry budget
// itself bounds the total wait, and identical inputs must reproduce
// identical timing sequences.
type DefaultClassifier struct {
	MaxRetries int
	BaseDelay  time.Duration
}

func (c DefaultClassifier) Classify(err error, attempt int) Decision {
	switch KindOf(err) {
	case FailureAuthentication, FailureMalformed:
		return Decision{}
	}
	if attempt > c.MaxRetries {
		return Decision{}
	}
	return Decision{Retry: true, Wait: c.backoff(attempt)}
}

func (c DefaultClassifier) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return c.BaseDelay * (1 << uint(attempt-1))
}
