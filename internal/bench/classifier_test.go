package bench_test

import (
	"errors"
	"testing"
	"time"

	"github.com/llmpulse/llmpulse/internal/bench"
)

func failure(kind bench.FailureKind) error {
	return &bench.Failure{Kind: kind, Message: "boom"}
}

func TestClassifierNeverRetriesAuthentication(t *testing.T) {
	c := bench.DefaultClassifier{MaxRetries: 5, BaseDelay: time.Second}
	for attempt := 1; attempt <= 3; attempt++ {
		d := c.Classify(failure(bench.FailureAuthentication), attempt)
		if d.Retry {
			t.Errorf("attempt %d: authentication failure must abort", attempt)
		}
	}
}

func TestClassifierNeverRetriesMalformed(t *testing.T) {
	c := bench.DefaultClassifier{MaxRetries: 5, BaseDelay: time.Second}
	if d := c.Classify(failure(bench.FailureMalformed), 1); d.Retry {
		t.Error("malformed response must abort immediately")
	}
}

func TestClassifierExponentialBackoff(t *testing.T) {
	c := bench.DefaultClassifier{MaxRetries: 10, BaseDelay: 100 * time.Millisecond}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}
	for _, tc := range cases {
		d := c.Classify(failure(bench.FailureTimeout), tc.attempt)
		if !d.Retry {
			t.Fatalf("attempt %d: expected retry", tc.attempt)
		}
		if d.Wait != tc.want {
			t.Errorf("attempt %d: expected wait %s, got %s", tc.attempt, tc.want, d.Wait)
		}
	}
}

func TestClassifierRetryableKinds(t *testing.T) {
	c := bench.DefaultClassifier{MaxRetries: 3, BaseDelay: time.Millisecond}
	kinds := []bench.FailureKind{
		bench.FailureConnection,
		bench.FailureTimeout,
		bench.FailureRateLimit,
		bench.FailureServerError,
		bench.FailureUnknown,
	}
	for _, kind := range kinds {
		if d := c.Classify(failure(kind), 1); !d.Retry {
			t.Errorf("kind %s: expected retry on first attempt", kind)
		}
	}
}

func TestClassifierExhaustsRetryBudget(t *testing.T) {
	c := bench.DefaultClassifier{MaxRetries: 2, BaseDelay: time.Millisecond}
	if d := c.Classify(failure(bench.FailureServerError), 2); !d.Retry {
		t.Error("expected retry while attempts remain")
	}
	if d := c.Classify(failure(bench.FailureServerError), 3); d.Retry {
		t.Error("expected abort once retries are exhausted")
	}
}

func TestClassifierDeterministic(t *testing.T) {
	c := bench.DefaultClassifier{MaxRetries: 3, BaseDelay: 50 * time.Millisecond}
	err := failure(bench.FailureRateLimit)
	first := c.Classify(err, 2)
	second := c.Classify(err, 2)
	if first != second {
		t.Errorf("expected identical decisions, got %+v and %+v", first, second)
	}
}

func TestKindOf(t *testing.T) {
	if kind := bench.KindOf(failure(bench.FailureRateLimit)); kind != bench.FailureRateLimit {
		t.Errorf("expected rate_limit, got %s", kind)
	}
	if kind := bench.KindOf(errors.New("mystery")); kind != bench.FailureUnknown {
		t.Errorf("expected unknown, got %s", kind)
	}
	if kind := bench.KindOf(nil); kind != "" {
		t.Errorf("expected empty kind for nil error, got %s", kind)
	}
}
