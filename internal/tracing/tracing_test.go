package tracing_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/llmpulse/llmpulse/internal/tracing"
)

func TestInitDisabledReturnsNoopProvider(t *testing.T) {
	p, err := tracing.Init(context.Background(), tracing.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Tracer() == nil {
		t.Fatal("expected usable tracer from disabled provider")
	}
	if p.ShouldPropagate() {
		t.Error("disabled provider must not propagate")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of no-op provider: %v", err)
	}
}

func TestInitEnabledWithoutEndpointIsNoop(t *testing.T) {
	p, err := tracing.Init(context.Background(), tracing.Config{Enabled: true, Propagate: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.ShouldPropagate() {
		t.Error("propagate flag must survive the no-op path")
	}
}

func TestInitRejectsInvalidSampleRate(t *testing.T) {
	_, err := tracing.Init(context.Background(), tracing.Config{
		Enabled:    true,
		Endpoint:   "localhost:4317",
		SampleRate: 1.5,
	})
	if err == nil {
		t.Fatal("expected error for sample_rate > 1")
	}
}

func TestNilProviderIsSafe(t *testing.T) {
	var p *tracing.Provider
	if p.Tracer() == nil {
		t.Error("nil provider must return a no-op tracer")
	}
	if p.ShouldPropagate() {
		t.Error("nil provider must not propagate")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("nil provider shutdown: %v", err)
	}
}

func TestSpanLifecycle(t *testing.T) {
	p, _ := tracing.Init(context.Background(), tracing.Config{})
	ctx, span := tracing.StartAttemptSpan(context.Background(), p.Tracer(), "gpt-4o")
	if ctx == nil || span == nil {
		t.Fatal("expected context and span")
	}
	tracing.EndSpan(span, errors.New("boom"))

	_, span = tracing.StartAttemptSpan(context.Background(), p.Tracer(), "gpt-4o")
	tracing.EndSpan(span, nil)
}

func TestInjectHTTPHeadersNoPanic(t *testing.T) {
	headers := http.Header{}
	tracing.InjectHTTPHeaders(context.Background(), headers)
}
