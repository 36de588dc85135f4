package llmclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/llmpulse/llmpulse/internal/bench"
	"github.com/llmpulse/llmpulse/internal/llmclient"
)

const validCompletion = `{"choices":[{"message":{"role":"assistant","content":"Why did the gopher cross the road?"}}]}`

func newClient(endpoint string) *llmclient.Client {
	return llmclient.New(llmclient.Options{
		Endpoint: endpoint,
		APIKey:   "sk-test",
		Model:    "gpt-4o",
		Timeout:  5 * time.Second,
	}, nil)
}

func TestSendSuccess(t *testing.T) {
	var captured struct {
		path    string
		auth    string
		payload map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured.payload)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, validCompletion)
	}))
	defer srv.Close()

	attempt, err := newClient(srv.URL).Send(context.Background(), "Tell me a short joke")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if attempt.Latency <= 0 {
		t.Error("expected positive latency")
	}
	if !strings.HasPrefix(attempt.Sample, "Why did the gopher") {
		t.Errorf("unexpected sample %q", attempt.Sample)
	}
	if captured.path != "/v1/chat/completions" {
		t.Errorf("expected completions path, got %q", captured.path)
	}
	if captured.auth != "Bearer sk-test" {
		t.Errorf("expected bearer auth, got %q", captured.auth)
	}
	if captured.payload["model"] != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %v", captured.payload["model"])
	}
	if captured.payload["max_tokens"] != float64(150) {
		t.Errorf("expected default max_tokens 150, got %v", captured.payload["max_tokens"])
	}
	msgs, ok := captured.payload["messages"].([]any)
	if !ok || len(msgs) != 1 {
		t.Fatalf("expected one message, got %v", captured.payload["messages"])
	}
	msg := msgs[0].(map[string]any)
	if msg["role"] != "user" || msg["content"] != "Tell me a short joke" {
		t.Errorf("unexpected message %v", msg)
	}
}

func TestSendClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		kind   bench.FailureKind
	}{
		{http.StatusUnauthorized, bench.FailureAuthentication},
		{http.StatusForbidden, bench.FailureAuthentication},
		{http.StatusRequestTimeout, bench.FailureTimeout},
		{http.StatusTooManyRequests, bench.FailureRateLimit},
		{http.StatusInternalServerError, bench.FailureServerError},
		{http.StatusServiceUnavailable, bench.FailureServerError},
		{http.StatusNotFound, bench.FailureUnknown},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			io.WriteString(w, `{"error":"nope"}`)
		}))

		_, err := newClient(srv.URL).Send(context.Background(), "hi")
		srv.Close()
		if err == nil {
			t.Errorf("status %d: expected error", tc.status)
			continue
		}
		var failure *bench.Failure
		if !errors.As(err, &failure) {
			t.Errorf("status %d: expected *bench.Failure, got %T", tc.status, err)
			continue
		}
		if failure.Kind != tc.kind {
			t.Errorf("status %d: expected kind %s, got %s", tc.status, tc.kind, failure.Kind)
		}
		if failure.StatusCode != tc.status {
			t.Errorf("status %d: expected status recorded, got %d", tc.status, failure.StatusCode)
		}
	}
}

func TestSendMalformedResponse(t *testing.T) {
	bodies := []string{
		`{"unexpected":"shape"}`,
		`{"choices":[]}`,
		`not json at all`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, body)
		}))

		_, err := newClient(srv.URL).Send(context.Background(), "hi")
		srv.Close()

		if kind := bench.KindOf(err); kind != bench.FailureMalformed {
			t.Errorf("body %q: expected malformed, got %s (err=%v)", body, kind, err)
		}
	}
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := llmclient.New(llmclient.Options{
		Endpoint: srv.URL,
		APIKey:   "sk-test",
		Model:    "gpt-4o",
		Timeout:  50 * time.Millisecond,
	}, nil)

	_, err := client.Send(context.Background(), "hi")
	if kind := bench.KindOf(err); kind != bench.FailureTimeout {
		t.Errorf("expected timeout kind, got %s (err=%v)", kind, err)
	}
}

func TestSendConnectionRefused(t *testing.T) {
	// Grab a port nobody is listening on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	_, err := newClient(endpoint).Send(context.Background(), "hi")
	if kind := bench.KindOf(err); kind != bench.FailureConnection {
		t.Errorf("expected connection kind, got %s (err=%v)", kind, err)
	}
}

func TestForceHTTPRewritesScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, validCompletion)
	}))
	defer srv.Close()

	// Pretend the operator configured https against a plain-http listener.
	endpoint := "https://" + strings.TrimPrefix(srv.URL, "http://") + "/"
	client := llmclient.New(llmclient.Options{
		Endpoint:  endpoint,
		APIKey:    "k",
		Model:     "m",
		Timeout:   5 * time.Second,
		ForceHTTP: true,
	}, nil)

	if _, err := client.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("expected rewritten endpoint to reach the server, got %v", err)
	}
}
