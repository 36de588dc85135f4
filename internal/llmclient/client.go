package llmclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/llmpulse/llmpulse/internal/bench"
	"github.com/llmpulse/llmpulse/internal/tracing"
)

const (
	completionsPath = "/v1/chat/completions"
	maxErrorBody    = 1024
	maxBodyRead     = 1 << 20
	sampleLen       = 80

	defaultMaxTokens   = 150
	defaultTemperature = 0.7
)

// Options configure the chat-completion client.
type Options struct {
	Endpoint    string // base URL, e.g. https://llm.example.com
	APIKey      string
	Model       string
	Timeout     time.Duration
	Insecure    bool // skip TLS certificate verification
	ForceHTTP   bool // rewrite an https endpoint to plain http
	MaxTokens   int
	Temperature float64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// Client sends chat-completion requests and classifies the results.
// It implements bench.Sender.
type Client struct {
	http    *http.Client
	url     string
	opts    Options
	tracing *tracing.Provider
}

// New creates a Client. The tracing provider may be nil.
func New(opts Options, tp *tracing.Provider) *Client {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}

	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if opts.ForceHTTP && strings.HasPrefix(endpoint, "https://") {
		endpoint = "http://" + strings.TrimPrefix(endpoint, "https://")
	}

	return &Client{
		http:    newHTTPClient(opts.Timeout, opts.Insecure),
		url:     endpoint + completionsPath,
		opts:    opts,
		tracing: tp,
	}
}

// Send performs one physical chat-completion exchange. The returned
// latency covers the full exchange including reading the response body.
func (c *Client) Send(ctx context.Context, prompt string) (bench.Attempt, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.opts.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return bench.Attempt{}, &bench.Failure{Kind: bench.FailureUnknown, Message: fmt.Sprintf("encode payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return bench.Attempt{}, &bench.Failure{Kind: bench.FailureConnection, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	span := noopSpan
	if c.tracing != nil {
		spanCtx, sp := tracing.StartAttemptSpan(ctx, c.tracing.Tracer(), c.opts.Model)
		if c.tracing.ShouldPropagate() {
			tracing.InjectHTTPHeaders(spanCtx, req.Header)
		}
		req = req.WithContext(spanCtx)
		span = func(err error, attrs ...attribute.KeyValue) { tracing.EndSpan(sp, err, attrs...) }
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		failure := classifyTransportError(err, c.opts.Timeout)
		span(failure)
		return bench.Attempt{}, failure
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
	latency := time.Since(start)
	if readErr != nil {
		failure := &bench.Failure{Kind: bench.FailureConnection, Message: fmt.Sprintf("read response: %v", readErr)}
		span(failure, attribute.Int("http.response.status_code", resp.StatusCode))
		return bench.Attempt{}, failure
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		failure := classifyStatus(resp.StatusCode, raw)
		span(failure, attribute.Int("http.response.status_code", resp.StatusCode))
		return bench.Attempt{}, failure
	}

	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		failure := &bench.Failure{
			Kind:       bench.FailureMalformed,
			StatusCode: resp.StatusCode,
			Message:    "response lacks choices[0].message.content: " + snippet(raw),
		}
		span(failure, attribute.Int("http.response.status_code", resp.StatusCode))
		return bench.Attempt{}, failure
	}

	span(nil,
		attribute.Int("http.response.status_code", resp.StatusCode),
		attribute.Float64("llmpulse.latency_seconds", latency.Seconds()),
	)
	return bench.Attempt{Latency: latency, Sample: sample(content.String())}, nil
}

func noopSpan(err error, attrs ...attribute.KeyValue) {}

func newHTTPClient(timeout time.Duration, insecureSkipVerify bool) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func classifyTransportError(err error, timeout time.Duration) *bench.Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return &bench.Failure{Kind: bench.FailureTimeout, Message: fmt.Sprintf("request timed out after %s", timeout)}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &bench.Failure{Kind: bench.FailureTimeout, Message: fmt.Sprintf("request timed out after %s", timeout)}
	}
	return &bench.Failure{Kind: bench.FailureConnection, Message: err.Error()}
}

func classifyStatus(status int, body []byte) *bench.Failure {
	kind := bench.FailureUnknown
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = bench.FailureAuthentication
	case status == http.StatusRequestTimeout:
		kind = bench.FailureTimeout
	case status == http.StatusTooManyRequests:
		kind = bench.FailureRateLimit
	case status >= 500:
		kind = bench.FailureServerError
	}
	return &bench.Failure{Kind: kind, StatusCode: status, Message: snippet(body)}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}

func sample(content string) string {
	content = strings.TrimSpace(content)
	if len(content) > sampleLen {
		return content[:sampleLen]
	}
	return content
}
