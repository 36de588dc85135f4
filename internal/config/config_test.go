package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/llmpulse/llmpulse/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LLMPULSE_ENDPOINT",
		"LLMPULSE_API_KEY",
		"LLMPULSE_MODEL",
		"LLMPULSE_SERVER_USERNAME",
		"LLMPULSE_SERVER_PASSWORD",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	loader := config.NewLoader()

	cfg, err := loader.Load([]string{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Endpoint != "" {
		t.Errorf("Endpoint = %q, want empty", cfg.Endpoint)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", cfg.Model)
	}
	if cfg.Prompt != "Tell me a short joke" {
		t.Errorf("Prompt = %q, want default joke prompt", cfg.Prompt)
	}
	if cfg.Requests != 10 {
		t.Errorf("Requests = %d, want 10", cfg.Requests)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RetryDelay != time.Second {
		t.Errorf("RetryDelay = %s, want 1s", cfg.RetryDelay)
	}
	if cfg.RequestDelay != 2*time.Second {
		t.Errorf("RequestDelay = %s, want 2s", cfg.RequestDelay)
	}
	if cfg.MaxTokens != 150 {
		t.Errorf("MaxTokens = %d, want 150", cfg.MaxTokens)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.Temperature)
	}
	if cfg.Buckets != 10 {
		t.Errorf("Buckets = %d, want 10", cfg.Buckets)
	}
	if cfg.JSONOutput {
		t.Error("JSONOutput = true, want false")
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want :8080", cfg.Listen)
	}
	if cfg.Server.Username != "admin" {
		t.Errorf("Server.Username = %q, want admin", cfg.Server.Username)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"endpoint": "https://llm.example.com",
		"api_key": "sk-file",
		"model": "llama-3.1-8b",
		"requests": 25,
		"timeout": "45s",
		"max_retries": 5,
		"retry_delay": "500ms",
		"request_delay": "0s",
		"randomize_prompt": true,
		"json_output": true
	}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path, "--requests", "50"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Endpoint != "https://llm.example.com" {
		t.Errorf("Endpoint = %q, want https://llm.example.com", cfg.Endpoint)
	}
	if cfg.APIKey != "sk-file" {
		t.Errorf("APIKey = %q, want sk-file", cfg.APIKey)
	}
	if cfg.Model != "llama-3.1-8b" {
		t.Errorf("Model = %q, want llama-3.1-8b", cfg.Model)
	}
	if cfg.Requests != 50 {
		t.Errorf("Requests = %d, want 50 (flag overrides file)", cfg.Requests)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %s, want 45s", cfg.Timeout)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 500*time.Millisecond {
		t.Errorf("RetryDelay = %s, want 500ms", cfg.RetryDelay)
	}
	if cfg.RequestDelay != 0 {
		t.Errorf("RequestDelay = %s, want 0", cfg.RequestDelay)
	}
	if !cfg.RandomizePrompt {
		t.Error("RandomizePrompt = false, want true")
	}
	if !cfg.JSONOutput {
		t.Error("JSONOutput = false, want true")
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content, err := yaml.Marshal(map[string]interface{}{
		"endpoint": "https://service.example.com",
		"model":    "mistral-7b",
		"prompt":   "Summarize the news",
		"requests": 4,
		"buckets":  20,
		"server": map[string]interface{}{
			"username":   "ops",
			"password":   "hunter2",
			"rate_limit": 2.5,
			"burst":      10,
		},
		"tracing": map[string]interface{}{
			"enabled":     true,
			"endpoint":    "collector:4317",
			"sample_rate": 0.25,
		},
	})
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Endpoint != "https://service.example.com" {
		t.Errorf("Endpoint = %q, want https://service.example.com", cfg.Endpoint)
	}
	if cfg.Model != "mistral-7b" {
		t.Errorf("Model = %q, want mistral-7b", cfg.Model)
	}
	if cfg.Prompt != "Summarize the news" {
		t.Errorf("Prompt = %q, want Summarize the news", cfg.Prompt)
	}
	if cfg.Requests != 4 {
		t.Errorf("Requests = %d, want 4", cfg.Requests)
	}
	if cfg.Buckets != 20 {
		t.Errorf("Buckets = %d, want 20", cfg.Buckets)
	}
	if cfg.Server.Username != "ops" || cfg.Server.Password != "hunter2" {
		t.Errorf("Server credentials = %q/%q, want ops/hunter2", cfg.Server.Username, cfg.Server.Password)
	}
	if cfg.Server.RateLimit != 2.5 {
		t.Errorf("Server.RateLimit = %v, want 2.5", cfg.Server.RateLimit)
	}
	if cfg.Server.Burst != 10 {
		t.Errorf("Server.Burst = %d, want 10", cfg.Server.Burst)
	}
	if !cfg.Tracing.Enabled {
		t.Error("Tracing.Enabled = false, want true")
	}
	if cfg.Tracing.Endpoint != "collector:4317" {
		t.Errorf("Tracing.Endpoint = %q, want collector:4317", cfg.Tracing.Endpoint)
	}
	if cfg.Tracing.SampleRate != 0.25 {
		t.Errorf("Tracing.SampleRate = %v, want 0.25", cfg.Tracing.SampleRate)
	}
}

func TestLoadEnvFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLMPULSE_ENDPOINT", "https://env.example.com")
	t.Setenv("LLMPULSE_API_KEY", "sk-env")
	t.Setenv("LLMPULSE_MODEL", "env-model")

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Endpoint != "https://env.example.com" {
		t.Errorf("Endpoint = %q, want env value", cfg.Endpoint)
	}
	if cfg.APIKey != "sk-env" {
		t.Errorf("APIKey = %q, want sk-env", cfg.APIKey)
	}
	if cfg.Model != "env-model" {
		t.Errorf("Model = %q, want env-model", cfg.Model)
	}
}

func TestFlagBeatsEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLMPULSE_ENDPOINT", "https://env.example.com")

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--endpoint", "https://flag.example.com"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Endpoint != "https://flag.example.com" {
		t.Errorf("Endpoint = %q, want flag value", cfg.Endpoint)
	}
}

func TestFileBeatsEnvForModel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLMPULSE_MODEL", "env-model")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"model":"file-model"}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Model != "file-model" {
		t.Errorf("Model = %q, want file-model", cfg.Model)
	}
}

func TestLoadHelp(t *testing.T) {
	loader := config.NewLoader()
	_, err := loader.Load([]string{"--help"})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Errorf("Load(--help) error = %v, want ErrHelpRequested", err)
	}
}

func TestValidateDefaults(t *testing.T) {
	clearEnv(t)
	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--endpoint", "https://llm.example.com"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidateCollectsIssues(t *testing.T) {
	cfg := config.Config{
		Requests:    0,
		Timeout:     -time.Second,
		MaxRetries:  -1,
		Buckets:     0,
		MaxTokens:   0,
		Temperature: 3,
		Dashboard:   true,
		JSONOutput:  true,
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error type = %T, want ValidationError", err)
	}

	issues := verr.Issues()
	for _, want := range []string{
		"endpoint is required",
		"requests must be >= 1",
		"timeout must be >= 0",
		"max-retries must be >= 0",
		"buckets must be >= 1",
		"max-tokens must be >= 1",
		"temperature must be between 0 and 2",
		"dashboard and json-output are mutually exclusive",
	} {
		found := false
		for _, issue := range issues {
			if strings.Contains(issue, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Validate() issues missing %q; got %v", want, issues)
		}
	}
}

func TestValidateServeMode(t *testing.T) {
	cfg := config.Config{
		Serve:       true,
		Requests:    10,
		Buckets:     10,
		MaxTokens:   150,
		Temperature: 0.7,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty listen address in serve mode")
	}

	cfg.Listen = ":9090"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil (endpoint not required in serve mode)", err)
	}
}
