package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/llmpulse/llmpulse/internal/tracing"
)

// Config holds every knob for a benchmark run or an API server instance.
type Config struct {
	Endpoint        string         `mapstructure:"endpoint"`
	APIKey          string         `mapstructure:"api_key"`
	Model           string         `mapstructure:"model"`
	Prompt          string         `mapstructure:"prompt"`
	Requests        int            `mapstructure:"requests"`
	Timeout         time.Duration  `mapstructure:"timeout"`
	MaxRetries      int            `mapstructure:"max_retries"`
	RetryDelay      time.Duration  `mapstructure:"retry_delay"`
	RequestDelay    time.Duration  `mapstructure:"request_delay"`
	MaxTokens       int            `mapstructure:"max_tokens"`
	Temperature     float64        `mapstructure:"temperature"`
	RandomizePrompt bool           `mapstructure:"randomize_prompt"`
	Buckets         int            `mapstructure:"buckets"`
	Insecure        bool           `mapstructure:"insecure"`
	ForceHTTP       bool           `mapstructure:"force_http"`
	JSONOutput      bool           `mapstructure:"json_output"`
	Dashboard       bool           `mapstructure:"dashboard"`
	LogErrors       bool           `mapstructure:"log_errors"`
	LogLevel        string         `mapstructure:"log_level"`
	OutputFile      string         `mapstructure:"output_file"`
	Serve           bool           `mapstructure:"serve"`
	Listen          string         `mapstructure:"listen"`
	ConfigFile      string         `mapstructure:"-"`
	Server          ServerConfig   `mapstructure:"server"`
	Tracing         tracing.Config `mapstructure:"tracing"`
}

// ServerConfig configures the optional REST API front-end.
type ServerConfig struct {
	Username  string  `mapstructure:"username"`
	Password  string  `mapstructure:"password"`
	RateLimit float64 `mapstructure:"rate_limit"` // job submissions per second
	Burst     int     `mapstructure:"burst"`
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if !c.Serve {
		if strings.TrimSpace(c.Endpoint) == "" {
			issues = append(issues, "endpoint is required (flag --endpoint or LLMPULSE_ENDPOINT)")
		}
		if strings.TrimSpace(c.Model) == "" {
			issues = append(issues, "model is required")
		}
	}

	if c.Requests < 1 {
		issues = append(issues, "requests must be >= 1")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.MaxRetries < 0 {
		issues = append(issues, "max-retries must be >= 0")
	}
	if c.RetryDelay < 0 {
		issues = append(issues, "retry-delay must be >= 0")
	}
	if c.RequestDelay < 0 {
		issues = append(issues, "request-delay must be >= 0")
	}
	if c.Buckets < 1 {
		issues = append(issues, "buckets must be >= 1")
	}
	if c.MaxTokens < 1 {
		issues = append(issues, "max-tokens must be >= 1")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		issues = append(issues, "temperature must be between 0 and 2")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}
	if c.Serve && strings.TrimSpace(c.Listen) == "" {
		issues = append(issues, "listen address is required in serve mode")
	}
	if c.Server.RateLimit < 0 {
		issues = append(issues, "server rate_limit must be >= 0")
	}
	if c.Server.Burst < 0 {
		issues = append(issues, "server burst must be >= 0")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
