package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "llmpulse",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target and credentials
	flags.String("endpoint", "", "Base URL of the OpenAI-compatible endpoint (env LLMPULSE_ENDPOINT)")
	flags.String("api-key", "", "Bearer token for the endpoint (env LLMPULSE_API_KEY)")
	flags.StringP("model", "m", "gpt-4o", "Model name to benchmark (env LLMPULSE_MODEL)")

	// Benchmark shape
	flags.IntP("requests", "n", 10, "Number of sequential requests to send")
	flags.StringP("prompt", "p", "Tell me a short joke", "Prompt sent with every request")
	flags.Bool("randomize-prompt", false, "Append a random suffix to each prompt to defeat caches")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout")
	flags.Int("max-retries", 3, "Retries per request after a retryable failure")
	flags.Duration("retry-delay", time.Second, "Base backoff delay, doubled on each retry")
	flags.Duration("request-delay", 2*time.Second, "Pause between consecutive requests")
	flags.Int("max-tokens", 150, "max_tokens value sent in the completion request")
	flags.Float64("temperature", 0.7, "temperature value sent in the completion request")

	// Transport
	flags.Bool("insecure", false, "Skip TLS certificate verification")
	flags.Bool("force-http", false, "Rewrite an https endpoint to plain http")

	// Output flags
	flags.Int("buckets", 10, "Number of histogram buckets in the report")
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("dashboard", false, "Show live terminal dashboard while the benchmark runs")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	flags.StringP("output-file", "o", "", "Write the JSON report to the given file")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Server mode
	flags.Bool("serve", false, "Run the REST API server instead of a one-shot benchmark")
	flags.String("listen", ":8080", "Listen address for --serve")

	// Tracing flags
	flags.Bool("trace", false, "Enable OpenTelemetry tracing")
	flags.String("trace-endpoint", "", "OTLP collector endpoint (or OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.String("trace-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling rate between 0.0 and 1.0")
	flags.Bool("trace-insecure", false, "Disable TLS toward the OTLP collector")
	flags.Bool("trace-propagate", false, "Inject W3C trace context headers into benchmark requests")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("endpoint") {
		val, err := fs.GetString("endpoint")
		if err != nil {
			return err
		}
		cfg.Endpoint = val
	}
	if fs.Changed("api-key") {
		val, err := fs.GetString("api-key")
		if err != nil {
			return err
		}
		cfg.APIKey = val
	}
	if fs.Changed("model") {
		val, err := fs.GetString("model")
		if err != nil {
			return err
		}
		cfg.Model = val
	}
	if fs.Changed("requests") {
		val, err := fs.GetInt("requests")
		if err != nil {
			return err
		}
		cfg.Requests = val
	}
	if fs.Changed("prompt") {
		val, err := fs.GetString("prompt")
		if err != nil {
			return err
		}
		cfg.Prompt = val
	}
	if fs.Changed("randomize-prompt") {
		val, err := fs.GetBool("randomize-prompt")
		if err != nil {
			return err
		}
		cfg.RandomizePrompt = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("max-retries") {
		val, err := fs.GetInt("max-retries")
		if err != nil {
			return err
		}
		cfg.MaxRetries = val
	}
	if fs.Changed("retry-delay") {
		val, err := fs.GetDuration("retry-delay")
		if err != nil {
			return err
		}
		cfg.RetryDelay = val
	}
	if fs.Changed("request-delay") {
		val, err := fs.GetDuration("request-delay")
		if err != nil {
			return err
		}
		cfg.RequestDelay = val
	}
	if fs.Changed("max-tokens") {
		val, err := fs.GetInt("max-tokens")
		if err != nil {
			return err
		}
		cfg.MaxTokens = val
	}
	if fs.Changed("temperature") {
		val, err := fs.GetFloat64("temperature")
		if err != nil {
			return err
		}
		cfg.Temperature = val
	}
	if fs.Changed("insecure") {
		val, err := fs.GetBool("insecure")
		if err != nil {
			return err
		}
		cfg.Insecure = val
	}
	if fs.Changed("force-http") {
		val, err := fs.GetBool("force-http")
		if err != nil {
			return err
		}
		cfg.ForceHTTP = val
	}
	if fs.Changed("buckets") {
		val, err := fs.GetInt("buckets")
		if err != nil {
			return err
		}
		cfg.Buckets = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = val
	}
	if fs.Changed("output-file") {
		val, err := fs.GetString("output-file")
		if err != nil {
			return err
		}
		cfg.OutputFile = val
	}
	if fs.Changed("serve") {
		val, err := fs.GetBool("serve")
		if err != nil {
			return err
		}
		cfg.Serve = val
	}
	if fs.Changed("listen") {
		val, err := fs.GetString("listen")
		if err != nil {
			return err
		}
		cfg.Listen = val
	}
	if fs.Changed("trace") {
		val, err := fs.GetBool("trace")
		if err != nil {
			return err
		}
		cfg.Tracing.Enabled = val
	}
	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = val
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = val
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("trace-propagate") {
		val, err := fs.GetBool("trace-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = val
	}

	return nil
}
