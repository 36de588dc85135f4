package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files, environment variables and
// command-line arguments. Precedence: flags > config file > environment >
// built-in defaults.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := defaultConfig()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	applyEnvFallbacks(cfg, settings)

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Model:        "gpt-4o",
		Prompt:       "Tell me a short joke",
		Requests:     10,
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryDelay:   time.Second,
		RequestDelay: 2 * time.Second,
		MaxTokens:    150,
		Temperature:  0.7,
		Buckets:      10,
		LogLevel:     "info",
		Listen:       ":8080",
		Server: ServerConfig{
			Username:  "admin",
			Password:  "password",
			RateLimit: 1,
			Burst:     5,
		},
		Tracing: tracingDefaults(),
	}
}

// applyEnvFallbacks fills credentials and target details from the process
// environment when neither the config file nor a flag supplied them.
func applyEnvFallbacks(cfg *Config, settings map[string]interface{}) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = os.Getenv("LLMPULSE_ENDPOINT")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		cfg.APIKey = os.Getenv("LLMPULSE_API_KEY")
	}
	if _, fromFile := lookupSetting(settings, "model"); !fromFile {
		if env := os.Getenv("LLMPULSE_MODEL"); env != "" {
			cfg.Model = env
		}
	}
	if env := os.Getenv("LLMPULSE_SERVER_USERNAME"); env != "" {
		cfg.Server.Username = env
	}
	if env := os.Getenv("LLMPULSE_SERVER_PASSWORD"); env != "" {
		cfg.Server.Password = env
	}
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "endpoint", "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		cfg.Endpoint = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "apikey", "api_key", "api-key"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("api_key: %w", err)
		}
		cfg.APIKey = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "model"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("model: %w", err)
		}
		if val != "" {
			cfg.Model = val
		}
	}

	if raw, ok := lookupSetting(settings, "prompt"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
		if val != "" {
			cfg.Prompt = val
		}
	}

	if raw, ok := lookupSetting(settings, "requests", "num_requests", "num-requests"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("requests: %w", err)
		}
		cfg.Requests = val
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "maxretries", "max_retries", "max-retries"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("max_retries: %w", err)
		}
		cfg.MaxRetries = val
	}

	if raw, ok := lookupSetting(settings, "retrydelay", "retry_delay", "retry-delay"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("retry_delay: %w", err)
		}
		cfg.RetryDelay = dur
	}

	if raw, ok := lookupSetting(settings, "requestdelay", "request_delay", "request-delay"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("request_delay: %w", err)
		}
		cfg.RequestDelay = dur
	}

	if raw, ok := lookupSetting(settings, "maxtokens", "max_tokens", "max-tokens"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("max_tokens: %w", err)
		}
		cfg.MaxTokens = val
	}

	if raw, ok := lookupSetting(settings, "temperature"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("temperature: %w", err)
		}
		cfg.Temperature = val
	}

	if raw, ok := lookupSetting(settings, "randomizeprompt", "randomize_prompt", "randomize-prompt"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("randomize_prompt: %w", err)
		}
		cfg.RandomizePrompt = val
	}

	if raw, ok := lookupSetting(settings, "buckets"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("buckets: %w", err)
		}
		cfg.Buckets = val
	}

	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		cfg.Insecure = val
	}

	if raw, ok := lookupSetting(settings, "forcehttp", "force_http", "force-http"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("force_http: %w", err)
		}
		cfg.ForceHTTP = val
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "logerrors", "log_errors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logErrors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "loglevel", "log_level", "log-level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("logLevel: %w", err)
		}
		if val != "" {
			cfg.LogLevel = val
		}
	}

	if raw, ok := lookupSetting(settings, "outputfile", "output_file", "output-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("outputFile: %w", err)
		}
		cfg.OutputFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "serve"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		cfg.Serve = val
	}

	if raw, ok := lookupSetting(settings, "listen"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		if strings.TrimSpace(val) != "" {
			cfg.Listen = strings.TrimSpace(val)
		}
	}

	if raw, ok := lookupSetting(settings, "server"); ok {
		server, err := parseServer(raw, cfg.Server)
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		cfg.Server = server
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracingCfg, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracingCfg
	}

	return nil
}

func parseServer(value interface{}, base ServerConfig) (ServerConfig, error) {
	if value == nil {
		return base, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return ServerConfig{}, err
	}
	server := base
	if raw, ok := lookupSetting(entry, "username"); ok {
		val, err := asString(raw)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("username: %w", err)
		}
		server.Username = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "password"); ok {
		val, err := asString(raw)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("password: %w", err)
		}
		server.Password = val
	}
	if raw, ok := lookupSetting(entry, "ratelimit", "rate_limit", "rate-limit"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("rate_limit: %w", err)
		}
		server.RateLimit = val
	}
	if raw, ok := lookupSetting(entry, "burst"); ok {
		val, err := asInt(raw)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("burst: %w", err)
		}
		server.Burst = val
	}
	return server, nil
}
