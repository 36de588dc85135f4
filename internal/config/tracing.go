package config

import (
	"fmt"
	"strings"

	"github.com/llmpulse/llmpulse/internal/tracing"
)

func tracingDefaults() tracing.Config {
	return tracing.Config{
		Protocol:   "grpc",
		SampleRate: 1.0,
	}
}

func parseTracing(value interface{}, base tracing.Config) (tracing.Config, error) {
	if value == nil {
		return base, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return tracing.Config{}, err
	}
	cfg := base
	if raw, ok := lookupSetting(entry, "enabled"); ok {
		val, err := asBool(raw)
		if err != nil {
			return tracing.Config{}, fmt.Errorf("enabled: %w", err)
		}
		cfg.Enabled = val
	}
	if raw, ok := lookupSetting(entry, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return tracing.Config{}, fmt.Errorf("endpoint: %w", err)
		}
		cfg.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return tracing.Config{}, fmt.Errorf("protocol: %w", err)
		}
		if strings.TrimSpace(val) != "" {
			cfg.Protocol = strings.ToLower(strings.TrimSpace(val))
		}
	}
	if raw, ok := lookupSetting(entry, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return tracing.Config{}, fmt.Errorf("service_name: %w", err)
		}
		cfg.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return tracing.Config{}, fmt.Errorf("sample_rate: %w", err)
		}
		cfg.SampleRate = val
	}
	if raw, ok := lookupSetting(entry, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return tracing.Config{}, fmt.Errorf("insecure: %w", err)
		}
		cfg.Insecure = val
	}
	if raw, ok := lookupSetting(entry, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return tracing.Config{}, fmt.Errorf("propagate: %w", err)
		}
		cfg.Propagate = val
	}
	return cfg, nil
}
