// SPDX-License-Identifier: MIT

// Package config loads the application configuration with the precedence
// ENV > YAML file > defaults, and validates it before the daemon starts
// serving. The resulting AppConfig is treated as immutable; the only
// runtime-mutable surface is the reply catalogue, which is hot reloaded
// through Watcher.
package config

import (
	"fmt"
	"time"
)

// StoreConfig selects the session store backend.
type StoreConfig struct {
	// Backend is one of "memory", "redis", "sqlite", "badger".
	Backend string
	// Path is the database file (sqlite) or directory (badger).
	Path string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// SlotsConfig selects the appointment availability backend.
type SlotsConfig struct {
	// Backend is "memory" (seeded demo calendar) or "http" (practice
	// management system).
	Backend string
	// BaseURL of the availability service when Backend is "http".
	BaseURL string
	// Timeout per availability call.
	Timeout time.Duration
	// DemoDays is how many days the memory backend seeds.
	DemoDays int
}

// LLMConfig configures the optional text-generation collaborator used by
// the intent assist and the conversational overlay.
type LLMConfig struct {
	// Provider is "none" or "gemini".
	Provider string
	APIKey   string
	Model    string
	Timeout  time.Duration
	// MaxPerSec rate-limits completion calls.
	MaxPerSec float64
	// AssistMinConfidence is the acceptance floor for assist
	// classifications.
	AssistMinConfidence float64
}

// OverlayConfig gates the conversational opening overlay.
type OverlayConfig struct {
	Enabled       bool
	CanaryPercent int
	MinConfidence float64
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled      bool
	ExporterType string // "grpc" or "http"
	Endpoint     string
	SamplingRate float64
	Environment  string
}

// AppConfig is the complete, validated daemon configuration.
type AppConfig struct {
	ListenAddr string
	// MetricsAddr starts a separate metrics listener when set; otherwise
	// /metrics is served on the API listener.
	MetricsAddr string
	LogLevel    string
	Version     string

	// CataloguePath is the reply-template catalogue YAML. Empty means the
	// built-in French catalogue, without hot reload.
	CataloguePath string
	// FAQPath is the FAQ entries YAML. Empty means the built-in entries.
	FAQPath string

	// LockWait bounds how long a duplicate delivery waits for the
	// in-flight turn of the same conversation.
	LockWait time.Duration
	// RateLimitPerMinute caps turn requests per client IP.
	RateLimitPerMinute int

	Store     StoreConfig
	Slots     SlotsConfig
	LLM       LLMConfig
	Overlay   OverlayConfig
	Telemetry TelemetryConfig
}

// Defaults returns the baseline configuration the file and environment
// layers override.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr:         ":8080",
		LogLevel:           "info",
		LockWait:           300 * time.Millisecond,
		RateLimitPerMinute: 120,
		Store: StoreConfig{
			Backend: "memory",
		},
		Slots: SlotsConfig{
			Backend:  "memory",
			Timeout:  5 * time.Second,
			DemoDays: 14,
		},
		LLM: LLMConfig{
			Provider:            "none",
			Model:               "gemini-2.0-flash",
			Timeout:             3 * time.Second,
			MaxPerSec:           5,
			AssistMinConfidence: 0.70,
		},
		Overlay: OverlayConfig{
			Enabled:       false,
			CanaryPercent: 5,
			MinConfidence: 0.75,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ExporterType: "http",
			Endpoint:     "localhost:4318",
			SamplingRate: 0.1,
			Environment:  "development",
		},
	}
}

// Validate checks the configuration and fails fast on the first problem
// so the daemon never starts half-wired.
func Validate(cfg AppConfig) error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("config: listen address must not be empty")
	}
	if cfg.RateLimitPerMinute <= 0 {
		return fmt.Errorf("config: rate limit must be positive, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.LockWait <= 0 {
		return fmt.Errorf("config: lock wait must be positive, got %s", cfg.LockWait)
	}

	switch cfg.Store.Backend {
	case "memory":
	case "redis":
		if cfg.Store.RedisAddr == "" {
			return fmt.Errorf("config: redis store requires an address")
		}
	case "sqlite", "badger":
		if cfg.Store.Path == "" {
			return fmt.Errorf("config: %s store requires a path", cfg.Store.Backend)
		}
	default:
		return fmt.Errorf("config: unknown store backend %q (use memory, redis, sqlite or badger)", cfg.Store.Backend)
	}

	switch cfg.Slots.Backend {
	case "memory":
		if cfg.Slots.DemoDays <= 0 {
			return fmt.Errorf("config: demo calendar needs at least one day, got %d", cfg.Slots.DemoDays)
		}
	case "http":
		if cfg.Slots.BaseURL == "" {
			return fmt.Errorf("config: http slots backend requires a base URL")
		}
	default:
		return fmt.Errorf("config: unknown slots backend %q (use memory or http)", cfg.Slots.Backend)
	}

	switch cfg.LLM.Provider {
	case "none":
	case "gemini":
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("config: gemini provider requires an api key")
		}
	default:
		return fmt.Errorf("config: unknown llm provider %q (use none or gemini)", cfg.LLM.Provider)
	}
	if cfg.LLM.AssistMinConfidence < 0 || cfg.LLM.AssistMinConfidence > 1 {
		return fmt.Errorf("config: assist min confidence must be in [0,1], got %g", cfg.LLM.AssistMinConfidence)
	}

	if cfg.Overlay.CanaryPercent < 0 || cfg.Overlay.CanaryPercent > 100 {
		return fmt.Errorf("config: overlay canary percent must be in [0,100], got %d", cfg.Overlay.CanaryPercent)
	}
	if cfg.Overlay.MinConfidence < 0 || cfg.Overlay.MinConfidence > 1 {
		return fmt.Errorf("config: overlay min confidence must be in [0,1], got %g", cfg.Overlay.MinConfidence)
	}
	if cfg.Overlay.Enabled && cfg.LLM.Provider == "none" {
		return fmt.Errorf("config: overlay is enabled but no llm provider is configured")
	}

	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.ExporterType {
		case "grpc", "http":
		default:
			return fmt.Errorf("config: unsupported trace exporter %q (use grpc or http)", cfg.Telemetry.ExporterType)
		}
		if cfg.Telemetry.Endpoint == "" {
			return fmt.Errorf("config: telemetry is enabled but no endpoint is set")
		}
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		return fmt.Errorf("config: trace sampling rate must be in [0,1], got %g", cfg.Telemetry.SamplingRate)
	}

	return nil
}
