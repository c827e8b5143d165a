// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
)

// Loader builds an AppConfig with the precedence ENV > file > defaults.
type Loader struct {
	path    string
	version string
}

// NewLoader creates a loader. An empty path skips the file layer.
func NewLoader(path, version string) *Loader {
	return &Loader{path: path, version: version}
}

// Load assembles and validates the configuration.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.path != "" {
		if _, err := os.Stat(l.path); err != nil {
			return AppConfig{}, fmt.Errorf("config file %s: %w", l.path, err)
		}
		if err := mergeFile(&cfg, l.path); err != nil {
			return AppConfig{}, err
		}
	}

	mergeEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// mergeEnv applies VOXDESK_* environment variables on top of cfg. The
// current value doubles as the default, which is what gives ENV the final
// word over the file layer.
func mergeEnv(cfg *AppConfig) {
	cfg.ListenAddr = ParseString("VOXDESK_LISTEN", cfg.ListenAddr)
	cfg.MetricsAddr = ParseString("VOXDESK_METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogLevel = ParseString("VOXDESK_LOG_LEVEL", cfg.LogLevel)
	cfg.CataloguePath = ParseString("VOXDESK_CATALOGUE", cfg.CataloguePath)
	cfg.FAQPath = ParseString("VOXDESK_FAQ", cfg.FAQPath)
	cfg.LockWait = ParseDuration("VOXDESK_LOCK_WAIT", cfg.LockWait)
	cfg.RateLimitPerMinute = ParseInt("VOXDESK_RATE_LIMIT_RPM", cfg.RateLimitPerMinute)

	cfg.Store.Backend = ParseString("VOXDESK_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = ParseString("VOXDESK_STORE_PATH", cfg.Store.Path)
	cfg.Store.RedisAddr = ParseString("VOXDESK_REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.RedisPassword = ParseString("VOXDESK_REDIS_PASSWORD", cfg.Store.RedisPassword)
	cfg.Store.RedisDB = ParseInt("VOXDESK_REDIS_DB", cfg.Store.RedisDB)

	cfg.Slots.Backend = ParseString("VOXDESK_SLOTS_BACKEND", cfg.Slots.Backend)
	cfg.Slots.BaseURL = ParseString("VOXDESK_SLOTS_URL", cfg.Slots.BaseURL)
	cfg.Slots.Timeout = ParseDuration("VOXDESK_SLOTS_TIMEOUT", cfg.Slots.Timeout)
	cfg.Slots.DemoDays = ParseInt("VOXDESK_SLOTS_DEMO_DAYS", cfg.Slots.DemoDays)

	cfg.LLM.Provider = ParseString("VOXDESK_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.APIKey = ParseString("VOXDESK_GEMINI_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = ParseString("VOXDESK_GEMINI_MODEL", cfg.LLM.Model)
	cfg.LLM.Timeout = ParseDuration("VOXDESK_LLM_TIMEOUT", cfg.LLM.Timeout)
	cfg.LLM.MaxPerSec = ParseFloat("VOXDESK_LLM_MAX_PER_SEC", cfg.LLM.MaxPerSec)
	cfg.LLM.AssistMinConfidence = ParseFloat("VOXDESK_ASSIST_MIN_CONFIDENCE", cfg.LLM.AssistMinConfidence)

	cfg.Overlay.Enabled = ParseBool("VOXDESK_OVERLAY_ENABLED", cfg.Overlay.Enabled)
	cfg.Overlay.CanaryPercent = ParseInt("VOXDESK_OVERLAY_CANARY_PERCENT", cfg.Overlay.CanaryPercent)
	cfg.Overlay.MinConfidence = ParseFloat("VOXDESK_OVERLAY_MIN_CONFIDENCE", cfg.Overlay.MinConfidence)

	cfg.Telemetry.Enabled = ParseBool("VOXDESK_OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = ParseString("VOXDESK_OTEL_EXPORTER", cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = ParseString("VOXDESK_OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat("VOXDESK_OTEL_SAMPLING", cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = ParseString("VOXDESK_ENV", cfg.Telemetry.Environment)
}
