// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors AppConfig with pointer fields so "absent" and
// "explicitly zero" stay distinguishable during the merge.
type fileConfig struct {
	ListenAddr         *string `yaml:"listen_addr"`
	MetricsAddr        *string `yaml:"metrics_addr"`
	LogLevel           *string `yaml:"log_level"`
	CataloguePath      *string `yaml:"catalogue_path"`
	FAQPath            *string `yaml:"faq_path"`
	LockWait           *string `yaml:"lock_wait"`
	RateLimitPerMinute *int    `yaml:"rate_limit_per_minute"`

	Store *struct {
		Backend       *string `yaml:"backend"`
		Path          *string `yaml:"path"`
		RedisAddr     *string `yaml:"redis_addr"`
		RedisPassword *string `yaml:"redis_password"`
		RedisDB       *int    `yaml:"redis_db"`
	} `yaml:"store"`

	Slots *struct {
		Backend  *string `yaml:"backend"`
		BaseURL  *string `yaml:"base_url"`
		Timeout  *string `yaml:"timeout"`
		DemoDays *int    `yaml:"demo_days"`
	} `yaml:"slots"`

	LLM *struct {
		Provider            *string  `yaml:"provider"`
		APIKey              *string  `yaml:"api_key"`
		Model               *string  `yaml:"model"`
		Timeout             *string  `yaml:"timeout"`
		MaxPerSec           *float64 `yaml:"max_per_sec"`
		AssistMinConfidence *float64 `yaml:"assist_min_confidence"`
	} `yaml:"llm"`

	Overlay *struct {
		Enabled       *bool    `yaml:"enabled"`
		CanaryPercent *int     `yaml:"canary_percent"`
		MinConfidence *float64 `yaml:"min_confidence"`
	} `yaml:"overlay"`

	Telemetry *struct {
		Enabled      *bool    `yaml:"enabled"`
		ExporterType *string  `yaml:"exporter"`
		Endpoint     *string  `yaml:"endpoint"`
		SamplingRate *float64 `yaml:"sampling_rate"`
		Environment  *string  `yaml:"environment"`
	} `yaml:"telemetry"`
}

// mergeFile applies a YAML config file on top of cfg. Unknown keys are a
// hard error so typos surface at startup instead of silently falling back
// to defaults.
func mergeFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-chosen config path
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.ListenAddr, fc.ListenAddr)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.CataloguePath, fc.CataloguePath)
	setString(&cfg.FAQPath, fc.FAQPath)
	if err := setDuration(&cfg.LockWait, fc.LockWait, "lock_wait"); err != nil {
		return err
	}
	setInt(&cfg.RateLimitPerMinute, fc.RateLimitPerMinute)

	if fc.Store != nil {
		setString(&cfg.Store.Backend, fc.Store.Backend)
		setString(&cfg.Store.Path, fc.Store.Path)
		setString(&cfg.Store.RedisAddr, fc.Store.RedisAddr)
		setString(&cfg.Store.RedisPassword, fc.Store.RedisPassword)
		setInt(&cfg.Store.RedisDB, fc.Store.RedisDB)
	}
	if fc.Slots != nil {
		setString(&cfg.Slots.Backend, fc.Slots.Backend)
		setString(&cfg.Slots.BaseURL, fc.Slots.BaseURL)
		if err := setDuration(&cfg.Slots.Timeout, fc.Slots.Timeout, "slots.timeout"); err != nil {
			return err
		}
		setInt(&cfg.Slots.DemoDays, fc.Slots.DemoDays)
	}
	if fc.LLM != nil {
		setString(&cfg.LLM.Provider, fc.LLM.Provider)
		setString(&cfg.LLM.APIKey, fc.LLM.APIKey)
		setString(&cfg.LLM.Model, fc.LLM.Model)
		if err := setDuration(&cfg.LLM.Timeout, fc.LLM.Timeout, "llm.timeout"); err != nil {
			return err
		}
		setFloat(&cfg.LLM.MaxPerSec, fc.LLM.MaxPerSec)
		setFloat(&cfg.LLM.AssistMinConfidence, fc.LLM.AssistMinConfidence)
	}
	if fc.Overlay != nil {
		setBool(&cfg.Overlay.Enabled, fc.Overlay.Enabled)
		setInt(&cfg.Overlay.CanaryPercent, fc.Overlay.CanaryPercent)
		setFloat(&cfg.Overlay.MinConfidence, fc.Overlay.MinConfidence)
	}
	if fc.Telemetry != nil {
		setBool(&cfg.Telemetry.Enabled, fc.Telemetry.Enabled)
		setString(&cfg.Telemetry.ExporterType, fc.Telemetry.ExporterType)
		setString(&cfg.Telemetry.Endpoint, fc.Telemetry.Endpoint)
		setFloat(&cfg.Telemetry.SamplingRate, fc.Telemetry.SamplingRate)
		setString(&cfg.Telemetry.Environment, fc.Telemetry.Environment)
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string, field string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("config: invalid duration for %s: %w", field, err)
	}
	*dst = d
	return nil
}
