// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := NewLoader("", "test").Load()
	require.NoError(t, err)

	want := Defaults()
	want.Version = "test"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
listen_addr: ":9999"
log_level: debug
lock_wait: 150ms
store:
  backend: sqlite
  path: /tmp/sessions.db
slots:
  backend: memory
  demo_days: 7
overlay:
  canary_percent: 20
`)

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 150*time.Millisecond, cfg.LockWait)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "/tmp/sessions.db", cfg.Store.Path)
	assert.Equal(t, 7, cfg.Slots.DemoDays)
	assert.Equal(t, 20, cfg.Overlay.CanaryPercent)
	// Untouched fields keep their defaults.
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := writeConfigFile(t, `
listen_addr: ":9999"
store:
  backend: sqlite
  path: /tmp/sessions.db
`)
	t.Setenv("VOXDESK_LISTEN", ":7777")
	t.Setenv("VOXDESK_STORE_BACKEND", "memory")

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.ListenAddr)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfigFile(t, "listne_addr: ':9999'\n")
	_, err := NewLoader(path, "test").Load()
	assert.Error(t, err)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"), "test").Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AppConfig)
		wantOK bool
	}{
		{"defaults are valid", func(*AppConfig) {}, true},
		{"empty listen addr", func(c *AppConfig) { c.ListenAddr = "" }, false},
		{"zero rate limit", func(c *AppConfig) { c.RateLimitPerMinute = 0 }, false},
		{"unknown store backend", func(c *AppConfig) { c.Store.Backend = "etcd" }, false},
		{"sqlite without path", func(c *AppConfig) { c.Store.Backend = "sqlite" }, false},
		{"redis without addr", func(c *AppConfig) { c.Store.Backend = "redis" }, false},
		{"redis with addr", func(c *AppConfig) {
			c.Store.Backend = "redis"
			c.Store.RedisAddr = "localhost:6379"
		}, true},
		{"http slots without url", func(c *AppConfig) { c.Slots.Backend = "http" }, false},
		{"gemini without key", func(c *AppConfig) { c.LLM.Provider = "gemini" }, false},
		{"canary out of range", func(c *AppConfig) { c.Overlay.CanaryPercent = 101 }, false},
		{"overlay without llm", func(c *AppConfig) { c.Overlay.Enabled = true }, false},
		{"overlay with llm", func(c *AppConfig) {
			c.Overlay.Enabled = true
			c.LLM.Provider = "gemini"
			c.LLM.APIKey = "k"
		}, true},
		{"bad exporter", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.ExporterType = "udp"
		}, false},
		{"sampling out of range", func(c *AppConfig) { c.Telemetry.SamplingRate = 1.5 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := Validate(cfg)
			if tc.wantOK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
