// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/voxdesk/voxdesk/internal/api"
	"github.com/voxdesk/voxdesk/internal/config"
	"github.com/voxdesk/voxdesk/internal/engine"
	"github.com/voxdesk/voxdesk/internal/faq"
	"github.com/voxdesk/voxdesk/internal/intent"
	"github.com/voxdesk/voxdesk/internal/llm"
	"github.com/voxdesk/voxdesk/internal/log"
	"github.com/voxdesk/voxdesk/internal/metrics"
	"github.com/voxdesk/voxdesk/internal/overlay"
	"github.com/voxdesk/voxdesk/internal/session/store"
	"github.com/voxdesk/voxdesk/internal/slots"
	"github.com/voxdesk/voxdesk/internal/telemetry"
	"github.com/voxdesk/voxdesk/internal/validation"
)

var (
	version   = "v0.3.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe logging defaults until config is loaded.
	log.Configure(log.Config{
		Level:   "info",
		Service: "voxdesk",
		Version: version,
	})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewLoader(*configPath, version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}

	// Re-configure logging with the loaded level.
	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "voxdesk",
		Version: version,
	})

	if *configPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", *configPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	tracer, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "voxdesk",
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "telemetry.init_failed").
			Msg("failed to initialize tracing")
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	sessions, err := store.Open(store.Options{
		Backend: cfg.Store.Backend,
		Path:    cfg.Store.Path,
		Redis: store.RedisConfig{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		},
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "store.open_failed").
			Msg("failed to open session store")
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			logger.Warn().Err(err).Msg("session store close failed")
		}
	}()

	availability, err := buildAvailability(cfg.Slots)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "slots.init_failed").
			Msg("failed to build availability backend")
	}

	completer, err := buildCompleter(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "llm.init_failed").
			Msg("failed to build llm completer")
	}

	validator, catalogueReload, err := buildValidator(cfg.CataloguePath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "catalogue.load_failed").
			Str("path", cfg.CataloguePath).
			Msg("failed to load reply catalogue")
	}

	faqIndex, err := buildFAQ(cfg.FAQPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "faq.load_failed").
			Str("path", cfg.FAQPath).
			Msg("failed to load faq entries")
	}

	var assist *intent.Assist
	var conv *overlay.Overlay
	if completer != nil {
		assist = intent.NewAssist(completer, cfg.LLM.AssistMinConfidence)
		conv = overlay.New(overlay.Config{
			Enabled:       cfg.Overlay.Enabled,
			CanaryPercent: cfg.Overlay.CanaryPercent,
			MinConfidence: cfg.Overlay.MinConfidence,
		}, completer)
	}

	eng, err := engine.New(engine.Options{
		Store:     sessions,
		Slots:     availability,
		FAQ:       faqIndex,
		Validator: validator,
		Assist:    assist,
		Overlay:   conv,
		LockWait:  cfg.LockWait,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "engine.init_failed").
			Msg("failed to wire the dialogue engine")
	}

	// Hot reload of the reply catalogue: a broken edit keeps the previous
	// snapshot.
	watcher := config.NewWatcher(cfg.CataloguePath, "catalogue", catalogueReload)
	if err := watcher.Start(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "catalogue.watch_failed").
			Msg("failed to start catalogue watcher")
	}
	defer watcher.Stop()

	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = "voxdesk"
	}
	handler := api.New(eng, api.Config{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TracingService:     tracingService,
	}).Handler()

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Str("store", cfg.Store.Backend).
		Str("slots", cfg.Slots.Backend).
		Str("llm", cfg.LLM.Provider).
		Bool("overlay", cfg.Overlay.Enabled).
		Msg("starting voxdesk")

	if err := serve(ctx, logger, cfg, handler); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "server.failed").
			Msg("server failed")
	}

	logger.Info().Msg("server exiting")
}

// serve runs the API listener (and the optional metrics listener) until
// the context is canceled, then shuts both down gracefully.
func serve(ctx context.Context, logger zerolog.Logger, cfg config.AppConfig, handler http.Handler) error {
	g, gctx := errgroup.WithContext(ctx)

	apiServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("api listener started")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api listener: %w", err)
		}
		return nil
	})

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listener started")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("api shutdown failed")
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("metrics shutdown failed")
			}
		}
		return nil
	})

	return g.Wait()
}

// buildAvailability selects the appointment backend.
func buildAvailability(cfg config.SlotsConfig) (slots.Availability, error) {
	switch cfg.Backend {
	case "memory":
		seed := slots.DemoSlots(time.Now().UTC(), cfg.DemoDays)
		return slots.NewMemory(seed), nil
	case "http":
		return slots.NewClient(cfg.BaseURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown slots backend %q", cfg.Backend)
	}
}

// buildCompleter builds the optional LLM collaborator. A nil completer
// disables both the assist and the overlay.
func buildCompleter(ctx context.Context, cfg config.LLMConfig) (llm.Completer, error) {
	switch cfg.Provider {
	case "none":
		return nil, nil
	case "gemini":
		return llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Timeout:   cfg.Timeout,
			MaxPerSec: cfg.MaxPerSec,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// buildValidator loads the reply catalogue and returns the reload hook
// the file watcher drives.
func buildValidator(path string) (*validation.Validator, config.ReloadFunc, error) {
	catalogue := validation.DefaultCatalogue()
	if path != "" {
		loaded, err := validation.LoadCatalogueFile(path)
		if err != nil {
			return nil, nil, err
		}
		catalogue = loaded
	}

	validator := validation.New(catalogue, metrics.Reporter{})
	reload := func() error {
		loaded, err := validation.LoadCatalogueFile(path)
		if err != nil {
			return err
		}
		validator.Swap(loaded)
		return nil
	}
	return validator, reload, nil
}

// buildFAQ loads the FAQ entries, falling back to the built-in set.
func buildFAQ(path string) (*faq.Index, error) {
	if path == "" {
		return faq.Default(), nil
	}
	return faq.LoadFile(path)
}
