// SPDX-License-Identifier: MIT

// Package api exposes the dialogue engine over HTTP: one turn endpoint,
// health probes and the Prometheus scrape target.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/engine"
	"github.com/voxdesk/voxdesk/internal/log"
)

// maxTurnBodyBytes bounds the turn request body. Utterances are short;
// anything larger is not speech.
const maxTurnBodyBytes = 16 << 10

// Config tunes the HTTP surface.
type Config struct {
	// RateLimitPerMinute caps turn requests per client IP. Zero disables
	// the limiter (tests).
	RateLimitPerMinute int
	// TracingService enables OpenTelemetry HTTP instrumentation under
	// this service name. Empty disables it.
	TracingService string
}

// Server routes HTTP requests to the dialogue engine.
type Server struct {
	engine *engine.Engine
	cfg    Config
	logger zerolog.Logger
}

// New creates the HTTP server facade around the engine.
func New(e *engine.Engine, cfg Config) *Server {
	return &Server{
		engine: e,
		cfg:    cfg,
		logger: log.WithComponent("api"),
	}
}

// Handler builds the chi router with the canonical middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(recoverer)
	r.Use(requestID)
	if s.cfg.TracingService != "" {
		r.Use(tracing(s.cfg.TracingService))
	}
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimitPerMinute > 0 {
			r.Use(httprate.Limit(
				s.cfg.RateLimitPerMinute,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(rateLimited),
			))
		}
		r.Post("/v1/turn", s.handleTurn)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// turnRequest is the wire form of one user utterance. Optional fields are
// pointers so "absent" keeps its transport-specific default.
type turnRequest struct {
	ConversationID string   `json:"conversation_id"`
	TenantID       string   `json:"tenant_id,omitempty"`
	Channel        string   `json:"channel,omitempty"`
	Text           string   `json:"text"`
	STTConfidence  *float64 `json:"stt_confidence,omitempty"`
	UserSpoke      *bool    `json:"user_spoke,omitempty"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTurnBodyBytes)

	var req turnRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "turn body exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not a valid turn")
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "missing_conversation_id", "conversation_id is required")
		return
	}

	channel := dialog.Channel(req.Channel)
	if req.Channel == "" {
		channel = dialog.ChannelVoice
	}
	if !channel.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_channel", "channel must be voice, chat or messaging")
		return
	}

	// Absent confidence means the transport does not report one.
	confidence := -1.0
	if req.STTConfidence != nil {
		confidence = *req.STTConfidence
	}
	userSpoke := true
	if req.UserSpoke != nil {
		userSpoke = *req.UserSpoke
	}

	ctx := log.ContextWithConversationID(r.Context(), req.ConversationID)
	ev, err := s.engine.HandleTurn(ctx, engine.TurnRequest{
		ConvID:        req.ConversationID,
		TenantID:      req.TenantID,
		Channel:       channel,
		Text:          req.Text,
		STTConfidence: confidence,
		UserSpoke:     userSpoke,
	})
	if err != nil {
		if ev.Final() {
			// The turn produced a reply but a side effect (session save)
			// failed. The caller still gets the reply; the error is ours.
			logger := log.WithContext(ctx, s.logger)
			logger.Error().
				Err(err).
				Str("event", "api.turn_degraded").
				Msg("turn completed with a degraded side effect")
			writeJSON(w, http.StatusOK, ev)
			return
		}
		logger := log.WithContext(ctx, s.logger)
		logger.Error().
			Err(err).
			Str("event", "api.turn_failed").
			Msg("turn processing failed")
		writeError(w, http.StatusInternalServerError, "turn_failed", "turn could not be processed")
		return
	}

	writeJSON(w, http.StatusOK, ev)
}
