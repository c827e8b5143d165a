// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/voxdesk/voxdesk/internal/log"
)

// GeminiConfig holds settings for the Gemini-backed Completer.
type GeminiConfig struct {
	APIKey      string
	Model       string        // defaults to gemini-2.0-flash
	Timeout     time.Duration // per-call ceiling, defaults to 3s
	MaxPerSec   float64       // rate limit on assist calls, defaults to 5/s
	Temperature float32
}

// Gemini is a Completer backed by the Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	temp    float32
}

// NewGemini creates a Gemini Completer. The constructor validates the
// connection config only; the first Complete call reaches the network.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MaxPerSec <= 0 {
		cfg.MaxPerSec = 5
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.MaxPerSec), 1),
		temp:    cfg.Temperature,
	}, nil
}

// Complete runs one bounded generation call. Rate-limit pressure, timeout
// and transport errors all collapse into ErrNoCompletion: the caller falls
// back to the deterministic path either way.
func (g *Gemini) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !g.limiter.Allow() {
		logger := log.WithComponent("llm")
		logger.Warn().
			Str("event", "llm.rate_limited").
			Msg("assist call dropped by rate limiter")
		return "", ErrNoCompletion
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temp),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt), cfg)
	if err != nil {
		logger := log.WithComponent("llm")
		logger.Warn().
			Err(err).
			Str("event", "llm.call_failed").
			Msg("gemini call failed, falling back to deterministic path")
		return "", ErrNoCompletion
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrNoCompletion
	}
	return text, nil
}
