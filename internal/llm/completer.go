// SPDX-License-Identifier: MIT

// Package llm wraps the text-generation collaborator behind a small
// Completer interface so the classifier fallback and the conversational
// overlay stay testable without a network dependency.
package llm

import (
	"context"
	"errors"
)

// ErrNoCompletion signals that no usable completion is available: the
// capability is disabled, rate-limited, timed out, or failed in transport.
// Callers treat every cause identically and fall back to the deterministic
// path.
var ErrNoCompletion = errors.New("llm: no completion available")

// Completer produces a raw completion for a system/user prompt pair. The
// implementation owns its timeout; Complete never blocks a turn
// indefinitely.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Noop is the default Completer when no model is configured.
type Noop struct{}

// Complete always reports that no completion is available.
func (Noop) Complete(context.Context, string, string) (string, error) {
	return "", ErrNoCompletion
}
