// SPDX-License-Identifier: MIT

// Package overlay is an optional natural-language layer for the very
// first exchange of a conversation. It never mutates the session: either
// its reply passes every check and is emitted, or the deterministic
// engine handles the turn as if the overlay did not exist.
package overlay

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/intent"
	"github.com/voxdesk/voxdesk/internal/llm"
	"github.com/voxdesk/voxdesk/internal/log"
)

// Mode is the follow-up the overlay proposes for the turn.
type Mode string

const (
	ModeBooking  Mode = "booking"
	ModeFAQ      Mode = "faq"
	ModeTransfer Mode = "transfer"
	ModeFallback Mode = "fallback"
)

// Config gates the overlay. CanaryPercent selects a stable slice of
// conversations by id hash, so a conversation is either always in or
// always out.
type Config struct {
	Enabled       bool
	CanaryPercent int
	MinConfidence float64
}

// Result is a fully validated overlay reply, placeholders already
// substituted with catalogue facts.
type Result struct {
	ResponseText string
	Mode         Mode
	Extracted    map[string]string
}

const (
	defaultMinConfidence = 0.75
	maxResponseRunes     = 280
)

// placeholderRE matches the closed fact-injection set, e.g. {{HORAIRES}}.
var placeholderRE = regexp.MustCompile(`\{\{([A-Z_]+)\}\}`)

// defaultFacts are the only values a placeholder may expand to. The model
// never sees the facts themselves, only the placeholder names.
var defaultFacts = map[string]string{
	"HORAIRES": "du lundi au vendredi de neuf heures à dix-huit heures, et le samedi matin",
	"ADRESSE":  "au 12 rue des Lilas, au deuxième étage",
	"TARIFS":   "au tarif conventionné secteur un",
}

const systemContract = `Tu es la standardiste d'un cabinet médical français. Réponds UNIQUEMENT en français, en une ou deux phrases courtes (280 caractères maximum). N'écris JAMAIS de chiffres, de prix, d'horaires précis ni de conseils médicaux. Pour citer un fait du cabinet, utilise exclusivement l'un des espaces réservés {{HORAIRES}}, {{ADRESSE}}, {{TARIFS}}, sans en inventer d'autres. Réponds avec un seul objet JSON sur UNE SEULE ligne, sans markdown, au format exact : {"response_text":"...","next_mode":"booking|faq|transfer|fallback","extracted":{},"confidence":0.0}`

type payload struct {
	ResponseText string            `json:"response_text"`
	NextMode     string            `json:"next_mode"`
	Extracted    map[string]string `json:"extracted,omitempty"`
	Confidence   float64           `json:"confidence"`
}

// Overlay wraps the text-generation collaborator behind the gate and the
// content firewall described above.
type Overlay struct {
	cfg       Config
	completer llm.Completer
	facts     map[string]string
}

// New builds the overlay. A nil completer yields a permanently inactive
// overlay regardless of configuration.
func New(cfg Config, completer llm.Completer) *Overlay {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = defaultMinConfidence
	}
	if completer == nil {
		completer = llm.Noop{}
		cfg.Enabled = false
	}
	return &Overlay{cfg: cfg, completer: completer, facts: defaultFacts}
}

// Eligible reports whether this turn may be intercepted: feature on,
// conversation inside the canary slice, session still at the opening
// state, and no strong intent already decided deterministically.
func (o *Overlay) Eligible(convID string, state dialog.State, strong intent.Intent) bool {
	if !o.cfg.Enabled || state != dialog.StateStart || strong != intent.None {
		return false
	}
	return int(canaryBucket(convID)) < o.cfg.CanaryPercent
}

func canaryBucket(convID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(convID))
	return h.Sum32() % 100
}

// Respond asks the collaborator for a reply and validates it. ok=false
// means the engine must handle the turn; the reasons are logged, never
// surfaced.
func (o *Overlay) Respond(ctx context.Context, convID, userText string) (Result, bool) {
	raw, err := o.completer.Complete(ctx, systemContract, userText)
	if err != nil {
		o.reject(convID, "completion_failed")
		return Result{}, false
	}

	res, reason := o.validate(raw)
	if reason != "" {
		o.reject(convID, reason)
		return Result{}, false
	}
	return res, true
}

func (o *Overlay) reject(convID, reason string) {
	logger := log.WithComponent("overlay")
	logger.Debug().
		Str(log.FieldConvID, convID).
		Str(log.FieldEvent, "overlay.rejected").
		Str(log.FieldReason, reason).
		Msg("falling back to deterministic engine")
}

// validate applies the full contract and substitutes placeholders.
func (o *Overlay) validate(raw string) (Result, string) {
	trimmed := strings.TrimSpace(raw)
	if strings.Contains(trimmed, "\n") {
		return Result{}, "not_single_line"
	}
	if !strings.HasPrefix(trimmed, "{") {
		return Result{}, "not_bare_json"
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.DisallowUnknownFields()
	var p payload
	if err := dec.Decode(&p); err != nil {
		return Result{}, "invalid_json"
	}
	if dec.More() {
		return Result{}, "trailing_content"
	}

	mode := Mode(p.NextMode)
	switch mode {
	case ModeBooking, ModeFAQ, ModeTransfer, ModeFallback:
	default:
		return Result{}, "unknown_mode"
	}
	if p.Confidence < o.cfg.MinConfidence {
		return Result{}, "low_confidence"
	}

	text := strings.TrimSpace(p.ResponseText)
	if text == "" {
		return Result{}, "empty_text"
	}
	if utf8.RuneCountInString(text) > maxResponseRunes {
		return Result{}, "too_long"
	}
	for _, r := range text {
		if unicode.IsDigit(r) {
			return Result{}, "contains_digits"
		}
	}
	if strings.ContainsAny(text, "€$") || strings.Contains(strings.ToLower(text), "euro") {
		return Result{}, "contains_currency"
	}

	placeholders := placeholderRE.FindAllStringSubmatch(text, -1)
	switch {
	case mode == ModeFAQ && len(placeholders) > 1:
		return Result{}, "too_many_placeholders"
	case mode != ModeFAQ && len(placeholders) > 0:
		return Result{}, "placeholder_outside_faq"
	}
	for _, m := range placeholders {
		fact, known := o.facts[m[1]]
		if !known {
			return Result{}, "unknown_placeholder"
		}
		text = strings.ReplaceAll(text, m[0], fact)
	}
	// A stray brace suggests a malformed placeholder that escaped the
	// pattern above.
	if strings.ContainsAny(text, "{}") {
		return Result{}, "malformed_placeholder"
	}

	return Result{ResponseText: text, Mode: mode, Extracted: p.Extracted}, ""
}
