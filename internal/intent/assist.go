// SPDX-License-Identifier: MIT

package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/voxdesk/voxdesk/internal/llm"
	"github.com/voxdesk/voxdesk/internal/log"
	"github.com/voxdesk/voxdesk/internal/normalize"
)

// assistSystemPrompt pins the contract: one strict JSON object, nothing
// else. The model may only narrow ambiguity; everything it returns is
// re-validated here.
const assistSystemPrompt = `Tu aides le standard d'un cabinet à classifier une phrase ambiguë d'un appelant.
Réponds UNIQUEMENT par un objet JSON sur une seule ligne, sans markdown, sans texte autour, au format exact :
{"intent":"...","confidence":0.0,"faq_bucket":null,"should_clarify":false,"rationale":"...","out_of_scope_response":""}
intents autorisés : booking, faq, cancel, modify, ordonnance, transfer, out_of_scope, unclear.
faq_bucket obligatoire si intent=faq, parmi : horaires, adresse, tarifs, acces, urgences, contact ; null sinon.
out_of_scope_response seulement si intent=out_of_scope : une phrase courte, sans chiffres, sans prix, sans conseil médical.`

// assistIntents whitelists what the model may return and the deterministic
// intent each maps to.
var assistIntents = map[string]Intent{
	"booking":      IntentBooking,
	"faq":          IntentFAQ,
	"cancel":       IntentCancel,
	"modify":       IntentModify,
	"ordonnance":   IntentOrdonnance,
	"transfer":     IntentTransfer,
	"out_of_scope": IntentOutOfScope,
	"unclear":      IntentUnclear,
}

// faqBuckets whitelists the FAQ categories an assist result may name.
var faqBuckets = map[string]bool{
	"horaires": true, "adresse": true, "tarifs": true,
	"acces": true, "urgences": true, "contact": true,
}

// forbiddenReplyMarkers reject any free-text reply that leaks facts the
// model must not improvise.
var forbiddenReplyMarkers = []string{
	"€", "$", "euro", "eur ", "prix", "tarif", "diagnostic", "posologie",
	"medicament", "médicament", "docteur ", "ordonnance", "rembours",
}

const maxOutOfScopeReply = 240

// Outcome is a validated assist result.
type Outcome struct {
	Intent          Intent
	FAQBucket       string
	OutOfScopeReply string
	ShouldClarify   bool
}

type assistPayload struct {
	Intent             string  `json:"intent"`
	Confidence         float64 `json:"confidence"`
	FAQBucket          *string `json:"faq_bucket"`
	ShouldClarify      bool    `json:"should_clarify"`
	Rationale          string  `json:"rationale"`
	OutOfScopeResponse string  `json:"out_of_scope_response"`
}

// Assist is the confidence-gated LLM fallback, restricted to the one
// ambiguous state by its caller. A nil or Noop completer disables it.
type Assist struct {
	completer     llm.Completer
	minConfidence float64
}

// NewAssist builds the fallback with a confidence threshold in (0,1].
func NewAssist(completer llm.Completer, minConfidence float64) *Assist {
	if completer == nil {
		completer = llm.Noop{}
	}
	if minConfidence <= 0 || minConfidence > 1 {
		minConfidence = 0.7
	}
	return &Assist{completer: completer, minConfidence: minConfidence}
}

// ShouldAttemptFallback is the gating policy: deterministic classification
// must have come up UNCLEAR with no strong intent, and the utterance must
// carry at least two non-filler tokens.
func ShouldAttemptFallback(text string, current, strong Intent) bool {
	if strong != None || current != IntentUnclear {
		return false
	}
	words := normalize.Words(text)
	if len(words) < 2 {
		return false
	}
	if normalize.IsCriticalToken(text) {
		return false
	}
	return true
}

// Classify invokes the completer and validates the result. Any validation
// failure or low confidence discards the assist entirely: the fallback can
// narrow ambiguity but never override a deterministic decision.
func (a *Assist) Classify(ctx context.Context, text string) (Outcome, bool) {
	raw, err := a.completer.Complete(ctx, assistSystemPrompt, text)
	if err != nil {
		return Outcome{}, false
	}

	out, err := a.validate(raw)
	if err != nil {
		logger := log.WithComponent("intent")
		logger.Warn().
			Err(err).
			Str("event", "assist.rejected").
			Msg("assist result discarded")
		return Outcome{}, false
	}
	return out, true
}

func (a *Assist) validate(raw string) (Outcome, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		return Outcome{}, fmt.Errorf("markdown fence in assist reply")
	}
	if !strings.HasPrefix(raw, "{") {
		return Outcome{}, fmt.Errorf("assist reply is not a bare JSON object")
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	var p assistPayload
	if err := dec.Decode(&p); err != nil {
		return Outcome{}, fmt.Errorf("decode assist payload: %w", err)
	}
	// A single object and nothing after it.
	if dec.More() {
		return Outcome{}, fmt.Errorf("trailing content after assist payload")
	}

	mapped, ok := assistIntents[strings.ToLower(strings.TrimSpace(p.Intent))]
	if !ok {
		return Outcome{}, fmt.Errorf("unknown assist intent %q", p.Intent)
	}
	if p.Confidence < a.minConfidence {
		return Outcome{}, fmt.Errorf("assist confidence %.2f below threshold %.2f", p.Confidence, a.minConfidence)
	}

	bucket := ""
	if p.FAQBucket != nil {
		bucket = strings.ToLower(strings.TrimSpace(*p.FAQBucket))
	}
	if mapped == IntentFAQ {
		if !faqBuckets[bucket] {
			return Outcome{}, fmt.Errorf("faq intent without whitelisted bucket (%q)", bucket)
		}
	} else if bucket != "" {
		return Outcome{}, fmt.Errorf("non-faq intent carries bucket %q", bucket)
	}

	reply := strings.TrimSpace(p.OutOfScopeResponse)
	if mapped != IntentOutOfScope && reply != "" {
		return Outcome{}, fmt.Errorf("free-text reply on intent %q", p.Intent)
	}
	if mapped == IntentOutOfScope {
		if reply == "" {
			return Outcome{}, fmt.Errorf("out_of_scope intent without reply")
		}
		if err := checkReplySafety(reply); err != nil {
			return Outcome{}, err
		}
	}

	return Outcome{
		Intent:          mapped,
		FAQBucket:       bucket,
		OutOfScopeReply: reply,
		ShouldClarify:   p.ShouldClarify,
	}, nil
}

func checkReplySafety(reply string) error {
	if len(reply) > maxOutOfScopeReply {
		return fmt.Errorf("out-of-scope reply exceeds %d chars", maxOutOfScopeReply)
	}
	for _, r := range reply {
		if unicode.IsDigit(r) {
			return fmt.Errorf("out-of-scope reply contains digits")
		}
	}
	folded := normalize.Fold(reply)
	for _, marker := range forbiddenReplyMarkers {
		if strings.Contains(folded, normalize.Fold(marker)) {
			return fmt.Errorf("out-of-scope reply contains forbidden marker %q", marker)
		}
	}
	return nil
}
