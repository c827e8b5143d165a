// SPDX-License-Identifier: MIT

// Package validation is the output firewall: every candidate reply passes
// through it before leaving the system, whatever produced the text.
package validation

import (
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/log"
)

// Class is the safety tier a state is checked under.
type Class string

const (
	// ClassCritical replies must byte-for-byte match a catalogue entry.
	ClassCritical Class = "critical"
	// ClassTemplate replies must match the shape of their say-key template.
	ClassTemplate Class = "template"
	// ClassAIGenerated replies vary freely but must pass content rules.
	ClassAIGenerated Class = "ai_generated"
)

// stateClasses assigns each conversation state its tier. States absent
// from the map default to ClassTemplate.
var stateClasses = map[dialog.State]Class{
	dialog.StateConfirmed:      ClassCritical,
	dialog.StateTransferred:    ClassCritical,
	dialog.StateCancelDone:     ClassCritical,
	dialog.StateOrdonnanceDone: ClassCritical,

	dialog.StateStart:   ClassAIGenerated,
	dialog.StatePostFAQ: ClassAIGenerated,
}

// ClassFor returns the tier the given state is checked under.
func ClassFor(state dialog.State) Class {
	if c, ok := stateClasses[state]; ok {
		return c
	}
	return ClassTemplate
}

// maxReplyRunes bounds ai_generated replies; spoken answers longer than
// this lose the caller.
const maxReplyRunes = 320

// forbiddenMarkers reject ai_generated content that promises, prices or
// diagnoses. Matched on folded lowercase text.
var forbiddenMarkers = []string{
	"€", "$", "euro", "prix", "tarif", "rembours",
	"diagnostic", "ordonnance de", "posologie", "medicament",
	"je vous garantis", "je vous promets", "c'est grave", "pas grave",
	"http://", "https://", "www.",
}

// Reporter receives structured rejection events. Implementations are
// fire-and-forget from the validator's perspective.
type Reporter interface {
	ValidatorRejected(state dialog.State, class Class, sayKey, reason string)
}

// NopReporter discards rejections.
type NopReporter struct{}

func (NopReporter) ValidatorRejected(dialog.State, Class, string, string) {}

// Validator checks candidate replies against the active catalogue
// snapshot and substitutes the fixed fallback on any violation.
type Validator struct {
	catalogue atomic.Pointer[Catalogue]
	reporter  Reporter
}

// New builds a validator over the given catalogue. A nil reporter
// disables rejection reporting.
func New(cat *Catalogue, reporter Reporter) *Validator {
	if reporter == nil {
		reporter = NopReporter{}
	}
	v := &Validator{reporter: reporter}
	v.catalogue.Store(cat)
	return v
}

// Swap atomically replaces the template snapshot (hot reload).
func (v *Validator) Swap(cat *Catalogue) {
	v.catalogue.Store(cat)
}

// Catalogue returns the active snapshot.
func (v *Validator) Catalogue() *Catalogue {
	return v.catalogue.Load()
}

// FallbackText is the fixed reply substituted for any rejected candidate.
func (v *Validator) FallbackText() string {
	text, _ := v.catalogue.Load().Render(SayFallback)
	return text
}

// Validate checks the candidate reply for the given state and say key.
// ok reports whether the candidate itself passed; the returned text is
// always safe to emit (the candidate, or the fixed fallback).
func (v *Validator) Validate(state dialog.State, sayKey, candidate string) (bool, string) {
	cat := v.catalogue.Load()
	class := ClassFor(state)

	if reason := v.check(cat, class, sayKey, candidate); reason != "" {
		logger := log.WithComponent("validation")
		logger.Warn().
			Str(log.FieldEvent, "validator.rejected").
			Str(log.FieldNewState, string(state)).
			Str("class", string(class)).
			Str(log.FieldSayKey, sayKey).
			Str(log.FieldReason, reason).
			Msg("candidate reply rejected")
		v.reporter.ValidatorRejected(state, class, sayKey, reason)
		fallback, _ := cat.Render(SayFallback)
		return false, fallback
	}
	return true, candidate
}

func (v *Validator) check(cat *Catalogue, class Class, sayKey, candidate string) string {
	if strings.TrimSpace(candidate) == "" {
		return "empty_reply"
	}

	switch class {
	case ClassCritical:
		if _, ok := cat.critical[candidate]; !ok {
			return "not_in_critical_allow_list"
		}
		return ""

	case ClassTemplate:
		entry, ok := cat.entries[sayKey]
		if !ok {
			return "unknown_say_key"
		}
		if entry.Class == ClassCritical {
			if _, exact := cat.critical[candidate]; !exact {
				return "not_in_critical_allow_list"
			}
			return ""
		}
		re, ok := cat.patterns[sayKey]
		if !ok || !re.MatchString(candidate) {
			return "template_mismatch"
		}
		// Unfilled or mismatched fmt verbs must never reach a caller.
		for _, verb := range []string{"%!", "%s", "%d"} {
			if strings.Contains(candidate, verb) {
				return "template_bad_arguments"
			}
		}
		return ""

	case ClassAIGenerated:
		// Catalogue-rendered replies stay template-checked even in
		// free-form states; only the free-form say keys get content rules.
		if sayKey != SayOverlayReply && sayKey != SayAssistReply {
			return v.check(cat, ClassTemplate, sayKey, candidate)
		}
		if utf8.RuneCountInString(candidate) > maxReplyRunes {
			return "too_long"
		}
		lowered := strings.ToLower(candidate)
		for _, marker := range forbiddenMarkers {
			if strings.Contains(lowered, marker) {
				return "forbidden_marker"
			}
		}
		return ""
	}
	return "unknown_class"
}
