// SPDX-License-Identifier: MIT

package normalize

import (
	"strings"
)

// Verdict is the edge-case classification of a raw transcript.
type Verdict string

const (
	VerdictOK            Verdict = "OK"
	VerdictSilence       Verdict = "SILENCE"
	VerdictNoise         Verdict = "NOISE"
	VerdictSpam          Verdict = "SPAM"
	VerdictTooLong       Verdict = "TOO_LONG"
	VerdictWrongLanguage Verdict = "WRONG_LANGUAGE"
)

// Input carries the raw transcript plus the transport hints the guard needs.
type Input struct {
	Text string
	// STTConfidence is the transcription confidence in [0,1]; negative
	// means "not reported" and disables the confidence check.
	STTConfidence float64
	// UserSpoke is true when the upstream channel detected audio activity,
	// which distinguishes NOISE (spoke, untranscribable) from SILENCE.
	UserSpoke bool
}

// GuardConfig tunes the edge-case thresholds.
type GuardConfig struct {
	MaxChars           int     // ceiling before TOO_LONG
	MinSTTConfidence   float64 // below this, non-critical input is NOISE
	ForeignWordRatio   float64 // stop-word ratio above which input is WRONG_LANGUAGE
	MinWordsForLangGte int     // language check needs at least this many words
}

// DefaultGuardConfig mirrors production tuning.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		MaxChars:           600,
		MinSTTConfidence:   0.45,
		ForeignWordRatio:   0.30,
		MinWordsForLangGte: 3,
	}
}

// Guard classifies raw transcripts before any semantic processing. It is
// pure: counter bookkeeping belongs to the session, not the guard.
type Guard struct {
	cfg GuardConfig
}

// NewGuard returns a Guard with the provided thresholds, falling back to
// defaults for zero values.
func NewGuard(cfg GuardConfig) *Guard {
	def := DefaultGuardConfig()
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = def.MaxChars
	}
	if cfg.MinSTTConfidence <= 0 {
		cfg.MinSTTConfidence = def.MinSTTConfidence
	}
	if cfg.ForeignWordRatio <= 0 {
		cfg.ForeignWordRatio = def.ForeignWordRatio
	}
	if cfg.MinWordsForLangGte <= 0 {
		cfg.MinWordsForLangGte = def.MinWordsForLangGte
	}
	return &Guard{cfg: cfg}
}

// Classify runs the edge-case checks in a fixed order. Critical tokens
// (yes/no variants, digits, ordinals) are always OK regardless of
// confidence: discarding them would break confirmation flows.
func (g *Guard) Classify(in Input) Verdict {
	text := CollapseSpaces(in.Text)
	if strings.TrimSpace(text) == "" {
		if in.UserSpoke {
			return VerdictNoise
		}
		return VerdictSilence
	}

	words := Words(text)
	if IsCriticalToken(text) {
		return VerdictOK
	}

	if containsProfanity(words) {
		return VerdictSpam
	}

	if len(text) > g.cfg.MaxChars {
		return VerdictTooLong
	}

	if fillerOnly(words) {
		return VerdictNoise
	}

	if in.STTConfidence >= 0 && in.STTConfidence < g.cfg.MinSTTConfidence && in.UserSpoke {
		return VerdictNoise
	}

	if len(words) >= g.cfg.MinWordsForLangGte && foreignRatio(words) > g.cfg.ForeignWordRatio {
		return VerdictWrongLanguage
	}

	return VerdictOK
}

// IsCriticalToken reports whether the whole utterance is one of the tokens
// that must never be discarded as noise: bare confirmations, menu digits
// and ordinal words.
func IsCriticalToken(text string) bool {
	_, ok := criticalTokens[Fold(text)]
	return ok
}

func fillerOnly(words []string) bool {
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !fillerWords[w] {
			return false
		}
	}
	return true
}

func foreignRatio(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, w := range words {
		if foreignStopWords[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(words))
}

func containsProfanity(words []string) bool {
	for _, w := range words {
		if profanityLexicon[w] {
			return true
		}
	}
	return false
}
