// SPDX-License-Identifier: MIT

// Package extract pulls structured entities (name, reason, time preference,
// phone, email) out of noisy dictated text. Extraction is conservative by
// design: under ambiguity every function returns an empty Result so the
// engine re-asks instead of mis-filling a field.
package extract

// Result is one extracted field with a structural confidence score.
type Result struct {
	Value      string
	Confidence float64
}

// OK reports whether the extraction produced a usable value.
func (r Result) OK() bool {
	return r.Value != "" && r.Confidence > 0
}

// Confidence tiers the engine uses to decide full-accept vs. confirm vs.
// reject. Kept here so extractors and engine agree on the boundaries.
const (
	ConfidenceAccept  = 0.8 // accept silently
	ConfidenceConfirm = 0.5 // accept but read back for confirmation
)
