// SPDX-License-Identifier: MIT

// Package intent layers the deterministic intent classification: a
// strong-intent lexicon with fixed precedence, state-gated soft intents
// for short tokens, a router-menu parser, and an optional LLM-assisted
// fallback that can only ever narrow ambiguity.
package intent

// Intent is the classified meaning of one utterance.
type Intent string

const (
	// Strong intents, in precedence order.
	IntentEmergency  Intent = "EMERGENCY"
	IntentTransfer   Intent = "TRANSFER"
	IntentCancel     Intent = "CANCEL"
	IntentModify     Intent = "MODIFY"
	IntentAbandon    Intent = "ABANDON"
	IntentOrdonnance Intent = "ORDONNANCE"
	IntentFAQ        Intent = "FAQ"

	// TransferHint is a bare keyword ("humain", "secretaire") without an
	// explicit request verb; it asks for clarification, never an immediate
	// transfer.
	IntentTransferHint Intent = "TRANSFER_HINT"

	// Soft intents.
	IntentBooking    Intent = "BOOKING"
	IntentYes        Intent = "YES"
	IntentNo         Intent = "NO"
	IntentRepeat     Intent = "REPEAT"
	IntentCorrection Intent = "CORRECTION"
	IntentOutOfScope Intent = "OUT_OF_SCOPE"
	IntentUnclear    Intent = "UNCLEAR"
)

// None marks the absence of a strong intent.
const None Intent = ""
