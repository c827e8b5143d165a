// SPDX-License-Identifier: MIT

package dialog

// EventType distinguishes the kinds of engine output.
type EventType string

const (
	EventPartial  EventType = "partial"
	EventFinal    EventType = "final"
	EventTransfer EventType = "transfer"
	EventError    EventType = "error"
)

// TransferReason explains why a conversation was handed to a human.
type TransferReason string

const (
	TransferExplicitRequest TransferReason = "explicit_request"
	TransferEmergency       TransferReason = "emergency"
	TransferNoAvailability  TransferReason = "no_availability"
	TransferConsentDenied   TransferReason = "consent_denied"
	TransferSpam            TransferReason = "spam"
	TransferRouterExhausted TransferReason = "router_exhausted"
	TransferInternalError   TransferReason = "internal_error"
)

// Event is the single outgoing reply produced for one turn. Exactly one
// final or transfer Event leaves the engine per turn.
type Event struct {
	Type           EventType      `json:"type"`
	Text           string         `json:"text"`
	ConvState      State          `json:"conv_state"`
	TransferReason TransferReason `json:"transfer_reason,omitempty"`
	// Silent marks a transfer that must not be voiced to the caller
	// (spam/abuse hand-off).
	Silent bool `json:"silent,omitempty"`
	// SayKey names the canonical reply that produced Text, when the reply
	// came from the critical or template tier.
	SayKey string `json:"say_key,omitempty"`
}

// Final reports whether e ends the turn (final or transfer).
func (e Event) Final() bool {
	return e.Type == EventFinal || e.Type == EventTransfer || e.Type == EventError
}
