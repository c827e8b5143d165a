// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by every span the daemon emits. Conversation ids
// go on spans (bounded lifetime) but never on metric labels.
const (
	ConversationIDKey    = "conversation.id"
	ConversationStateKey = "conversation.state"
	TurnChannelKey       = "turn.channel"
	TurnOutcomeKey       = "turn.outcome"
	TransferReasonKey    = "transfer.reason"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// TurnAttributes creates the span attributes for one processed turn.
func TurnAttributes(convID, channel, state, outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ConversationIDKey, convID),
		attribute.String(TurnChannelKey, channel),
		attribute.String(ConversationStateKey, state),
		attribute.String(TurnOutcomeKey, outcome),
	}
}

// TransferAttributes creates the span attributes for a human hand-off.
func TransferAttributes(reason string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TransferReasonKey, reason),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
