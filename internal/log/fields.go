// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldConvID    = "conv_id"
	FieldTenantID  = "tenant_id"
	FieldRequestID = "request_id"
	FieldChannel   = "channel"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Dialogue fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldIntent   = "intent"
	FieldSayKey   = "say_key"
	FieldReason   = "reason"
	FieldTurn     = "turn"
)
