// SPDX-License-Identifier: MIT

// Package session owns the per-conversation state the engine mutates.
// All counter and flag updates go through named methods so the structural
// invariants (reading flag only in WAIT_CONFIRM, one pending confirmation
// at a time) stay enforceable in one place.
package session

import (
	"time"

	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/slots"
)

// ConfirmTag names what a bare "oui" currently confirms. It is the single
// source of truth that disambiguates "oui" across states.
type ConfirmTag string

const (
	ConfirmNone       ConfirmTag = ""
	ConfirmSlot       ConfirmTag = "CONFIRM_SLOT"
	ConfirmPreference ConfirmTag = "CONFIRM_PREFERENCE"
	ConfirmContact    ConfirmTag = "CONFIRM_CONTACT"
	ConfirmCancel     ConfirmTag = "CONFIRM_CANCEL"
	ConfirmModify     ConfirmTag = "CONFIRM_MODIFY"
	ConfirmOrdonnance ConfirmTag = "CONFIRM_ORDONNANCE"
)

// QualifData is filled incrementally during qualification; confirmed
// fields are never overwritten.
type QualifData struct {
	Name           string `json:"name,omitempty"`
	Reason         string `json:"reason,omitempty"`
	ReasonDetail   string `json:"reason_detail,omitempty"`
	TimePreference string `json:"time_preference,omitempty"`
	Contact        string `json:"contact,omitempty"`
	ContactKind    string `json:"contact_kind,omitempty"` // phone | email
}

// Counters tracks every recoverable-failure counter, one per collectible
// field plus the global ones.
type Counters struct {
	NameFails           int `json:"name_fails"`
	MotifFails          int `json:"motif_fails"`
	PreferenceFails     int `json:"preference_fails"`
	PhoneFails          int `json:"phone_fails"`
	ContactConfirmFails int `json:"contact_confirm_fails"`
	SlotChoiceFails     int `json:"slot_choice_fails"`
	NoMatchTurns        int `json:"no_match_turns"`
	StartUnclear        int `json:"start_unclear_count"`
	YesAmbiguous        int `json:"yes_ambiguous_count"`
	NoiseDetected       int `json:"noise_detected_count"`
	EmptyMessage        int `json:"empty_message_count"`
	FAQMisses           int `json:"faq_miss_count"`
	RouterEntries       int `json:"router_entries"`
}

// DefaultTransferBudget is how many would-be transfers are converted into
// safe-default replies before a recoverable trigger transfers for real.
const DefaultTransferBudget = 2

// MaxTurns is the anti-loop ceiling: turns without a terminal state before
// forced escalation.
const MaxTurns = 25

// TTL is the inactivity window after which a session expires.
const TTL = 30 * time.Minute

// Session is the mutable conversation state, exclusively owned by the
// engine and persisted through the store collaborator.
type Session struct {
	ConvID   string         `json:"conv_id"`
	TenantID string         `json:"tenant_id,omitempty"`
	Channel  dialog.Channel `json:"channel"`

	State  dialog.State `json:"state"`
	Qualif QualifData   `json:"qualif_data"`
	Count  Counters     `json:"counters"`

	TransferBudgetRemaining int `json:"transfer_budget_remaining"`

	PendingSlots     []slots.Slot `json:"pending_slots,omitempty"`
	PendingChoice    int          `json:"pending_slot_choice,omitempty"` // 1-based, 0 = none
	SlotOfferIndex   int          `json:"slot_offer_index,omitempty"`    // cursor for sequential mode
	IsReadingSlots   bool         `json:"is_reading_slots,omitempty"`
	RejectedSlotsIDs []string     `json:"rejected_slot_ids,omitempty"`

	// SelectedSlot is the accepted candidate, carried verbatim through
	// contact collection until booking.
	SelectedSlot *slots.Slot `json:"selected_slot,omitempty"`

	AwaitingConfirmation ConfirmTag `json:"awaiting_confirmation,omitempty"`

	LastAgentMessage   string `json:"last_agent_message,omitempty"`
	LastQuestionAsked  string `json:"last_question_asked,omitempty"`
	LastSayKey         string `json:"last_say_key,omitempty"`
	LastQuestionSayKey string `json:"last_question_say_key,omitempty"`

	TurnCount  int       `json:"turn_count"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// New creates a session with the initial invariants enforced.
func New(convID, tenantID string, channel dialog.Channel) *Session {
	now := time.Now().UTC()
	return &Session{
		ConvID:                  convID,
		TenantID:                tenantID,
		Channel:                 channel,
		State:                   dialog.StateStart,
		TransferBudgetRemaining: DefaultTransferBudget,
		CreatedAt:               now,
		LastSeenAt:              now,
	}
}

// Expired reports whether the session sat idle past the TTL.
func (s *Session) Expired(now time.Time) bool {
	return now.Sub(s.LastSeenAt) > TTL
}

// Touch records turn activity.
func (s *Session) Touch(now time.Time) {
	s.LastSeenAt = now
	s.TurnCount++
}

// TransitionTo moves the session to a new state, maintaining the
// invariant that IsReadingSlots is true only while in WAIT_CONFIRM.
func (s *Session) TransitionTo(state dialog.State) {
	if state != dialog.StateWaitConfirm {
		s.IsReadingSlots = false
	}
	s.State = state
}

// --- confirmation bookkeeping -------------------------------------------

// Await arms the bare-"oui" disambiguation tag. In WAIT_CONFIRM at most
// one of {pending choice, awaiting tag} may be armed; arming the tag
// without a choice clears a stale choice.
func (s *Session) Await(tag ConfirmTag) {
	if tag != ConfirmSlot {
		s.PendingChoice = 0
	}
	s.AwaitingConfirmation = tag
}

// ClearAwait disarms the confirmation tag.
func (s *Session) ClearAwait() {
	s.AwaitingConfirmation = ConfirmNone
}

// ProposeSlots installs the verbatim slot candidates and enters the
// enumeration (barge-in) window.
func (s *Session) ProposeSlots(candidates []slots.Slot) {
	s.PendingSlots = append([]slots.Slot(nil), candidates...)
	s.PendingChoice = 0
	s.SlotOfferIndex = 0
	s.IsReadingSlots = true
	s.ClearAwait()
}

// ChooseSlot records a 1-based candidate choice and arms slot
// confirmation. It reports false when the index is out of range.
func (s *Session) ChooseSlot(idx int) bool {
	if idx < 1 || idx > len(s.PendingSlots) {
		return false
	}
	s.PendingChoice = idx
	s.IsReadingSlots = false
	s.AwaitingConfirmation = ConfirmSlot
	return true
}

// ChosenSlot returns the slot armed by ChooseSlot.
func (s *Session) ChosenSlot() (slots.Slot, bool) {
	if s.PendingChoice < 1 || s.PendingChoice > len(s.PendingSlots) {
		return slots.Slot{}, false
	}
	return s.PendingSlots[s.PendingChoice-1], true
}

// AcceptChosenSlot promotes the armed choice into the selected slot that
// survives the contact-collection states. It reports false when nothing
// was armed.
func (s *Session) AcceptChosenSlot() bool {
	chosen, ok := s.ChosenSlot()
	if !ok {
		return false
	}
	copied := chosen
	s.SelectedSlot = &copied
	s.PendingChoice = 0
	s.ClearAwait()
	return true
}

// OfferSlot installs a single candidate outside the enumeration window
// (modification flow) and arms its confirmation under the given tag.
func (s *Session) OfferSlot(slot slots.Slot, tag ConfirmTag) {
	s.PendingSlots = []slots.Slot{slot}
	s.PendingChoice = 1
	s.SlotOfferIndex = 1
	s.IsReadingSlots = false
	s.AwaitingConfirmation = tag
}

// RejectSlot marks a sequential proposal as declined so ±90-minute
// neighbors can be skipped.
func (s *Session) RejectSlot(id string) {
	s.RejectedSlotsIDs = append(s.RejectedSlotsIDs, id)
	s.PendingChoice = 0
	s.ClearAwait()
}

// ClearSlots resets all proposal state.
func (s *Session) ClearSlots() {
	s.PendingSlots = nil
	s.PendingChoice = 0
	s.SlotOfferIndex = 0
	s.IsReadingSlots = false
	s.RejectedSlotsIDs = nil
	s.SelectedSlot = nil
}

// --- recovery counters ----------------------------------------------------

// SpendTransferBudget consumes one prevented transfer. It returns true
// when a unit was available: the caller answers with a safe default
// instead of transferring. The budget only ever decreases.
func (s *Session) SpendTransferBudget() bool {
	if s.TransferBudgetRemaining <= 0 {
		return false
	}
	s.TransferBudgetRemaining--
	return true
}

// RecordAgentMessage remembers the reply for REPEAT, and the question for
// CORRECTION when the reply asks one.
func (s *Session) RecordAgentMessage(text, sayKey string, isQuestion bool) {
	s.LastAgentMessage = text
	s.LastSayKey = sayKey
	if isQuestion {
		s.LastQuestionAsked = text
		s.LastQuestionSayKey = sayKey
	}
}

// ResetProgressCounters clears the input-quality strike counters after any
// successful state progress.
func (s *Session) ResetProgressCounters() {
	s.Count.NoiseDetected = 0
	s.Count.EmptyMessage = 0
	s.Count.NoMatchTurns = 0
	s.Count.YesAmbiguous = 0
}
