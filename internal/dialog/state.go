// SPDX-License-Identifier: MIT

// Package dialog defines the shared vocabulary of the dialogue core: the
// conversation state enum, channels, and the Event returned for every turn.
// It is a leaf package so that the engine, the output validator and the
// channel adapters can agree on these types without import cycles.
package dialog

// State identifies one node of the conversation state machine. The string
// value is the wire-visible conv_state reported in every Event.
type State string

const (
	StateStart             State = "START"
	StateClarify           State = "CLARIFY"
	StateQualifName        State = "QUALIF_NAME"
	StateQualifMotif       State = "QUALIF_MOTIF"
	StateQualifPref        State = "QUALIF_PREF"
	StatePreferenceConfirm State = "PREFERENCE_CONFIRM"
	StateWaitConfirm       State = "WAIT_CONFIRM"
	StateQualifContact     State = "QUALIF_CONTACT"
	StateContactConfirm    State = "CONTACT_CONFIRM"
	StateConfirmed         State = "CONFIRMED"
	StateTransferred       State = "TRANSFERRED"
	StateIntentRouter      State = "INTENT_ROUTER"
	StatePostFAQ           State = "POST_FAQ"
	StatePostFAQChoice     State = "POST_FAQ_CHOICE"
	StateCancelName        State = "CANCEL_NAME"
	StateCancelConfirm     State = "CANCEL_CONFIRM"
	StateCancelDone        State = "CANCEL_DONE"
	StateModifyName        State = "MODIFY_NAME"
	StateModifyPref        State = "MODIFY_PREF"
	StateModifyConfirm     State = "MODIFY_CONFIRM"
	StateOrdonnanceName    State = "ORDONNANCE_NAME"
	StateOrdonnanceDetail  State = "ORDONNANCE_DETAIL"
	StateOrdonnanceConfirm State = "ORDONNANCE_CONFIRM"
	StateOrdonnanceDone    State = "ORDONNANCE_DONE"
)

// Terminal reports whether no further automated progress is attempted in s.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateTransferred, StateCancelDone, StateOrdonnanceDone:
		return true
	}
	return false
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := allStates[s]
	return ok
}

var allStates = func() map[State]struct{} {
	m := make(map[State]struct{})
	for _, s := range []State{
		StateStart, StateClarify, StateQualifName, StateQualifMotif,
		StateQualifPref, StatePreferenceConfirm, StateWaitConfirm,
		StateQualifContact, StateContactConfirm, StateConfirmed,
		StateTransferred, StateIntentRouter, StatePostFAQ, StatePostFAQChoice,
		StateCancelName, StateCancelConfirm, StateCancelDone,
		StateModifyName, StateModifyPref, StateModifyConfirm,
		StateOrdonnanceName, StateOrdonnanceDetail, StateOrdonnanceConfirm,
		StateOrdonnanceDone,
	} {
		m[s] = struct{}{}
	}
	return m
}()

// Channel identifies the transport a conversation arrived on.
type Channel string

const (
	ChannelVoice     Channel = "voice"
	ChannelChat      Channel = "chat"
	ChannelMessaging Channel = "messaging"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelVoice, ChannelChat, ChannelMessaging:
		return true
	}
	return false
}
