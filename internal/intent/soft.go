// SPDX-License-Identifier: MIT

package intent

import (
	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/normalize"
)

// confirmationStates is the fixed allow-list of states in which a bare
// yes/no is meaningful. Anywhere else "oui" classifies as UNCLEAR so the
// engine never silently commits to an unintended action.
var confirmationStates = map[dialog.State]bool{
	dialog.StatePreferenceConfirm: true,
	dialog.StateWaitConfirm:       true,
	dialog.StateContactConfirm:    true,
	dialog.StateCancelConfirm:     true,
	dialog.StateModifyConfirm:     true,
	dialog.StateOrdonnanceConfirm: true,
	dialog.StateClarify:           true,
	dialog.StatePostFAQChoice:     true,
}

var yesTokens = map[string]bool{
	"oui": true, "ouais": true, "ouai": true, "si": true, "ok": true,
	"d'accord": true, "daccord": true, "exact": true, "exactement": true,
	"parfait": true, "tres bien": true, "ca marche": true, "volontiers": true,
	"c'est ca": true, "c'est bon": true, "tout a fait": true, "bien sur": true,
}

var noTokens = map[string]bool{
	"non": true, "nan": true, "pas du tout": true, "non merci": true,
	"pas possible": true, "ca ne va pas": true, "non non": true,
	"plutot pas": true, "pas celui-la": true, "pas celui la": true,
}

// repeatTriggers are matched as whole tokens only; substring matches
// inside unrelated words are forbidden.
var repeatTriggers = map[string]bool{
	"repete": true, "repetez": true, "pardon": true, "comment": true,
	"quoi": true, "redites": true,
}

var correctionPhrases = []string{
	"attendez", "attends", "c'est pas ca", "ce n'est pas ca", "non attendez",
	"je me suis trompe", "je me suis trompee", "erreur", "c'est faux",
	"pas ca", "je voulais dire",
}

// ClassifySoft interprets short/ambiguous tokens in the context of the
// current state. It is only consulted after ClassifyStrong found nothing.
func ClassifySoft(text string, state dialog.State) Intent {
	folded := normalize.Fold(text)
	if folded == "" {
		return IntentUnclear
	}

	if repeatOnly(folded) {
		return IntentRepeat
	}
	if matchesAny(folded, correctionPhrases) {
		return IntentCorrection
	}

	if yesTokens[folded] {
		if confirmationStates[state] {
			return IntentYes
		}
		return IntentUnclear
	}
	if noTokens[folded] {
		if confirmationStates[state] {
			return IntentNo
		}
		return IntentUnclear
	}

	if IsBookingPhrase(folded) {
		return IntentBooking
	}

	return IntentUnclear
}

// IsBareYes reports a standalone affirmation, regardless of state. The
// engine uses it where a "oui" needs special routing instead of a commit,
// e.g. the two-way clarification at the opening state.
func IsBareYes(text string) bool {
	return yesTokens[normalize.Fold(text)]
}

// IsBareNo reports a standalone refusal, regardless of state.
func IsBareNo(text string) bool {
	return noTokens[normalize.Fold(text)]
}

// repeatOnly reports whether the utterance consists solely of repeat
// triggers ("pardon", "répétez").
func repeatOnly(folded string) bool {
	words := normalize.Words(folded)
	if len(words) == 0 || len(words) > 2 {
		return false
	}
	for _, w := range words {
		if !repeatTriggers[w] {
			return false
		}
	}
	return true
}
