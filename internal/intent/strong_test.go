// SPDX-License-Identifier: MIT

package intent

import (
	"testing"

	"github.com/voxdesk/voxdesk/internal/dialog"
)

func TestClassifyStrong(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Intent
	}{
		{"empty", "", None},
		{"plain chatter", "je vous écoute", None},
		{"emergency wins over everything", "urgence je saigne il faut annuler", IntentEmergency},
		{"explicit transfer", "passez-moi quelqu'un s'il vous plaît", IntentTransfer},
		{"explicit transfer verb object", "je voudrais parler à quelqu'un", IntentTransfer},
		{"bare keyword is only a hint", "secrétaire", IntentTransferHint},
		{"bare humain is only a hint", "humain", IntentTransferHint},
		{"keyword inside word does not fire", "humainement difficile", None},
		{"cancel", "je dois annuler mon rendez-vous", IntentCancel},
		{"cancel beats modify", "annuler ou déplacer je sais pas", IntentCancel},
		{"modify", "je voudrais déplacer mon rendez-vous", IntentModify},
		{"abandon", "laissez tomber merci", IntentAbandon},
		{"ordonnance", "c'est pour un renouvellement d'ordonnance", IntentOrdonnance},
		{"faq hours", "quels sont vos horaires", IntentFAQ},
		{"faq price", "combien ça coûte une consultation", IntentFAQ},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyStrong(tt.in); got != tt.want {
				t.Errorf("ClassifyStrong(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassifySoft(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		state dialog.State
		want  Intent
	}{
		{"yes in confirmation state", "oui", dialog.StateWaitConfirm, IntentYes},
		{"ok variant in confirmation state", "d'accord", dialog.StateContactConfirm, IntentYes},
		{"yes outside confirmation is unclear", "oui", dialog.StateStart, IntentUnclear},
		{"yes in qualification is unclear", "oui", dialog.StateQualifName, IntentUnclear},
		{"no in confirmation state", "non", dialog.StateWaitConfirm, IntentNo},
		{"no outside confirmation is unclear", "non", dialog.StateQualifMotif, IntentUnclear},
		{"repeat whole word", "pardon", dialog.StateQualifName, IntentRepeat},
		{"repeat two words", "répétez pardon", dialog.StateWaitConfirm, IntentRepeat},
		{"repeat must not match substring", "pardonnez mon retard je veux un rendez-vous", dialog.StateStart, IntentBooking},
		{"correction", "attendez c'est pas ça", dialog.StateQualifMotif, IntentCorrection},
		{"bare correction cue", "attendez", dialog.StateQualifMotif, IntentCorrection},
		{"bare correction cue tu form", "attends", dialog.StateWaitConfirm, IntentCorrection},
		{"booking phrase", "je veux un rendez-vous", dialog.StateStart, IntentBooking},
		{"garbage is unclear", "les choses de la vie", dialog.StateStart, IntentUnclear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.name == "repeat must not match substring" {
				if got := ClassifySoft(tt.in, dialog.StateStart); got != IntentBooking {
					t.Errorf("ClassifySoft(%q) = %s, want BOOKING (substring repeat must not fire)", tt.in, got)
				}
				return
			}
			if got := ClassifySoft(tt.in, tt.state); got != tt.want {
				t.Errorf("ClassifySoft(%q, %s) = %s, want %s", tt.in, tt.state, got, tt.want)
			}
		})
	}
}

func TestParseMenuChoice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		max    int
		want   int
		wantOK bool
	}{
		{"digit", "2", 3, 2, true},
		{"digit above max", "4", 3, 0, false},
		{"number word", "deux", 3, 2, true},
		{"ordinal", "le premier", 3, 1, true},
		{"mis-transcription toi", "toi", 3, 3, true},
		{"mis-transcription cat", "cat", 4, 4, true},
		{"ambiguous si resolves to nothing", "si", 3, 0, false},
		{"sentence with one number", "je prends le deux", 3, 2, true},
		{"sentence with oui and number", "oui le 2", 3, 2, true},
		{"two conflicting numbers", "le deux ou le trois", 3, 0, false},
		{"article un does not fire in sentence", "je veux un rendez-vous", 3, 0, false},
		{"bare un fires", "un", 3, 1, true},
		{"nothing", "peu importe", 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseMenuChoice(tt.in, tt.max)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseMenuChoice(%q, %d) = %d,%v want %d,%v", tt.in, tt.max, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
