// SPDX-License-Identifier: MIT

package intent

import (
	"strings"

	"github.com/voxdesk/voxdesk/internal/normalize"
)

// Strong-intent lexicons, matched on folded text. Resolution order is
// fixed: EMERGENCY > TRANSFER > CANCEL > MODIFY > ABANDON > ORDONNANCE >
// FAQ. Each entry is a substring membership test except where noted.

var emergencyPhrases = []string{
	"urgence", "c'est urgent", "tres urgent", "je saigne", "saignement",
	"hemorragie", "douleur insupportable", "douleur thoracique",
	"je ne respire plus", "malaise", "perdu connaissance", "gonfle",
	"abces enorme", "fievre tres forte",
}

// transferExplicit needs a request verb plus an object: "passez-moi
// quelqu'un". A bare keyword alone is only a hint (see transferHints).
var transferExplicit = []string{
	"passez-moi", "passez moi", "transferez-moi", "transferez moi",
	"je veux parler a quelqu'un", "je veux parler a un humain",
	"je voudrais parler a quelqu'un", "je voudrais parler a la secretaire",
	"mettez-moi en relation", "mettez moi en relation",
	"donnez-moi quelqu'un", "je veux un humain", "parler a une vraie personne",
	"parler a une personne", "joindre quelqu'un", "joindre la secretaire",
}

// transferHints are single keywords that, alone, are too ambiguous for the
// speech channel to act on directly.
var transferHints = []string{
	"humain", "secretaire", "secrétaire", "standard", "operateur",
	"quelqu'un", "conseiller",
}

var cancelPhrases = []string{
	"annuler", "annulation", "j'annule", "annulez", "decommander",
	"je ne peux pas venir", "je ne pourrai pas venir", "supprimer mon rendez-vous",
}

var modifyPhrases = []string{
	"deplacer", "reporter", "changer mon rendez-vous", "changer de date",
	"modifier", "decaler", "avancer mon rendez-vous", "repousser",
}

var abandonPhrases = []string{
	"laissez tomber", "laisse tomber", "tant pis", "c'est bon merci",
	"non merci au revoir", "je rappellerai", "oubliez",
	"au revoir", "raccrochez", "stop",
}

var ordonnancePhrases = []string{
	"ordonnance", "renouvellement", "renouveler mon traitement",
	"prescription", "mes medicaments",
}

var faqPhrases = []string{
	"quels sont vos horaires", "vos horaires", "vous etes ouvert",
	"c'est ouvert", "quelle adresse", "votre adresse", "ou etes-vous",
	"ou etes vous", "comment venir", "combien ca coute", "quels tarifs",
	"vos tarifs", "c'est rembourse", "carte vitale", "mutuelle",
	"parking", "acces handicape", "une question",
}

var bookingPhrases = []string{
	"rendez-vous", "rendez vous", "rdv", "prendre un rendez",
	"je voudrais un creneau", "prendre rendez-vous", "une consultation",
	"voir le docteur", "voir le medecin",
}

// ClassifyStrong resolves high-confidence intents from lexicon membership
// on normalized text, in fixed precedence order. It returns None when no
// lexicon matches; it never guesses.
func ClassifyStrong(text string) Intent {
	folded := normalize.Fold(text)
	if folded == "" {
		return None
	}

	switch {
	case matchesAny(folded, emergencyPhrases):
		return IntentEmergency
	case matchesAny(folded, transferExplicit):
		return IntentTransfer
	case matchesAny(folded, cancelPhrases):
		return IntentCancel
	case matchesAny(folded, modifyPhrases):
		return IntentModify
	case matchesAny(folded, abandonPhrases):
		return IntentAbandon
	case matchesAny(folded, ordonnancePhrases):
		return IntentOrdonnance
	case matchesAny(folded, faqPhrases):
		return IntentFAQ
	case matchesWholeWordAny(folded, transferHints):
		return IntentTransferHint
	}
	return None
}

// IsBookingPhrase reports whether the utterance is a (possibly repeated)
// high-level booking request, e.g. "je veux un rendez-vous" given as the
// answer to "quel est votre nom ?".
func IsBookingPhrase(text string) bool {
	return matchesAny(normalize.Fold(text), bookingPhrases)
}

func matchesAny(folded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(folded, p) {
			return true
		}
	}
	return false
}

// matchesWholeWordAny forbids substring hits: "humain" must not fire
// inside an unrelated word.
func matchesWholeWordAny(folded string, words []string) bool {
	tokens := normalize.Words(folded)
	for _, t := range tokens {
		for _, w := range words {
			if t == normalize.Fold(w) {
				return true
			}
		}
	}
	return false
}
