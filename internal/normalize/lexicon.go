// SPDX-License-Identifier: MIT

package normalize

// Declarative lexicons for the edge-case guard. Entries are matched against
// folded (lowercased, accent-stripped) tokens.

// criticalTokens must survive arbitrarily low STT confidence: losing a bare
// "oui" or a menu digit mid-confirmation breaks the flow.
var criticalTokens = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, t := range []string{
		"1", "2", "3", "4", "5", "6", "7", "8", "9",
		"un", "deux", "trois", "quatre", "cinq",
		"premier", "premiere", "deuxieme", "troisieme",
		"oui", "ouais", "ouai", "si", "non", "nan",
		"ok", "d'accord", "daccord", "exact", "voila",
		"stop", "repete", "repetez", "pardon",
		"attends", "attendez",
	} {
		m[t] = struct{}{}
	}
	return m
}()

// fillerWords are dictation artifacts that carry no content on their own.
var fillerWords = map[string]bool{
	"euh": true, "heu": true, "hum": true, "hmm": true, "mmm": true,
	"bah": true, "ben": true, "bon": true, "alors": true, "donc": true,
	"enfin": true, "voyons": true,
	"la": true, "le": true, "de": true, "du": true, "des": true,
	"et": true, "ah": true, "oh": true, "eh": true,
}

// foreignStopWords is a small English function-word set; a transcript whose
// folded words exceed the configured ratio of these is not in the deployment
// locale.
var foreignStopWords = map[string]bool{
	"the": true, "and": true, "you": true, "your": true, "what": true,
	"this": true, "that": true, "with": true, "for": true, "are": true,
	"was": true, "have": true, "can": true, "could": true, "would": true,
	"hello": true, "please": true, "thanks": true, "thank": true,
	"want": true, "need": true, "appointment": true, "about": true,
	"speak": true, "english": true, "sorry": true, "yes": true,
	"tomorrow": true, "morning": true, "doctor": true,
}

// profanityLexicon triggers a silent hand-off; the caller never hears an
// automated reply to abuse.
var profanityLexicon = map[string]bool{
	"connard": true, "connasse": true, "salope": true, "pute": true,
	"encule": true, "enfoire": true, "batard": true, "fdp": true,
	"nique": true, "niquer": true, "ntm": true, "pd": true,
	"abruti": true, "debile": true,
}
