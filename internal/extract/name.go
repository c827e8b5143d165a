// SPDX-License-Identifier: MIT

package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/voxdesk/voxdesk/internal/normalize"
)

// namePrefixes are dictation lead-ins stripped before the name itself.
// Ordered: longer phrases first so "je m'appelle" wins over "je".
var namePrefixes = []string{
	"alors je m'appelle", "je m'appelle", "je m appelle", "mon nom est",
	"mon nom c'est", "moi c'est", "moi c est", "c'est monsieur", "c'est madame",
	"ici madame", "ici monsieur", "c'est", "c est", "je suis", "ici",
	"bonjour", "bonsoir", "allo", "madame", "monsieur", "docteur", "oui",
}

// nameSuffixes are politeness tails stripped after the name.
var nameSuffixes = []string{
	"merci beaucoup", "merci", "s'il vous plait", "s il vous plait",
	"svp", "voila", "au revoir",
}

// nameFillers can never be a name on their own.
var nameFillers = map[string]bool{
	"euh": true, "heu": true, "hum": true, "bah": true, "ben": true,
	"oui": true, "non": true, "ok": true, "d'accord": true, "voila": true,
	"rendez-vous": true, "rendez": true, "vous": true, "appelle": true,
	"nom": true, "prenom": true, "monsieur": true, "madame": true,
	"docteur": true, "bonjour": true, "merci": true, "allo": true,
	"moi": true, "je": true, "sais": true, "pas": true,
	"voudrais": true, "veux": true, "veut": true, "prendre": true,
	"pour": true, "un": true, "une": true, "avoir": true, "besoin": true,
}

var nameCharRE = regexp.MustCompile(`^[\p{L}][\p{L}' -]*$`)

// Name extracts a plausible caller name from dictated text. It strips
// lead-in and politeness phrases, then applies the plausibility rules
// (PlausibleName). A two-word result scores higher than a single word.
func Name(text string) Result {
	cleaned := normalize.CollapseSpaces(text)
	if cleaned == "" {
		return Result{}
	}

	folded := normalize.Fold(cleaned)
	// Re-scan after each strip: "bonjour c'est jean" sheds two prefixes.
	for stripped := true; stripped; {
		stripped = false
		for _, p := range namePrefixes {
			if strings.HasPrefix(folded, p+" ") {
				folded = strings.TrimSpace(strings.TrimPrefix(folded, p))
				stripped = true
				break
			}
		}
	}
	for _, s := range nameSuffixes {
		if strings.HasSuffix(folded, " "+s) {
			folded = strings.TrimSpace(strings.TrimSuffix(folded, s))
		}
	}
	folded = strings.Trim(folded, " .,!?")

	words := strings.Fields(folded)
	// A whole sentence is never a name answer; re-ask instead of guessing.
	if len(words) > 4 {
		return Result{}
	}
	kept := make([]string, 0, 3)
	for _, w := range words {
		w = strings.Trim(w, ".,!?\"")
		if w == "" || nameFillers[w] {
			continue
		}
		kept = append(kept, w)
		if len(kept) == 3 {
			break
		}
	}
	candidate := strings.Join(kept, " ")
	if !PlausibleName(candidate) {
		return Result{}
	}

	conf := 0.6
	if len(kept) >= 2 {
		conf = 0.9
	}
	return Result{Value: titleCase(candidate), Confidence: conf}
}

// PlausibleName is the single authoritative plausibility check for caller
// names; no other package re-derives these rules. It rejects filler-only,
// too-short, all-vowel and repeated-letter garbage, and requires letters
// with space/hyphen/apostrophe only, length 2-40, at least one consonant.
func PlausibleName(s string) bool {
	s = normalize.Fold(s)
	if s == "" {
		return false
	}
	n := utf8.RuneCountInString(s)
	if n < 2 || n > 40 {
		return false
	}
	if !nameCharRE.MatchString(s) {
		return false
	}

	consonants := 0
	distinct := map[rune]bool{}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		distinct[r] = true
		if !isVowel(r) {
			consonants++
		}
	}
	if consonants == 0 {
		return false
	}
	// "aaaa" / "mmmm" style dictation garbage
	if len(distinct) == 1 && n > 2 {
		return false
	}

	for _, w := range strings.Fields(s) {
		if nameFillers[w] {
			return false
		}
	}
	return true
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
