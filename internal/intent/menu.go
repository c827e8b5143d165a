// SPDX-License-Identifier: MIT

package intent

import (
	"strconv"

	"github.com/voxdesk/voxdesk/internal/normalize"
)

// menuWords maps folded tokens to a menu index. Besides numerals and
// ordinals it carries known speech-to-text mis-transcriptions observed in
// production ("toi" for "trois", "cat" for "quatre").
var menuWords = map[string]int{
	"un": 1, "une": 1, "premier": 1, "premiere": 1, "le premier": 1,
	"deux": 2, "deuxieme": 2, "second": 2, "seconde": 2,
	"trois": 3, "troisieme": 3, "toi": 3, "trois heures": 3,
	"quatre": 4, "quatrieme": 4, "cat": 4, "quat": 4,
	"cinq": 5, "cinquieme": 5, "saint": 5,
}

// ambiguousMenuTokens could mean a number or something else entirely
// ("si" is both "six" and "yes"); they must resolve to no-choice so the
// caller asks the user to disambiguate rather than guess.
var ambiguousMenuTokens = map[string]bool{
	"si": true, "sans": true, "de": true, "la": true, "nef": true,
}

// ParseMenuChoice maps an utterance to a 1-based menu index, bounded by
// max. Genuinely ambiguous tokens resolve to (0, false).
func ParseMenuChoice(text string, max int) (int, bool) {
	folded := normalize.Fold(text)
	if folded == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(folded); err == nil {
		if n >= 1 && n <= max {
			return n, true
		}
		return 0, false
	}

	if ambiguousMenuTokens[folded] {
		return 0, false
	}
	if n, ok := menuWords[folded]; ok && n <= max {
		return n, true
	}

	// Multi-word utterances: a single unambiguous number word decides
	// ("le deux", "oui le premier"); two different ones cancel out.
	found := 0
	for _, w := range normalize.Words(folded) {
		if ambiguousMenuTokens[w] {
			continue
		}
		// "un"/"une" are articles in a sentence; only a bare "un" counts.
		if w == "un" || w == "une" {
			continue
		}
		if d, err := strconv.Atoi(w); err == nil && d >= 1 && d <= max {
			if found != 0 && found != d {
				return 0, false
			}
			found = d
			continue
		}
		if n, ok := menuWords[w]; ok && n <= max {
			if found != 0 && found != n {
				return 0, false
			}
			found = n
		}
	}
	if found >= 1 {
		return found, true
	}
	return 0, false
}
