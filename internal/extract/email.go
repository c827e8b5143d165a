// SPDX-License-Identifier: MIT

package extract

import (
	"regexp"
	"strings"

	"github.com/voxdesk/voxdesk/internal/normalize"
)

// spokenEmailReplacer rewrites dictated separators to symbols. Longer
// phrases first so "arobase" is not left half-replaced.
var spokenEmailReplacer = strings.NewReplacer(
	" arobase ", "@",
	" arobas ", "@",
	" at ", "@",
	" point com", ".com",
	" point fr", ".fr",
	" point net", ".net",
	" point org", ".org",
	" point ", ".",
	" tiret du bas ", "_",
	" tiret bas ", "_",
	" underscore ", "_",
	" tiret ", "-",
	" moins ", "-",
)

var emailRE = regexp.MustCompile(`^[a-z0-9][a-z0-9._%+-]*@[a-z0-9.-]+\.[a-z]{2,}$`)

// Email extracts an address from dictated text, rewriting spoken
// separators ("arobase", "point", "tiret"). Confidence reflects structural
// completeness: a parseable but unusual address confirms instead of
// accepting outright.
func Email(text string) Result {
	replaced := spokenEmailReplacer.Replace(" " + normalize.Fold(text) + " ")

	// Separator replacement glues the dictated address into one token;
	// lead-in words ("je vous donne mon mail") stay space-separated.
	cleaned := ""
	for _, tok := range strings.Fields(replaced) {
		if strings.Contains(tok, "@") {
			cleaned = strings.Trim(tok, ".,;:")
			break
		}
	}

	if strings.Count(cleaned, "@") != 1 {
		return Result{}
	}
	parts := strings.SplitN(cleaned, "@", 2)
	if parts[0] == "" || !strings.Contains(parts[1], ".") {
		return Result{}
	}

	conf := 0.6
	if emailRE.MatchString(cleaned) {
		conf = 0.9
	}
	return Result{Value: cleaned, Confidence: conf}
}
