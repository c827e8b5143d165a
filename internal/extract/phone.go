// SPDX-License-Identifier: MIT

package extract

import (
	"strings"

	"github.com/voxdesk/voxdesk/internal/normalize"
)

// digitWords maps spoken French digits to their value. Compound tens the
// STT commonly emits for phone dictation are included so "soixante six"
// becomes "66" rather than two stray tokens.
var digitWords = map[string]string{
	"zero": "0", "un": "1", "une": "1", "deux": "2", "trois": "3",
	"quatre": "4", "cinq": "5", "six": "6", "sept": "7", "huit": "8",
	"neuf": "9", "dix": "10", "onze": "11", "douze": "12", "treize": "13",
	"quatorze": "14", "quinze": "15", "seize": "16", "vingt": "20",
	"trente": "30", "quarante": "40", "cinquante": "50", "soixante": "60",
}

// Phone extracts a local 10-digit phone number from dictated text. It
// handles spoken digits, "double X" doubling, compound tens, and an
// international prefix; all-same-digit numbers are rejected as dictation
// garbage.
func Phone(text string) Result {
	words := strings.Fields(normalize.Fold(text))

	var sb strings.Builder
	double := false
	for i := 0; i < len(words); i++ {
		w := strings.Trim(words[i], ".,")
		switch w {
		case "double":
			double = true
			continue
		case "plus":
			sb.WriteString("+")
			continue
		}

		var chunk string
		if strings.HasPrefix(w, "+") && isDigits(w[1:]) {
			chunk = w
		} else if isDigits(w) {
			chunk = w
		} else if v, ok := digitWords[w]; ok {
			// "soixante six" -> 66, "soixante dix sept" -> 77 is wrong;
			// compose tens with a following unit before emitting.
			if len(v) == 2 && v[1] == '0' && i+1 < len(words) {
				if unit, ok := digitWords[strings.Trim(words[i+1], ".,")]; ok && len(unit) == 1 {
					chunk = string(v[0]) + unit
					i++
				}
			}
			if chunk == "" {
				chunk = v
			}
		} else {
			double = false
			continue
		}

		if double {
			sb.WriteString(chunk)
			double = false
		}
		sb.WriteString(chunk)
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '+' {
			return r
		}
		return -1
	}, sb.String())

	digits = normalizeInternational(digits)
	if len(digits) != 10 || digits[0] != '0' {
		return Result{}
	}
	if allSameDigit(digits) {
		return Result{}
	}
	return Result{Value: digits, Confidence: 0.9}
}

// normalizeInternational rewrites +33X… / 0033X… as the local 0X… form.
func normalizeInternational(digits string) string {
	switch {
	case strings.HasPrefix(digits, "+33"):
		return "0" + digits[3:]
	case strings.HasPrefix(digits, "0033"):
		return "0" + digits[4:]
	case strings.HasPrefix(digits, "33") && len(digits) == 11:
		return "0" + digits[2:]
	}
	return strings.TrimPrefix(digits, "+")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func allSameDigit(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
