// SPDX-License-Identifier: MIT

package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/voxdesk/voxdesk/internal/normalize"
)

// Canonical time-preference periods handed to the slot service.
const (
	PeriodMorning   = "matin"
	PeriodAfternoon = "apres-midi"
	PeriodEvening   = "soir"
)

// periodKeywords is an ordered pattern table: first match wins, so the
// specific "fin d'apres-midi" outranks the generic "apres-midi".
var periodKeywords = []struct {
	pattern string
	period  string
}{
	{"fin d'apres-midi", PeriodEvening},
	{"fin d apres midi", PeriodEvening},
	{"fin de journee", PeriodEvening},
	{"apres-midi", PeriodAfternoon},
	{"apres midi", PeriodAfternoon},
	{"aprem", PeriodAfternoon},
	{"debut de journee", PeriodMorning},
	{"matinee", PeriodMorning},
	{"matin", PeriodMorning},
	{"soiree", PeriodEvening},
	{"soir", PeriodEvening},
	{"midi", PeriodAfternoon},
	{"dejeuner", PeriodAfternoon},
}

var (
	hourRE  = regexp.MustCompile(`\b(\d{1,2})\s*(?:h|:|heures?|heure)\s*(\d{2})?\b`)
	untilRE = regexp.MustCompile(`(?:avant|jusqu'a|jusqu a|pas apres)\s+(\d{1,2})`)
)

// TimePreference extracts a morning/afternoon/evening preference. An
// explicit hour buckets to morning below 12 and afternoon otherwise; an
// "avant HH"/"jusqu'a HH" upper bound buckets by the bound itself.
func TimePreference(text string) Result {
	folded := normalize.Fold(text)

	for _, kw := range periodKeywords {
		if strings.Contains(folded, kw.pattern) {
			return Result{Value: kw.period, Confidence: 0.9}
		}
	}

	if m := untilRE.FindStringSubmatch(folded); m != nil {
		if h, err := strconv.Atoi(m[1]); err == nil && h >= 0 && h <= 23 {
			if h <= 12 {
				return Result{Value: PeriodMorning, Confidence: 0.7}
			}
			return Result{Value: PeriodAfternoon, Confidence: 0.7}
		}
	}

	if h, ok := Hour(folded); ok {
		if h < 12 {
			return Result{Value: PeriodMorning, Confidence: 0.8}
		}
		return Result{Value: PeriodAfternoon, Confidence: 0.8}
	}

	return Result{}
}

// Hour returns the first explicit hour mentioned in text (0-23).
func Hour(text string) (int, bool) {
	m := hourRE.FindStringSubmatch(normalize.Fold(text))
	if m == nil {
		return 0, false
	}
	h, err := strconv.Atoi(m[1])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

// frenchWeekdays maps folded day names to time.Weekday.
var frenchWeekdays = map[string]time.Weekday{
	"lundi":    time.Monday,
	"mardi":    time.Tuesday,
	"mercredi": time.Wednesday,
	"jeudi":    time.Thursday,
	"vendredi": time.Friday,
	"samedi":   time.Saturday,
	"dimanche": time.Sunday,
}

// Weekday returns the first weekday named in text.
func Weekday(text string) (time.Weekday, bool) {
	for _, w := range normalize.Words(text) {
		if d, ok := frenchWeekdays[w]; ok {
			return d, true
		}
	}
	return 0, false
}
