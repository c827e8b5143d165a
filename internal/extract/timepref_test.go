// SPDX-License-Identifier: MIT

package extract

import (
	"testing"
	"time"
)

func TestTimePreference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"morning keyword", "plutôt le matin", PeriodMorning},
		{"afternoon keyword", "l'après-midi si possible", PeriodAfternoon},
		{"afternoon slang", "l'aprem", PeriodAfternoon},
		{"evening keyword", "le soir après le travail", PeriodEvening},
		{"late afternoon is evening", "en fin d'après-midi", PeriodEvening},
		{"explicit early hour is morning", "vers 9h30", PeriodMorning},
		{"explicit late hour is afternoon", "à 14h", PeriodAfternoon},
		{"upper bound buckets morning", "avant 11 si possible", PeriodMorning},
		{"noon is afternoon", "vers midi", PeriodAfternoon},
		{"no preference", "je ne sais pas", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TimePreference(tt.in)
			if got.Value != tt.want {
				t.Errorf("TimePreference(%q) = %q, want %q", tt.in, got.Value, tt.want)
			}
		})
	}
}

func TestHourAndWeekday(t *testing.T) {
	t.Parallel()

	if h, ok := Hour("mardi à 14h30"); !ok || h != 14 {
		t.Errorf("Hour = %d,%v, want 14,true", h, ok)
	}
	if _, ok := Hour("demain matin"); ok {
		t.Error("Hour found in text without explicit hour")
	}
	if d, ok := Weekday("plutôt mardi prochain"); !ok || d != time.Tuesday {
		t.Errorf("Weekday = %v,%v, want Tuesday,true", d, ok)
	}
	if _, ok := Weekday("peu importe"); ok {
		t.Error("Weekday found in text without day name")
	}
}

func TestReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         string
		want       string
		wantDetail bool
	}{
		{"tooth pain", "j'ai très mal aux dents", ReasonPain, true},
		{"cleaning", "un détartrage", ReasonCleaning, true},
		{"checkup", "une visite de contrôle", ReasonCheckup, true},
		{"prescription", "un renouvellement d'ordonnance", ReasonPrescription, true},
		{"unknown kept verbatim", "ma couronne est tombée hier", ReasonOther, true},
		{"filler only rejected", "euh bah", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Reason(tt.in)
			if got.Value != tt.want {
				t.Errorf("Reason(%q) = %q, want %q", tt.in, got.Value, tt.want)
			}
			if tt.wantDetail && got.Detail == "" {
				t.Errorf("Reason(%q) lost the caller wording", tt.in)
			}
		})
	}
}
