// SPDX-License-Identifier: MIT

package extract

import "testing"

func TestName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain full name", "Jean Dupont", "Jean Dupont"},
		{"with lead-in", "je m'appelle Jean Dupont", "Jean Dupont"},
		{"stacked lead-ins", "bonjour c'est Marie Durand", "Marie Durand"},
		{"with politeness tail", "c'est Paul Martin merci", "Paul Martin"},
		{"accented name folds", "José Müller", "Jose Muller"},
		{"compound name", "Jean-Pierre Dubois", "Jean-pierre Dubois"},
		{"filler only rejected", "euh bah oui", ""},
		{"single letter rejected", "a", ""},
		{"all vowels rejected", "aie aie", ""},
		{"repeated letter garbage rejected", "mmmm", ""},
		{"digits rejected", "jean 42", ""},
		{"booking phrase rejected", "je voudrais un rendez vous", ""},
		{"dont know rejected", "je sais pas", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Name(tt.in)
			if got.Value != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.in, got.Value, tt.want)
			}
			if tt.want != "" && !got.OK() {
				t.Errorf("Name(%q) confidence = %v, want > 0", tt.in, got.Confidence)
			}
		})
	}
}

func TestPlausibleName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"Dupont", true},
		{"jean dupont", true},
		{"o'neill", true},
		{"", false},
		{"a", false},
		{"aaaa", false},
		{"oui", false},
		{"jean2", false},
		{"ouiii aeiou", false},
	}
	for _, tt := range tests {
		if got := PlausibleName(tt.in); got != tt.want {
			t.Errorf("PlausibleName(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
