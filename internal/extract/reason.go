// SPDX-License-Identifier: MIT

package extract

import (
	"strings"

	"github.com/voxdesk/voxdesk/internal/normalize"
)

// Canonical visit reasons. ReasonOther still carries the caller's own
// wording in the Detail field so nothing is lost.
const (
	ReasonConsultation = "consultation"
	ReasonPain         = "douleur"
	ReasonCheckup      = "controle"
	ReasonCleaning     = "detartrage"
	ReasonEmergencyVis = "urgence"
	ReasonPrescription = "ordonnance"
	ReasonOther        = "autre"
)

// reasonPatterns is an ordered pattern table; specific complaints outrank
// the generic consultation bucket.
var reasonPatterns = []struct {
	pattern string
	reason  string
}{
	{"rage de dents", ReasonPain},
	{"mal aux dents", ReasonPain},
	{"mal de dents", ReasonPain},
	{"tres mal", ReasonPain},
	{"douleur", ReasonPain},
	{"j'ai mal", ReasonPain},
	{"ca fait mal", ReasonPain},
	{"urgence", ReasonEmergencyVis},
	{"urgent", ReasonEmergencyVis},
	{"detartrage", ReasonCleaning},
	{"nettoyage", ReasonCleaning},
	{"controle", ReasonCheckup},
	{"visite de controle", ReasonCheckup},
	{"bilan", ReasonCheckup},
	{"ordonnance", ReasonPrescription},
	{"renouvellement", ReasonPrescription},
	{"prescription", ReasonPrescription},
	{"consultation", ReasonConsultation},
	{"rendez-vous de suivi", ReasonCheckup},
	{"suivi", ReasonCheckup},
	{"premiere fois", ReasonConsultation},
	{"nouveau patient", ReasonConsultation},
}

// ReasonResult extends Result with the caller's own wording.
type ReasonResult struct {
	Result
	Detail string
}

// Reason buckets the visit motive. Unknown motives are kept verbatim in
// Detail under the ReasonOther bucket rather than guessed into a wrong one,
// provided they look like content at all.
func Reason(text string) ReasonResult {
	folded := normalize.Fold(text)
	detail := normalize.CollapseSpaces(text)

	for _, rp := range reasonPatterns {
		if strings.Contains(folded, rp.pattern) {
			return ReasonResult{
				Result: Result{Value: rp.reason, Confidence: 0.9},
				Detail: detail,
			}
		}
	}

	words := normalize.Words(folded)
	content := 0
	for _, w := range words {
		if len(w) >= 4 {
			content++
		}
	}
	if content == 0 {
		return ReasonResult{}
	}
	return ReasonResult{
		Result: Result{Value: ReasonOther, Confidence: 0.6},
		Detail: detail,
	}
}
