// SPDX-License-Identifier: MIT

package engine

import (
	"errors"
	"strings"

	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/extract"
	"github.com/voxdesk/voxdesk/internal/intent"
	"github.com/voxdesk/voxdesk/internal/metrics"
	"github.com/voxdesk/voxdesk/internal/session"
	"github.com/voxdesk/voxdesk/internal/slots"
	"github.com/voxdesk/voxdesk/internal/validation"
)

// extractName runs the name extractor and returns the accepted value or
// empty. One function is authoritative for name plausibility everywhere.
func extractName(text string) string {
	res := extract.Name(text)
	if !res.OK() {
		return ""
	}
	return res.Value
}

// nextQualifStep resumes the booking path at the first missing field.
func (e *Engine) nextQualifStep(sess *session.Session) reply {
	sess.ResetProgressCounters()
	sess.Count.StartUnclear = 0
	switch {
	case sess.Qualif.Name == "":
		sess.TransitionTo(dialog.StateQualifName)
		return ask(validation.SayAskName)
	case sess.Qualif.Reason == "":
		sess.TransitionTo(dialog.StateQualifMotif)
		return ask(validation.SayAskMotif, sess.Qualif.Name)
	case sess.Qualif.TimePreference == "":
		sess.TransitionTo(dialog.StateQualifPref)
		return ask(validation.SayAskPref)
	default:
		sess.TransitionTo(dialog.StatePreferenceConfirm)
		sess.Await(session.ConfirmPreference)
		return ask(validation.SayConfirmPref, preferenceLabel(sess.Qualif.TimePreference))
	}
}

func preferenceLabel(pref string) string {
	switch pref {
	case extract.PeriodMorning:
		return "le matin"
	case extract.PeriodAfternoon:
		return "l'après-midi"
	case extract.PeriodEvening:
		return "la fin de journée"
	default:
		return pref
	}
}

// --- START and CLARIFY -------------------------------------------------------

func (e *Engine) handleStart(t *turn, strong, soft intent.Intent) reply {
	sess := t.sess

	if soft == intent.IntentBooking {
		return e.nextQualifStep(sess)
	}

	// A bare "oui" with nothing awaited never advances: two-way clarify.
	if intent.IsBareYes(t.folded) {
		sess.TransitionTo(dialog.StateClarify)
		return ask(validation.SayClarifyStart)
	}

	// An opening utterance may simply be a practice question.
	if m, ok := e.faq.Lookup(t.folded); ok {
		return e.faqAnswerReply(sess, m.Entry)
	}

	if e.assist != nil && intent.ShouldAttemptFallback(t.folded, intent.IntentUnclear, strong) {
		if out, ok := e.assist.Classify(t.ctx, t.raw); ok {
			metrics.LLMFallbackTotal.WithLabelValues("accepted").Inc()
			if r, handled := e.applyAssist(t, out); handled {
				return r
			}
		} else {
			metrics.LLMFallbackTotal.WithLabelValues("rejected").Inc()
		}
	}

	sess.Count.StartUnclear++
	if sess.Count.StartUnclear >= maxInputStrikes {
		return e.enterRouter(sess, "start_unclear")
	}
	sess.TransitionTo(dialog.StateClarify)
	return ask(validation.SayClarifyStart)
}

// applyAssist maps a validated assist outcome onto the state machine. The
// assist only narrows ambiguity; anything unclear falls through.
func (e *Engine) applyAssist(t *turn, out intent.Outcome) (reply, bool) {
	sess := t.sess
	switch out.Intent {
	case intent.IntentBooking:
		return e.nextQualifStep(sess), true
	case intent.IntentFAQ:
		if entry, ok := e.faq.ByKey(out.FAQBucket); ok {
			return e.faqAnswerReply(sess, entry), true
		}
	case intent.IntentCancel:
		sess.TransitionTo(dialog.StateCancelName)
		return ask(validation.SayCancelAskName), true
	case intent.IntentModify:
		sess.TransitionTo(dialog.StateModifyName)
		return ask(validation.SayModifyAskName), true
	case intent.IntentOrdonnance:
		return e.enterOrdonnance(sess), true
	case intent.IntentTransfer:
		return e.transferNow(sess, dialog.TransferExplicitRequest, validation.SayTransfer), true
	case intent.IntentOutOfScope:
		if out.OutOfScopeReply != "" {
			return reply{sayKey: validation.SayAssistReply, freeText: out.OutOfScopeReply}, true
		}
	}
	if out.ShouldClarify {
		sess.TransitionTo(dialog.StateClarify)
		return ask(validation.SayClarifyStart), true
	}
	return reply{}, false
}

func (e *Engine) handleClarify(t *turn, soft intent.Intent) reply {
	sess := t.sess

	if soft == intent.IntentBooking || strings.Contains(t.folded, "rendez") {
		return e.nextQualifStep(sess)
	}
	if soft == intent.IntentNo || strings.Contains(t.folded, "question") {
		sess.TransitionTo(dialog.StatePostFAQChoice)
		return ask(validation.SayAskQuestion)
	}
	if soft == intent.IntentYes {
		// "oui" answers neither side of a two-way question.
		sess.Count.StartUnclear++
		if sess.Count.StartUnclear >= maxInputStrikes {
			return e.enterRouter(sess, "start_unclear")
		}
		return ask(validation.SayClarifyRepeat)
	}
	if m, ok := e.faq.Lookup(t.folded); ok {
		return e.faqAnswerReply(sess, m.Entry)
	}

	sess.Count.StartUnclear++
	if sess.Count.StartUnclear >= maxInputStrikes {
		return e.enterRouter(sess, "start_unclear")
	}
	return ask(validation.SayClarifyRepeat)
}

// --- qualification ------------------------------------------------------------

func (e *Engine) handleQualifName(t *turn) reply {
	sess := t.sess

	// Repeating the high-level request is not an invalid answer; guide
	// without burning a strike.
	if intent.IsBookingPhrase(t.folded) {
		return ask(validation.SayAskName)
	}

	if name := extractName(t.raw); name != "" {
		sess.Qualif.Name = name
		sess.Count.NameFails = 0
		sess.ResetProgressCounters()
		sess.TransitionTo(dialog.StateQualifMotif)
		return ask(validation.SayAskMotif, name)
	}

	sess.Count.NameFails++
	if sess.Count.NameFails >= maxFieldFails {
		return e.enterRouter(sess, "name_fails")
	}
	return ask(validation.SayAskNameRetry)
}

func (e *Engine) handleQualifMotif(t *turn) reply {
	sess := t.sess

	if intent.IsBookingPhrase(t.folded) {
		return ask(validation.SayAskMotifRetry)
	}

	if res := extract.Reason(t.raw); res.OK() {
		sess.Qualif.Reason = res.Value
		sess.Qualif.ReasonDetail = res.Detail
		sess.Count.MotifFails = 0
		sess.ResetProgressCounters()
		sess.TransitionTo(dialog.StateQualifPref)
		return ask(validation.SayAskPref)
	}

	sess.Count.MotifFails++
	if sess.Count.MotifFails >= maxFieldFails {
		return e.enterRouter(sess, "motif_fails")
	}
	return ask(validation.SayAskMotifRetry)
}

func (e *Engine) handleQualifPref(t *turn) reply {
	sess := t.sess

	if res := extract.TimePreference(t.folded); res.OK() {
		sess.Qualif.TimePreference = res.Value
		sess.Count.PreferenceFails = 0
		sess.ResetProgressCounters()
		sess.TransitionTo(dialog.StatePreferenceConfirm)
		sess.Await(session.ConfirmPreference)
		return ask(validation.SayConfirmPref, preferenceLabel(res.Value))
	}

	sess.Count.PreferenceFails++
	if sess.Count.PreferenceFails >= maxFieldFails {
		return e.enterRouter(sess, "preference_fails")
	}
	return ask(validation.SayAskPrefRetry)
}

func (e *Engine) handlePreferenceConfirm(t *turn, soft intent.Intent) reply {
	sess := t.sess

	switch soft {
	case intent.IntentYes:
		sess.ClearAwait()
		sess.ResetProgressCounters()
		return e.proposeSlots(t)
	case intent.IntentNo:
		sess.ClearAwait()
		sess.Qualif.TimePreference = ""
		sess.TransitionTo(dialog.StateQualifPref)
		return ask(validation.SayAskPrefRetry)
	}

	// The caller may restate a different preference instead of yes/no.
	if res := extract.TimePreference(t.folded); res.OK() {
		sess.Qualif.TimePreference = res.Value
		return ask(validation.SayConfirmPref, preferenceLabel(res.Value))
	}
	return ask(validation.SayConfirmPref, preferenceLabel(sess.Qualif.TimePreference))
}

// --- slot proposal protocol ----------------------------------------------------

// proposeSlots fetches candidates and enumerates the first batch. No
// availability is a non-recoverable transfer.
func (e *Engine) proposeSlots(t *turn) reply {
	sess := t.sess
	candidates, err := e.slots.ListCandidates(t.ctx, sess.Qualif.TimePreference)
	if err != nil || len(candidates) == 0 {
		return e.transferNow(sess, dialog.TransferNoAvailability, validation.SayTransferNoSlots)
	}

	sess.TransitionTo(dialog.StateWaitConfirm)
	sess.ProposeSlots(candidates)

	batch := sess.PendingSlots[:min(slotBatchSize, len(sess.PendingSlots))]
	labels := make([]string, len(batch))
	for i, s := range batch {
		labels[i] = s.VocalLabel
		if labels[i] == "" {
			labels[i] = s.Label
		}
	}
	return ask(validation.SayProposeSlots, strings.Join(labels, " ; "))
}

func (e *Engine) handleWaitConfirm(t *turn, soft intent.Intent) reply {
	sess := t.sess
	batch := min(slotBatchSize, len(sess.PendingSlots))

	// An armed slot confirmation resolves bare yes/no first.
	if sess.AwaitingConfirmation == session.ConfirmSlot {
		switch soft {
		case intent.IntentYes:
			if !sess.AcceptChosenSlot() {
				return e.transferNow(sess, dialog.TransferInternalError, validation.SayTransfer)
			}
			sess.ResetProgressCounters()
			sess.TransitionTo(dialog.StateQualifContact)
			return ask(validation.SayAskContact)
		case intent.IntentNo:
			if rejected, ok := sess.ChosenSlot(); ok {
				sess.RejectSlot(rejected.ID)
				return e.offerNextSlot(t)
			}
			sess.ClearAwait()
		}
	}

	// Early commit: an explicit index or ordinal wins mid-enumeration.
	if n, ok := intent.ParseMenuChoice(t.folded, batch); ok {
		if sess.ChooseSlot(n) {
			sess.Count.YesAmbiguous = 0
			slot, _ := sess.ChosenSlot()
			return ask(validation.SayConfirmSlot, slotLabel(slot))
		}
	}

	// Early commit by day and/or hour, when it names exactly one candidate.
	if idx, ok := matchSlotByDayHour(t.folded, sess.PendingSlots[:batch]); ok {
		if sess.ChooseSlot(idx) {
			sess.Count.YesAmbiguous = 0
			slot, _ := sess.ChosenSlot()
			return ask(validation.SayConfirmSlot, slotLabel(slot))
		}
	}

	switch soft {
	case intent.IntentYes:
		// A bare "oui" with no locatable referent: re-ask, not a failure.
		sess.Count.YesAmbiguous++
		switch {
		case sess.Count.YesAmbiguous >= maxYesAmbiguous:
			return e.enterRouter(sess, "yes_ambiguous")
		case sess.Count.YesAmbiguous == 2:
			return ask(validation.SayReaskChoiceHard)
		default:
			return ask(validation.SayReaskChoice)
		}

	case intent.IntentNo:
		// None of the enumerated batch suits: switch to sequential mode.
		for _, s := range sess.PendingSlots[:batch] {
			sess.RejectSlot(s.ID)
		}
		return e.offerNextSlot(t)
	}

	sess.Count.SlotChoiceFails++
	if sess.Count.SlotChoiceFails >= maxFieldFails {
		return e.enterRouter(sess, "slot_choice_fails")
	}
	return ask(validation.SayReaskChoice)
}

// offerNextSlot advances the sequential cursor, skipping candidates within
// the neighbor window of anything already rejected.
func (e *Engine) offerNextSlot(t *turn) reply {
	sess := t.sess
	// Entering sequential mode rewinds to the top of the list: batch
	// candidates the caller never declined, such as the two left behind
	// after an early commit was rejected, are offered one by one. Already
	// rejected slots are skipped below, so the rewind never repeats one.
	if sess.SlotOfferIndex < slotBatchSize {
		sess.SlotOfferIndex = 0
	}

	rejected := rejectedSlots(sess)
	for sess.SlotOfferIndex < len(sess.PendingSlots) {
		idx := sess.SlotOfferIndex
		cand := sess.PendingSlots[idx]
		sess.SlotOfferIndex++

		if isRejected(sess, cand.ID) || tooCloseToRejected(cand, rejected) {
			continue
		}
		sess.ChooseSlot(idx + 1)
		return ask(validation.SayProposeNext, slotLabel(cand))
	}
	return e.transferNow(sess, dialog.TransferNoAvailability, validation.SayTransferNoSlots)
}

func rejectedSlots(sess *session.Session) []slots.Slot {
	out := make([]slots.Slot, 0, len(sess.RejectedSlotsIDs))
	for _, s := range sess.PendingSlots {
		if isRejected(sess, s.ID) {
			out = append(out, s)
		}
	}
	return out
}

func isRejected(sess *session.Session, id string) bool {
	for _, r := range sess.RejectedSlotsIDs {
		if r == id {
			return true
		}
	}
	return false
}

// tooCloseToRejected skips candidates effectively identical to a declined
// one: within ±90 minutes of its start.
func tooCloseToRejected(cand slots.Slot, rejected []slots.Slot) bool {
	for _, r := range rejected {
		d := cand.Start.Sub(r.Start)
		if d < 0 {
			d = -d
		}
		if d <= neighborSkipWindow {
			return true
		}
	}
	return false
}

// matchSlotByDayHour resolves "mercredi", "à 10 heures" or both to a
// unique candidate. Ambiguity yields no match.
func matchSlotByDayHour(folded string, batch []slots.Slot) (int, bool) {
	weekday, hasDay := extract.Weekday(folded)
	hour, hasHour := extract.Hour(folded)
	if !hasDay && !hasHour {
		return 0, false
	}

	matched, count := 0, 0
	for i, s := range batch {
		if hasDay && s.Start.Weekday() != weekday {
			continue
		}
		if hasHour && s.Start.Hour() != hour {
			continue
		}
		matched, count = i+1, count+1
	}
	if count != 1 {
		return 0, false
	}
	return matched, true
}

func slotLabel(s slots.Slot) string {
	if s.VocalLabel != "" {
		return s.VocalLabel
	}
	return s.Label
}

// --- contact collection ---------------------------------------------------------

func (e *Engine) handleQualifContact(t *turn) reply {
	sess := t.sess

	if res := extract.Phone(t.folded); res.OK() {
		sess.Qualif.Contact = res.Value
		sess.Qualif.ContactKind = "phone"
		sess.Count.PhoneFails = 0
		sess.TransitionTo(dialog.StateContactConfirm)
		sess.Await(session.ConfirmContact)
		return ask(validation.SayConfirmContact, spellPhone(res.Value))
	}
	if res := extract.Email(t.folded); res.OK() {
		sess.Qualif.Contact = res.Value
		sess.Qualif.ContactKind = "email"
		sess.Count.PhoneFails = 0
		sess.TransitionTo(dialog.StateContactConfirm)
		sess.Await(session.ConfirmContact)
		return ask(validation.SayConfirmContact, res.Value)
	}

	sess.Count.PhoneFails++
	if sess.Count.PhoneFails >= maxFieldFails {
		return e.enterRouter(sess, "phone_fails")
	}
	return ask(validation.SayAskContactRetry)
}

// spellPhone renders a 10-digit number in dictation pairs ("06 12 34 …")
// so the read-back matches how French numbers are spoken.
func spellPhone(digits string) string {
	if len(digits) != 10 {
		return digits
	}
	pairs := make([]string, 0, 5)
	for i := 0; i < 10; i += 2 {
		pairs = append(pairs, digits[i:i+2])
	}
	return strings.Join(pairs, " ")
}

func (e *Engine) handleContactConfirm(t *turn, soft intent.Intent) reply {
	sess := t.sess

	switch soft {
	case intent.IntentYes:
		sess.ClearAwait()
		return e.bookChosenSlot(t)
	case intent.IntentNo:
		sess.ClearAwait()
		sess.Qualif.Contact = ""
		sess.Qualif.ContactKind = ""
		sess.Count.ContactConfirmFails++
		if sess.Count.ContactConfirmFails >= maxFieldFails {
			return e.enterRouter(sess, "contact_confirm_fails")
		}
		sess.TransitionTo(dialog.StateQualifContact)
		return ask(validation.SayAskContactRetry)
	}

	// A corrected number said directly replaces the pending one.
	if res := extract.Phone(t.folded); res.OK() {
		sess.Qualif.Contact = res.Value
		sess.Qualif.ContactKind = "phone"
		return ask(validation.SayConfirmContact, spellPhone(res.Value))
	}

	contact := sess.Qualif.Contact
	if sess.Qualif.ContactKind == "phone" {
		contact = spellPhone(contact)
	}
	return ask(validation.SayConfirmContact, contact)
}

// bookChosenSlot books the exact slot the caller confirmed. A conflict
// moves on to the next candidate rather than re-fetching.
func (e *Engine) bookChosenSlot(t *turn) reply {
	sess := t.sess
	if sess.SelectedSlot == nil {
		return e.transferNow(sess, dialog.TransferInternalError, validation.SayTransfer)
	}
	slot := *sess.SelectedSlot

	err := e.slots.Book(t.ctx, slot, slots.ContactInfo{
		Name:        sess.Qualif.Name,
		Reason:      sess.Qualif.Reason,
		Contact:     sess.Qualif.Contact,
		ContactKind: sess.Qualif.ContactKind,
	})
	switch {
	case err == nil:
		sess.ClearSlots()
		sess.TransitionTo(dialog.StateConfirmed)
		return say(validation.SayConfirmed)
	case errors.Is(err, slots.ErrConflict):
		sess.SelectedSlot = nil
		sess.RejectSlot(slot.ID)
		sess.TransitionTo(dialog.StateWaitConfirm)
		return e.offerNextSlot(t)
	default:
		return e.transferNow(sess, dialog.TransferInternalError, validation.SayTransfer)
	}
}
