// SPDX-License-Identifier: MIT

package engine

import (
	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/extract"
	"github.com/voxdesk/voxdesk/internal/intent"
	"github.com/voxdesk/voxdesk/internal/normalize"
	"github.com/voxdesk/voxdesk/internal/session"
	"github.com/voxdesk/voxdesk/internal/slots"
	"github.com/voxdesk/voxdesk/internal/validation"
)

// --- cancellation ------------------------------------------------------------

func (e *Engine) handleCancelName(t *turn) reply {
	sess := t.sess

	if name := extractName(t.raw); name != "" {
		sess.Qualif.Name = name
		sess.Count.NameFails = 0
		sess.TransitionTo(dialog.StateCancelConfirm)
		sess.Await(session.ConfirmCancel)
		return ask(validation.SayCancelConfirm, name)
	}

	sess.Count.NameFails++
	if sess.Count.NameFails >= maxFieldFails {
		return e.enterRouter(sess, "name_fails")
	}
	return ask(validation.SayAskNameRetry)
}

func (e *Engine) handleCancelConfirm(t *turn, soft intent.Intent) reply {
	sess := t.sess

	switch soft {
	case intent.IntentYes:
		sess.ClearAwait()
		if err := e.slots.Cancel(t.ctx, sess.Qualif.Name); err != nil {
			// The appointment could not be located; a human verifies.
			return e.transferNow(sess, dialog.TransferInternalError, validation.SayCancelNotFound)
		}
		sess.TransitionTo(dialog.StateCancelDone)
		return say(validation.SayCancelDone)
	case intent.IntentNo:
		sess.ClearAwait()
		sess.Qualif.Name = ""
		sess.TransitionTo(dialog.StateCancelName)
		return ask(validation.SayCancelAskName)
	}
	return ask(validation.SayCancelConfirm, sess.Qualif.Name)
}

// --- modification ------------------------------------------------------------

func (e *Engine) handleModifyName(t *turn) reply {
	sess := t.sess

	if name := extractName(t.raw); name != "" {
		sess.Qualif.Name = name
		sess.Count.NameFails = 0
		sess.TransitionTo(dialog.StateModifyPref)
		return ask(validation.SayModifyAskPref)
	}

	sess.Count.NameFails++
	if sess.Count.NameFails >= maxFieldFails {
		return e.enterRouter(sess, "name_fails")
	}
	return ask(validation.SayAskNameRetry)
}

func (e *Engine) handleModifyPref(t *turn) reply {
	sess := t.sess

	res := extract.TimePreference(t.folded)
	if !res.OK() {
		sess.Count.PreferenceFails++
		if sess.Count.PreferenceFails >= maxFieldFails {
			return e.enterRouter(sess, "preference_fails")
		}
		return ask(validation.SayAskPrefRetry)
	}
	sess.Qualif.TimePreference = res.Value
	sess.Count.PreferenceFails = 0

	candidates, err := e.slots.ListCandidates(t.ctx, res.Value)
	if err != nil || len(candidates) == 0 {
		return e.transferNow(sess, dialog.TransferNoAvailability, validation.SayTransferNoSlots)
	}

	sess.TransitionTo(dialog.StateModifyConfirm)
	sess.OfferSlot(candidates[0], session.ConfirmModify)
	return ask(validation.SayModifyConfirm, slotLabel(candidates[0]))
}

func (e *Engine) handleModifyConfirm(t *turn, soft intent.Intent) reply {
	sess := t.sess

	switch soft {
	case intent.IntentYes:
		sess.ClearAwait()
		slot, ok := sess.ChosenSlot()
		if !ok {
			return e.transferNow(sess, dialog.TransferInternalError, validation.SayTransfer)
		}
		if err := e.slots.Cancel(t.ctx, sess.Qualif.Name); err != nil {
			return e.transferNow(sess, dialog.TransferInternalError, validation.SayCancelNotFound)
		}
		if err := e.slots.Book(t.ctx, slot, slots.ContactInfo{
			Name:   sess.Qualif.Name,
			Reason: sess.Qualif.Reason,
		}); err != nil {
			return e.transferNow(sess, dialog.TransferNoAvailability, validation.SayTransferNoSlots)
		}
		sess.ClearSlots()
		sess.TransitionTo(dialog.StateConfirmed)
		return say(validation.SayConfirmed)
	case intent.IntentNo:
		sess.ClearAwait()
		sess.ClearSlots()
		sess.Qualif.TimePreference = ""
		sess.TransitionTo(dialog.StateModifyPref)
		return ask(validation.SayModifyAskPref)
	}

	chosen, _ := sess.ChosenSlot()
	return ask(validation.SayModifyConfirm, slotLabel(chosen))
}

// --- prescription renewal ------------------------------------------------------

// enterOrdonnance starts the renewal flow, skipping the name question when
// qualification already captured one.
func (e *Engine) enterOrdonnance(sess *session.Session) reply {
	sess.ClearAwait()
	if sess.Qualif.Name != "" {
		sess.TransitionTo(dialog.StateOrdonnanceDetail)
		return ask(validation.SayOrdoAskDetail, sess.Qualif.Name)
	}
	sess.TransitionTo(dialog.StateOrdonnanceName)
	return ask(validation.SayOrdoAskName)
}

func (e *Engine) handleOrdonnanceName(t *turn) reply {
	sess := t.sess

	if name := extractName(t.raw); name != "" {
		sess.Qualif.Name = name
		sess.Count.NameFails = 0
		sess.TransitionTo(dialog.StateOrdonnanceDetail)
		return ask(validation.SayOrdoAskDetail, name)
	}

	sess.Count.NameFails++
	if sess.Count.NameFails >= maxFieldFails {
		return e.enterRouter(sess, "name_fails")
	}
	return ask(validation.SayAskNameRetry)
}

func (e *Engine) handleOrdonnanceDetail(t *turn) reply {
	sess := t.sess

	// The treatment wording is kept verbatim; only substance is required.
	if hasSubstance(t.folded) {
		sess.Qualif.Reason = extract.ReasonPrescription
		sess.Qualif.ReasonDetail = t.raw
		sess.TransitionTo(dialog.StateOrdonnanceConfirm)
		sess.Await(session.ConfirmOrdonnance)
		return ask(validation.SayOrdoConfirm, t.raw)
	}

	sess.Count.MotifFails++
	if sess.Count.MotifFails >= maxFieldFails {
		return e.enterRouter(sess, "motif_fails")
	}
	return ask(validation.SayOrdoAskDetail, sess.Qualif.Name)
}

// hasSubstance requires at least one non-filler word of four letters or
// more, the same bar the reason extractor uses.
func hasSubstance(folded string) bool {
	for _, w := range normalize.Words(folded) {
		if len([]rune(w)) >= 4 {
			return true
		}
	}
	return false
}

func (e *Engine) handleOrdonnanceConfirm(t *turn, soft intent.Intent) reply {
	sess := t.sess

	switch soft {
	case intent.IntentYes:
		sess.ClearAwait()
		sess.TransitionTo(dialog.StateOrdonnanceDone)
		return say(validation.SayOrdoDone)
	case intent.IntentNo:
		sess.ClearAwait()
		sess.Qualif.ReasonDetail = ""
		sess.TransitionTo(dialog.StateOrdonnanceDetail)
		return ask(validation.SayOrdoAskDetail, sess.Qualif.Name)
	}
	return ask(validation.SayOrdoConfirm, sess.Qualif.ReasonDetail)
}
