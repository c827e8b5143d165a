// SPDX-License-Identifier: MIT

package engine

import (
	"strings"

	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/faq"
	"github.com/voxdesk/voxdesk/internal/intent"
	"github.com/voxdesk/voxdesk/internal/session"
	"github.com/voxdesk/voxdesk/internal/validation"
)

// handleRouter interprets the three-way escalation menu: 1 booking,
// 2 practical information, 3 a human.
func (e *Engine) handleRouter(t *turn) reply {
	sess := t.sess

	if n, ok := intent.ParseMenuChoice(t.folded, 3); ok {
		sess.Count.NoMatchTurns = 0
		switch n {
		case 1:
			return e.nextQualifStep(sess)
		case 2:
			if entry, found := e.faq.ByKey("horaires"); found {
				return e.faqAnswerReply(sess, entry)
			}
		case 3:
			// Choosing the human option in a menu is an explicit request.
			return e.transferNow(sess, dialog.TransferExplicitRequest, validation.SayTransfer)
		}
	}

	if intent.IsBookingPhrase(t.folded) {
		return e.nextQualifStep(sess)
	}
	// A bare "oui" after the booking-save offer accepts it; the qualif
	// fields already collected tell the two situations apart.
	if intent.IsBareYes(t.folded) && sess.Qualif.Name != "" {
		return e.nextQualifStep(sess)
	}
	if m, ok := e.faq.Lookup(t.folded); ok {
		return e.faqAnswerReply(sess, m.Entry)
	}

	sess.Count.NoMatchTurns++
	if sess.Count.NoMatchTurns > maxRouterNoMatch {
		return e.recoverableTransfer(sess, dialog.TransferRouterExhausted)
	}
	return ask(validation.SayRouterMenuRetry)
}

// answerFAQ serves a strong FAQ intent from any state.
func (e *Engine) answerFAQ(t *turn) reply {
	if m, ok := e.faq.Lookup(t.folded); ok {
		return e.faqAnswerReply(t.sess, m.Entry)
	}
	return e.faqMiss(t.sess)
}

// faqAnswerReply emits a catalogue answer followed by the next-step
// prompt, in one reply, and parks the conversation in POST_FAQ.
func (e *Engine) faqAnswerReply(sess *session.Session, entry faq.Entry) reply {
	sess.Count.FAQMisses = 0
	sess.ResetProgressCounters()
	sess.TransitionTo(dialog.StatePostFAQ)
	followUp, _ := e.validator.Catalogue().Render(validation.SayPostFAQNext)
	return ask(validation.SayFAQAnswer, entry.Answer+" "+followUp)
}

// faqMiss escalates over consecutive unanswerable questions: reformulate,
// then a topic menu, then the router.
func (e *Engine) faqMiss(sess *session.Session) reply {
	sess.Count.FAQMisses++
	switch {
	case sess.Count.FAQMisses >= maxFAQMisses:
		return e.enterRouter(sess, "faq_misses")
	case sess.Count.FAQMisses == 2:
		if sess.State != dialog.StatePostFAQ && sess.State != dialog.StatePostFAQChoice {
			sess.TransitionTo(dialog.StatePostFAQChoice)
		}
		return ask(validation.SayFAQMenu, topicMenu(e.faq.MenuLabels()))
	default:
		return ask(validation.SayFAQMissOne)
	}
}

// handlePostFAQ follows an answered question: another question, a
// booking, or a polite close.
func (e *Engine) handlePostFAQ(t *turn, soft intent.Intent) reply {
	sess := t.sess

	if soft == intent.IntentBooking || strings.Contains(t.folded, "rendez") {
		return e.nextQualifStep(sess)
	}
	if intent.IsBareNo(t.folded) {
		return say(validation.SayGoodbye)
	}
	if m, ok := e.faq.Lookup(t.folded); ok {
		return e.faqAnswerReply(sess, m.Entry)
	}
	return e.faqMiss(sess)
}

// handlePostFAQChoice hears the answer to "what would you like": a menu
// number, a question, or a booking.
func (e *Engine) handlePostFAQChoice(t *turn, soft intent.Intent) reply {
	sess := t.sess

	if soft == intent.IntentBooking || strings.Contains(t.folded, "rendez") {
		return e.nextQualifStep(sess)
	}
	if soft == intent.IntentNo {
		return say(validation.SayGoodbye)
	}

	// Numbers answer the topic menu in catalogue order.
	menu := e.faq.MenuLabels()
	if n, ok := intent.ParseMenuChoice(t.folded, len(menu)); ok {
		if entry, found := e.faq.EntryAt(n); found {
			return e.faqAnswerReply(sess, entry)
		}
	}

	if m, ok := e.faq.Lookup(t.folded); ok {
		return e.faqAnswerReply(sess, m.Entry)
	}
	return e.faqMiss(sess)
}

// topicMenu renders the catalogue labels as one spoken enumeration.
func topicMenu(labels []string) string {
	if len(labels) <= 1 {
		return strings.Join(labels, "")
	}
	return strings.Join(labels[:len(labels)-1], ", ") + " ou " + labels[len(labels)-1]
}
