// SPDX-License-Identifier: MIT

// Package engine is the dialogue state machine. It owns every session
// mutation, orchestrates the guard, extractors, classifiers, slot
// protocol and flows, and produces exactly one Event per turn.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/faq"
	"github.com/voxdesk/voxdesk/internal/intent"
	"github.com/voxdesk/voxdesk/internal/log"
	"github.com/voxdesk/voxdesk/internal/metrics"
	"github.com/voxdesk/voxdesk/internal/normalize"
	"github.com/voxdesk/voxdesk/internal/overlay"
	"github.com/voxdesk/voxdesk/internal/session"
	"github.com/voxdesk/voxdesk/internal/session/store"
	"github.com/voxdesk/voxdesk/internal/slots"
	"github.com/voxdesk/voxdesk/internal/telemetry"
	"github.com/voxdesk/voxdesk/internal/validation"
)

// Per-field recovery ceilings. Crossing one routes to the intent router,
// never directly to a transfer.
const (
	maxFieldFails    = 3
	maxInputStrikes  = 3
	maxYesAmbiguous  = 3
	maxFAQMisses     = 3
	maxRouterNoMatch = 2
	maxRouterEntries = 3
)

// neighborSkipWindow is how close a candidate may sit to a rejected slot
// before sequential proposal skips it.
const neighborSkipWindow = 90 * time.Minute

// defaultLockWait bounds how long a duplicate delivery waits for the
// in-flight turn of the same conversation.
const defaultLockWait = 300 * time.Millisecond

// slotBatchSize is how many candidates are enumerated at once.
const slotBatchSize = 3

// TurnRequest is one inbound user utterance plus its transport hints.
type TurnRequest struct {
	ConvID   string
	TenantID string
	Channel  dialog.Channel
	Text     string
	// STTConfidence in [0,1]; negative when the channel does not report one.
	STTConfidence float64
	// UserSpoke is true when audio activity was detected upstream.
	UserSpoke bool
}

// Options carries the engine's collaborators. Store, Slots and Validator
// are required; the rest have inactive defaults.
type Options struct {
	Store     store.Store
	Slots     slots.Availability
	FAQ       *faq.Index
	Validator *validation.Validator
	Assist    *intent.Assist
	Overlay   *overlay.Overlay
	Guard     *normalize.Guard
	LockWait  time.Duration
}

// Engine processes turns. All dependencies are injected; the engine keeps
// no mutable state of its own beyond the per-conversation locks.
type Engine struct {
	store     store.Store
	slots     slots.Availability
	faq       *faq.Index
	validator *validation.Validator
	assist    *intent.Assist
	overlay   *overlay.Overlay
	guard     *normalize.Guard
	locks     *convLocks
	lockWait  time.Duration
	now       func() time.Time
}

// New wires the engine. It returns an error when a required collaborator
// is missing so misconfiguration fails at startup, not mid-call.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: session store is required")
	}
	if opts.Slots == nil {
		return nil, errors.New("engine: slot availability service is required")
	}
	if opts.Validator == nil {
		return nil, errors.New("engine: output validator is required")
	}
	if opts.FAQ == nil {
		opts.FAQ = faq.Default()
	}
	if opts.Guard == nil {
		opts.Guard = normalize.NewGuard(normalize.DefaultGuardConfig())
	}
	if opts.LockWait <= 0 {
		opts.LockWait = defaultLockWait
	}
	return &Engine{
		store:     opts.Store,
		slots:     opts.Slots,
		faq:       opts.FAQ,
		validator: opts.Validator,
		assist:    opts.Assist,
		overlay:   opts.Overlay,
		guard:     opts.Guard,
		locks:     newConvLocks(),
		lockWait:  opts.LockWait,
		now:       time.Now,
	}, nil
}

// turn bundles the per-turn working set the handlers share.
type turn struct {
	ctx    context.Context
	sess   *session.Session
	raw    string
	folded string
}

// reply is what a handler decides to say. The engine renders, validates
// and records it exactly once.
type reply struct {
	sayKey   string
	args     []interface{}
	question bool
	// freeText carries ai_generated content (overlay/assist); when set it
	// is emitted as-is instead of rendering the say key.
	freeText string
	transfer dialog.TransferReason
	silent   bool
}

func say(key string, args ...interface{}) reply {
	return reply{sayKey: key, args: args}
}

func ask(key string, args ...interface{}) reply {
	return reply{sayKey: key, args: args, question: true}
}

// HandleTurn is the single operation the engine exposes: one utterance
// in, one Event out. Infrastructure failures still yield a usable Event
// alongside the error.
func (e *Engine) HandleTurn(ctx context.Context, req TurnRequest) (dialog.Event, error) {
	start := e.now()
	defer func() { metrics.TurnDuration.Observe(time.Since(start).Seconds()) }()

	if req.ConvID == "" {
		return dialog.Event{Type: dialog.EventError, Text: e.validator.FallbackText()},
			errors.New("engine: conversation id is required")
	}

	ctx, span := telemetry.Tracer("voxdesk/engine").Start(ctx, "engine.turn")
	defer span.End()

	release, ok := e.locks.acquire(ctx, req.ConvID, e.lockWait)
	if !ok {
		// The first delivery is still mutating this conversation; answer
		// neutrally instead of racing it.
		metrics.RecordTurn(req.Channel, "busy")
		text, _ := e.validator.Catalogue().Render(validation.SayBusyAck)
		return dialog.Event{Type: dialog.EventFinal, Text: text, SayKey: validation.SayBusyAck}, nil
	}
	defer release()

	sess, err := e.loadSession(ctx, req)
	if err != nil {
		metrics.RecordTurn(req.Channel, "error")
		return dialog.Event{Type: dialog.EventError, Text: e.validator.FallbackText()},
			fmt.Errorf("engine: load session: %w", err)
	}
	sess.Touch(e.now().UTC())

	t := &turn{
		ctx:    ctx,
		sess:   sess,
		raw:    normalize.Token(req.Text),
		folded: normalize.Fold(normalize.Token(req.Text)),
	}

	r := e.process(t, req)
	event := e.emit(t, r)

	if err := e.store.Save(ctx, sess); err != nil {
		logger := log.WithConversation("engine", sess.ConvID)
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "session.save_failed").
			Msg("session state may be stale on the next turn")
		return event, fmt.Errorf("engine: save session: %w", err)
	}

	outcome := string(event.Type)
	span.SetAttributes(telemetry.TurnAttributes(sess.ConvID, string(sess.Channel), string(sess.State), outcome)...)
	metrics.RecordTurn(sess.Channel, outcome)
	if event.Type == dialog.EventTransfer {
		span.SetAttributes(telemetry.TransferAttributes(string(event.TransferReason))...)
		metrics.RecordTransfer(event.TransferReason)
	}
	return event, nil
}

// process runs the decision pipeline: anti-loop, guard, strong intents,
// overlay, soft intents, then the state dispatch.
func (e *Engine) process(t *turn, req TurnRequest) reply {
	sess := t.sess

	// Anti-loop ceiling: force escalation before interpreting anything.
	if sess.TurnCount > session.MaxTurns && !sess.State.Terminal() {
		if sess.State == dialog.StateIntentRouter {
			return e.recoverableTransfer(sess, dialog.TransferRouterExhausted)
		}
		return e.enterRouter(sess, "anti_loop")
	}

	verdict := e.guard.Classify(normalize.Input{
		Text:          req.Text,
		STTConfidence: req.STTConfidence,
		UserSpoke:     req.UserSpoke,
	})
	if verdict != normalize.VerdictOK {
		return e.handleGuard(t, verdict)
	}

	strong := intent.ClassifyStrong(t.folded)
	if r, handled := e.handleStrong(t, strong); handled {
		return r
	}

	// Critical tokens ("oui", "2") have fixed deterministic semantics the
	// overlay must never reinterpret.
	if e.overlay != nil && !normalize.IsCriticalToken(t.folded) &&
		e.overlay.Eligible(sess.ConvID, sess.State, strong) {
		if r, served := e.tryOverlay(t); served {
			return r
		}
	}

	soft := intent.ClassifySoft(t.folded, sess.State)
	switch soft {
	case intent.IntentRepeat:
		if sess.LastAgentMessage != "" {
			return reply{sayKey: sess.LastSayKey, freeText: sess.LastAgentMessage}
		}
	case intent.IntentCorrection:
		if sess.LastQuestionAsked != "" {
			return reply{sayKey: sess.LastQuestionSayKey, freeText: sess.LastQuestionAsked, question: true}
		}
	}

	return e.dispatch(t, strong, soft)
}

// dispatch routes to the per-state handler.
func (e *Engine) dispatch(t *turn, strong, soft intent.Intent) reply {
	switch t.sess.State {
	case dialog.StateStart:
		return e.handleStart(t, strong, soft)
	case dialog.StateClarify:
		return e.handleClarify(t, soft)
	case dialog.StateQualifName:
		return e.handleQualifName(t)
	case dialog.StateQualifMotif:
		return e.handleQualifMotif(t)
	case dialog.StateQualifPref:
		return e.handleQualifPref(t)
	case dialog.StatePreferenceConfirm:
		return e.handlePreferenceConfirm(t, soft)
	case dialog.StateWaitConfirm:
		return e.handleWaitConfirm(t, soft)
	case dialog.StateQualifContact:
		return e.handleQualifContact(t)
	case dialog.StateContactConfirm:
		return e.handleContactConfirm(t, soft)
	case dialog.StateIntentRouter:
		return e.handleRouter(t)
	case dialog.StatePostFAQ:
		return e.handlePostFAQ(t, soft)
	case dialog.StatePostFAQChoice:
		return e.handlePostFAQChoice(t, soft)
	case dialog.StateCancelName:
		return e.handleCancelName(t)
	case dialog.StateCancelConfirm:
		return e.handleCancelConfirm(t, soft)
	case dialog.StateModifyName:
		return e.handleModifyName(t)
	case dialog.StateModifyPref:
		return e.handleModifyPref(t)
	case dialog.StateModifyConfirm:
		return e.handleModifyConfirm(t, soft)
	case dialog.StateOrdonnanceName:
		return e.handleOrdonnanceName(t)
	case dialog.StateOrdonnanceDetail:
		return e.handleOrdonnanceDetail(t)
	case dialog.StateOrdonnanceConfirm:
		return e.handleOrdonnanceConfirm(t, soft)
	default:
		// Unknown state in a persisted session: recover through the router.
		return e.enterRouter(t.sess, "unknown_state")
	}
}

// loadSession fetches or creates the session. Expired and terminal
// sessions start over under the same conversation id.
func (e *Engine) loadSession(ctx context.Context, req TurnRequest) (*session.Session, error) {
	sess, err := e.store.Get(ctx, req.ConvID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return session.New(req.ConvID, req.TenantID, req.Channel), nil
	case err != nil:
		return nil, err
	}
	if sess.Expired(e.now().UTC()) || sess.State.Terminal() {
		if err := e.store.Delete(ctx, req.ConvID); err != nil {
			return nil, err
		}
		return session.New(req.ConvID, req.TenantID, req.Channel), nil
	}
	return sess, nil
}

// emit renders the reply, runs the output firewall, records the agent
// message and builds the Event. A validator rejection converts the turn
// into a transfer with the fixed fallback text.
func (e *Engine) emit(t *turn, r reply) dialog.Event {
	sess := t.sess

	if r.silent {
		// Nothing is voiced; the firewall has no text to check.
		return dialog.Event{
			Type:           dialog.EventTransfer,
			ConvState:      sess.State,
			TransferReason: r.transfer,
			Silent:         true,
		}
	}

	text := r.freeText
	if text == "" {
		rendered, known := e.validator.Catalogue().Render(r.sayKey, r.args...)
		if known {
			text = rendered
		}
	}

	ok, safe := e.validator.Validate(sess.State, r.sayKey, text)
	if !ok {
		// The candidate was rejected: the fallback announces a handoff,
		// so the conversation actually transfers.
		sess.TransitionTo(dialog.StateTransferred)
		sess.ClearAwait()
		return dialog.Event{
			Type:           dialog.EventTransfer,
			Text:           safe,
			ConvState:      sess.State,
			TransferReason: dialog.TransferInternalError,
			SayKey:         validation.SayFallback,
		}
	}

	sess.RecordAgentMessage(safe, r.sayKey, r.question)

	eventType := dialog.EventFinal
	if r.transfer != "" {
		eventType = dialog.EventTransfer
	}
	logger := log.WithConversation("engine", sess.ConvID)
	logger.Info().
		Str(log.FieldEvent, "turn.completed").
		Str(log.FieldNewState, string(sess.State)).
		Str(log.FieldSayKey, r.sayKey).
		Int(log.FieldTurn, sess.TurnCount).
		Msg("turn handled")

	return dialog.Event{
		Type:           eventType,
		Text:           safe,
		ConvState:      sess.State,
		TransferReason: r.transfer,
		SayKey:         r.sayKey,
	}
}

// --- transfer machinery ----------------------------------------------------

// transferNow hands the conversation to a human immediately; used for the
// non-recoverable triggers that bypass the prevention budget.
func (e *Engine) transferNow(sess *session.Session, reason dialog.TransferReason, sayKey string) reply {
	sess.TransitionTo(dialog.StateTransferred)
	sess.ClearAwait()
	return reply{sayKey: sayKey, transfer: reason}
}

// recoverableTransfer consults the prevention budget: while budget
// remains, the caller gets a contextual safe default instead of a human.
// A conversation stuck mid-booking hears the slot offer; anything else
// hears the generic menu.
func (e *Engine) recoverableTransfer(sess *session.Session, reason dialog.TransferReason) reply {
	if sess.SpendTransferBudget() {
		metrics.TransferPreventedTotal.Inc()
		logger := log.WithConversation("engine", sess.ConvID)
		logger.Info().
			Str(log.FieldEvent, "transfer.prevented").
			Str(log.FieldReason, string(reason)).
			Int("budget_remaining", sess.TransferBudgetRemaining).
			Msg("would-be transfer absorbed")
		sayKey := validation.SayBudgetSaveGeneric
		if bookingPath(sess.State) {
			sayKey = validation.SayBudgetSaveBooking
		}
		sess.TransitionTo(dialog.StateIntentRouter)
		sess.ClearAwait()
		return ask(sayKey)
	}
	return e.transferNow(sess, reason, validation.SayTransfer)
}

// bookingPath reports whether the state belongs to the appointment
// qualification and slot protocol.
func bookingPath(s dialog.State) bool {
	switch s {
	case dialog.StateQualifName, dialog.StateQualifMotif, dialog.StateQualifPref,
		dialog.StatePreferenceConfirm, dialog.StateWaitConfirm,
		dialog.StateQualifContact, dialog.StateContactConfirm:
		return true
	}
	return false
}

// enterRouter escalates to the menu. Re-entering too often becomes a
// recoverable transfer.
func (e *Engine) enterRouter(sess *session.Session, counter string) reply {
	metrics.RecordEscalation(counter)
	sess.Count.RouterEntries++
	if sess.Count.RouterEntries > maxRouterEntries {
		return e.recoverableTransfer(sess, dialog.TransferRouterExhausted)
	}
	sess.TransitionTo(dialog.StateIntentRouter)
	sess.ClearAwait()
	sess.Count.NoMatchTurns = 0
	return ask(validation.SayRouterMenu)
}

// --- guard verdicts ---------------------------------------------------------

func (e *Engine) handleGuard(t *turn, verdict normalize.Verdict) reply {
	sess := t.sess
	switch verdict {
	case normalize.VerdictSilence:
		sess.Count.EmptyMessage++
		if sess.Count.EmptyMessage >= maxInputStrikes {
			return e.enterRouter(sess, "empty_message")
		}
		if sess.Count.EmptyMessage == 1 {
			return ask(validation.SaySilenceOne)
		}
		return ask(validation.SaySilenceTwo)

	case normalize.VerdictNoise:
		sess.Count.NoiseDetected++
		if sess.Count.NoiseDetected >= maxInputStrikes {
			return e.enterRouter(sess, "noise_detected")
		}
		if sess.Count.NoiseDetected == 1 {
			return ask(validation.SayNoiseOne)
		}
		return ask(validation.SayNoiseTwo)

	case normalize.VerdictTooLong:
		sess.Count.NoiseDetected++
		if sess.Count.NoiseDetected >= maxInputStrikes {
			return e.enterRouter(sess, "noise_detected")
		}
		return ask(validation.SayTooLong)

	case normalize.VerdictWrongLanguage:
		sess.Count.NoiseDetected++
		if sess.Count.NoiseDetected >= maxInputStrikes {
			return e.enterRouter(sess, "noise_detected")
		}
		return ask(validation.SayWrongLang)

	case normalize.VerdictSpam:
		sess.TransitionTo(dialog.StateTransferred)
		sess.ClearAwait()
		return reply{transfer: dialog.TransferSpam, silent: true}
	}
	return e.enterRouter(sess, "unknown_verdict")
}

// --- strong intents ---------------------------------------------------------

// handleStrong reacts to high-confidence intents that override state
// logic. Flow re-entry is ignored so "annuler" inside the cancel flow does
// not restart it.
func (e *Engine) handleStrong(t *turn, strong intent.Intent) (reply, bool) {
	sess := t.sess
	switch strong {
	case intent.IntentEmergency:
		return e.transferNow(sess, dialog.TransferEmergency, validation.SayTransfer), true

	case intent.IntentTransfer:
		return e.transferNow(sess, dialog.TransferExplicitRequest, validation.SayTransfer), true

	case intent.IntentTransferHint:
		// A bare "humain"/"standard" is too thin to transfer on; clarify
		// through the menu instead.
		return e.enterRouter(sess, "transfer_hint"), true

	case intent.IntentAbandon:
		return e.transferNow(sess, dialog.TransferConsentDenied, validation.SayTransfer), true

	case intent.IntentCancel:
		if !inCancelFlow(sess.State) {
			sess.TransitionTo(dialog.StateCancelName)
			sess.ClearAwait()
			return ask(validation.SayCancelAskName), true
		}

	case intent.IntentModify:
		if !inModifyFlow(sess.State) {
			sess.TransitionTo(dialog.StateModifyName)
			sess.ClearAwait()
			return ask(validation.SayModifyAskName), true
		}

	case intent.IntentOrdonnance:
		if !inOrdonnanceFlow(sess.State) {
			return e.enterOrdonnance(sess), true
		}

	case intent.IntentFAQ:
		return e.answerFAQ(t), true
	}
	return reply{}, false
}

func inCancelFlow(s dialog.State) bool {
	return s == dialog.StateCancelName || s == dialog.StateCancelConfirm
}

func inModifyFlow(s dialog.State) bool {
	return s == dialog.StateModifyName || s == dialog.StateModifyPref || s == dialog.StateModifyConfirm
}

func inOrdonnanceFlow(s dialog.State) bool {
	return s == dialog.StateOrdonnanceName || s == dialog.StateOrdonnanceDetail ||
		s == dialog.StateOrdonnanceConfirm
}

// --- overlay -----------------------------------------------------------------

// tryOverlay lets the natural-language layer answer the opening turn.
// Any rejection returns control to the deterministic path untouched.
func (e *Engine) tryOverlay(t *turn) (reply, bool) {
	res, ok := e.overlay.Respond(t.ctx, t.sess.ConvID, t.raw)
	if !ok {
		metrics.OverlayTotal.WithLabelValues("rejected").Inc()
		return reply{}, false
	}
	metrics.OverlayTotal.WithLabelValues("served").Inc()

	sess := t.sess
	switch res.Mode {
	case overlay.ModeBooking:
		if name := res.Extracted["name"]; name != "" {
			if got := extractName(name); got != "" {
				sess.Qualif.Name = got
			}
		}
		sess.TransitionTo(dialog.StateQualifName)
		return reply{sayKey: validation.SayOverlayReply, freeText: res.ResponseText, question: true}, true
	case overlay.ModeFAQ:
		sess.TransitionTo(dialog.StatePostFAQ)
		sess.Count.FAQMisses = 0
		return reply{sayKey: validation.SayOverlayReply, freeText: res.ResponseText}, true
	case overlay.ModeTransfer:
		return e.transferNow(sess, dialog.TransferExplicitRequest, validation.SayTransfer), true
	default:
		// fallback mode: the model itself defers to the engine.
		return reply{}, false
	}
}
