// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/session"
	"github.com/voxdesk/voxdesk/internal/session/store"
	"github.com/voxdesk/voxdesk/internal/slots"
	"github.com/voxdesk/voxdesk/internal/validation"
)

type fakeAvailability struct {
	candidates []slots.Slot
	listErr    error
	booked     []slots.Slot
	bookErr    error
	canceled   []string
	cancelErr  error
}

func (f *fakeAvailability) ListCandidates(_ context.Context, _ string) ([]slots.Slot, error) {
	return f.candidates, f.listErr
}

func (f *fakeAvailability) Book(_ context.Context, s slots.Slot, _ slots.ContactInfo) error {
	if f.bookErr != nil {
		return f.bookErr
	}
	f.booked = append(f.booked, s)
	return nil
}

func (f *fakeAvailability) Cancel(_ context.Context, name string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.canceled = append(f.canceled, name)
	return nil
}

func morningSlots() []slots.Slot {
	mk := func(day int, hour int, id string) slots.Slot {
		start := time.Date(2026, 3, 9+day, hour, 0, 0, 0, time.UTC)
		return slots.Slot{
			ID:         id,
			Start:      start,
			End:        start.Add(30 * time.Minute),
			Label:      id,
			VocalLabel: id,
			Weekday:    start.Weekday().String(),
			Source:     "test",
		}
	}
	return []slots.Slot{
		mk(1, 9, "mardi 9h"),
		mk(1, 10, "mardi 10h"),
		mk(1, 11, "mardi 11h"),
		mk(1, 12, "mardi 12h"),
		mk(1, 14, "mardi 14h"),
	}
}

func newTestEngine(t *testing.T, avail *fakeAvailability) (*Engine, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	eng, err := New(Options{
		Store:     st,
		Slots:     avail,
		Validator: validation.New(validation.DefaultCatalogue(), nil),
	})
	require.NoError(t, err)
	return eng, st
}

func turnReq(convID, text string) TurnRequest {
	return TurnRequest{
		ConvID:        convID,
		Channel:       dialog.ChannelVoice,
		Text:          text,
		STTConfidence: -1,
		UserSpoke:     true,
	}
}

func handle(t *testing.T, e *Engine, convID, text string) dialog.Event {
	t.Helper()
	ev, err := e.HandleTurn(context.Background(), turnReq(convID, text))
	require.NoError(t, err)
	require.True(t, ev.Final(), "every turn must end in exactly one final/transfer/error event")
	return ev
}

func TestBareYesAtStartClarifies(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	ev := handle(t, e, "conv-yes", "oui")

	assert.Equal(t, dialog.StateClarify, ev.ConvState)
	assert.Contains(t, ev.Text, "rendez-vous")
	assert.Contains(t, ev.Text, "question")
}

func TestFullBookingFlow(t *testing.T) {
	t.Parallel()

	avail := &fakeAvailability{candidates: morningSlots()}
	e, st := newTestEngine(t, avail)
	const id = "conv-booking"

	ev := handle(t, e, id, "bonjour je voudrais prendre un rendez-vous")
	assert.Equal(t, dialog.StateQualifName, ev.ConvState)

	ev = handle(t, e, id, "je m'appelle jean dupont")
	assert.Equal(t, dialog.StateQualifMotif, ev.ConvState)
	assert.Contains(t, ev.Text, "Jean Dupont")

	ev = handle(t, e, id, "c'est pour un détartrage")
	assert.Equal(t, dialog.StateQualifPref, ev.ConvState)

	ev = handle(t, e, id, "plutôt le matin")
	assert.Equal(t, dialog.StatePreferenceConfirm, ev.ConvState)
	assert.Contains(t, ev.Text, "le matin")

	ev = handle(t, e, id, "oui")
	assert.Equal(t, dialog.StateWaitConfirm, ev.ConvState)
	assert.Contains(t, ev.Text, "mardi 9h")
	assert.Contains(t, ev.Text, "mardi 11h")

	// "oui 2" must locate candidate 2, not read as a bare yes.
	ev = handle(t, e, id, "oui 2")
	assert.Equal(t, dialog.StateWaitConfirm, ev.ConvState)
	assert.Contains(t, ev.Text, "mardi 10h")

	sess, err := st.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.PendingChoice)
	assert.Equal(t, session.ConfirmSlot, sess.AwaitingConfirmation)

	ev = handle(t, e, id, "oui")
	assert.Equal(t, dialog.StateQualifContact, ev.ConvState)

	ev = handle(t, e, id, "06 12 34 56 78")
	assert.Equal(t, dialog.StateContactConfirm, ev.ConvState)
	assert.Contains(t, ev.Text, "06 12 34 56 78")

	ev = handle(t, e, id, "oui")
	assert.Equal(t, dialog.StateConfirmed, ev.ConvState)
	assert.Equal(t, dialog.EventFinal, ev.Type)

	// Slot identity: the booked slot is byte-for-byte the second proposed.
	require.Len(t, avail.booked, 1)
	assert.Equal(t, morningSlots()[1], avail.booked[0])
}

func TestSequentialRejectSkipsNeighbors(t *testing.T) {
	t.Parallel()

	avail := &fakeAvailability{candidates: morningSlots()}
	e, _ := newTestEngine(t, avail)
	const id = "conv-seq"

	handle(t, e, id, "je voudrais un rendez-vous")
	handle(t, e, id, "marie durand")
	handle(t, e, id, "une consultation")
	handle(t, e, id, "le matin")
	ev := handle(t, e, id, "oui")
	require.Equal(t, dialog.StateWaitConfirm, ev.ConvState)

	// Rejecting the whole batch (9h, 10h, 11h) must skip 12h, which sits
	// within 90 minutes of the rejected 11h, and offer 14h.
	ev = handle(t, e, id, "non")
	assert.Equal(t, dialog.StateWaitConfirm, ev.ConvState)
	assert.Contains(t, ev.Text, "mardi 14h")
	assert.NotContains(t, ev.Text, "12h")

	ev = handle(t, e, id, "oui")
	assert.Equal(t, dialog.StateQualifContact, ev.ConvState)
}

func TestRejectedEarlyCommitReoffersBatch(t *testing.T) {
	t.Parallel()

	mk := func(hour int, id string) slots.Slot {
		start := time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC)
		return slots.Slot{ID: id, Start: start, End: start.Add(30 * time.Minute), Label: id, VocalLabel: id}
	}
	avail := &fakeAvailability{candidates: []slots.Slot{
		mk(9, "mardi 9h"), mk(14, "mardi 14h"), mk(18, "mardi 18h"),
	}}
	e, _ := newTestEngine(t, avail)
	const id = "conv-recommit"

	handle(t, e, id, "je voudrais un rendez-vous")
	handle(t, e, id, "marie durand")
	handle(t, e, id, "une consultation")
	handle(t, e, id, "le matin")
	ev := handle(t, e, id, "oui")
	require.Equal(t, dialog.StateWaitConfirm, ev.ConvState)

	ev = handle(t, e, id, "2")
	assert.Contains(t, ev.Text, "mardi 14h")

	// Declining the committed slot must come back to the batch candidates
	// the caller never declined, not jump past them.
	ev = handle(t, e, id, "non")
	assert.Equal(t, dialog.StateWaitConfirm, ev.ConvState)
	assert.Contains(t, ev.Text, "mardi 9h")

	ev = handle(t, e, id, "non")
	assert.Contains(t, ev.Text, "mardi 18h")

	ev = handle(t, e, id, "oui")
	assert.Equal(t, dialog.StateQualifContact, ev.ConvState)
}

func TestNoAvailabilityTransfersImmediately(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, &fakeAvailability{candidates: nil})
	const id = "conv-noslot"

	handle(t, e, id, "je voudrais un rendez-vous")
	handle(t, e, id, "paul martin")
	handle(t, e, id, "une douleur")
	handle(t, e, id, "le matin")
	ev := handle(t, e, id, "oui")

	assert.Equal(t, dialog.EventTransfer, ev.Type)
	assert.Equal(t, dialog.TransferNoAvailability, ev.TransferReason)
	assert.Equal(t, dialog.StateTransferred, ev.ConvState)
}

func TestAmbiguousYesTiersInWaitConfirm(t *testing.T) {
	t.Parallel()

	e, st := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	const id = "conv-ambig"

	handle(t, e, id, "je voudrais un rendez-vous")
	handle(t, e, id, "paul martin")
	handle(t, e, id, "un contrôle")
	handle(t, e, id, "le matin")
	handle(t, e, id, "oui")

	// Bare "oui" with no referent: re-ask, tightened re-ask, then router.
	ev := handle(t, e, id, "oui")
	assert.Equal(t, dialog.StateWaitConfirm, ev.ConvState)
	assert.Contains(t, ev.Text, "1, 2 ou 3")

	ev = handle(t, e, id, "oui")
	assert.Equal(t, dialog.StateWaitConfirm, ev.ConvState)

	ev = handle(t, e, id, "oui")
	assert.Equal(t, dialog.StateIntentRouter, ev.ConvState)

	sess, err := st.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, sess.Count.SlotChoiceFails, "ambiguous yes is not a failed attempt")
}

func TestFAQMissEscalation(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	const id = "conv-faq"

	ev := handle(t, e, id, "j'ai une question sur les vaccins de voyage")
	assert.Equal(t, dialog.EventFinal, ev.Type)
	first := ev.Text

	ev = handle(t, e, id, "j'ai une question sur les certificats de plongée")
	assert.NotEqual(t, first, ev.Text, "second miss offers the topic menu")
	assert.Contains(t, ev.Text, "rendez-vous")

	ev = handle(t, e, id, "j'ai une question sur les visas")
	assert.Equal(t, dialog.StateIntentRouter, ev.ConvState)
}

func TestFAQHitAnswersAndParks(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	ev := handle(t, e, "conv-hours", "quels sont vos horaires d'ouverture")

	assert.Equal(t, dialog.StatePostFAQ, ev.ConvState)
	assert.Contains(t, ev.Text, "lundi au vendredi")
}

func TestTransferBudgetAbsorbsThenTransfers(t *testing.T) {
	t.Parallel()

	e, st := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	const id = "conv-budget"

	sess := session.New(id, "", dialog.ChannelVoice)
	sess.TransitionTo(dialog.StateIntentRouter)
	sess.Count.NoMatchTurns = 2
	require.NoError(t, st.Save(context.Background(), sess))

	ev := handle(t, e, id, "le chat dort sur le canapé")
	assert.Equal(t, dialog.EventFinal, ev.Type, "first would-be transfer is absorbed")
	got, _ := st.Get(context.Background(), id)
	assert.Equal(t, 1, got.TransferBudgetRemaining)

	ev = handle(t, e, id, "le chien mange la balle rouge")
	assert.Equal(t, dialog.EventFinal, ev.Type)
	got, _ = st.Get(context.Background(), id)
	assert.Zero(t, got.TransferBudgetRemaining)

	ev = handle(t, e, id, "la pluie tombe sur le jardin")
	assert.Equal(t, dialog.EventTransfer, ev.Type)
	assert.Equal(t, dialog.TransferRouterExhausted, ev.TransferReason)
}

func TestBudgetSaveOffersBookingResume(t *testing.T) {
	t.Parallel()

	e, st := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	const id = "conv-budget-booking"

	sess := session.New(id, "", dialog.ChannelVoice)
	sess.TransitionTo(dialog.StateQualifPref)
	sess.Qualif.Name = "Jean Dupont"
	sess.Qualif.Reason = "contrôle"
	sess.Count.PreferenceFails = maxFieldFails - 1
	sess.Count.RouterEntries = maxRouterEntries
	require.NoError(t, st.Save(context.Background(), sess))

	// Stuck mid-booking, the absorbed transfer offers to resume the
	// booking rather than the generic menu.
	ev := handle(t, e, id, "le chat dort sur le canapé")
	assert.Equal(t, dialog.EventFinal, ev.Type)
	assert.Equal(t, validation.SayBudgetSaveBooking, ev.SayKey)
	assert.Equal(t, dialog.StateIntentRouter, ev.ConvState)

	// Accepting the offer picks the booking up at the missing field.
	ev = handle(t, e, id, "oui")
	assert.Equal(t, dialog.StateQualifPref, ev.ConvState)
}

func TestFAQTopicMenuResolvesNumericChoice(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	const id = "conv-faq-menu"

	handle(t, e, id, "j'ai une question sur les vaccins de voyage")
	ev := handle(t, e, id, "j'ai une question sur les certificats de plongée")
	assert.Equal(t, dialog.StatePostFAQChoice, ev.ConvState)
	assert.Contains(t, ev.Text, "l'adresse", "menu enumerates the catalogue topics")

	// "2" picks the second catalogue topic in menu order.
	ev = handle(t, e, id, "2")
	assert.Equal(t, dialog.StatePostFAQ, ev.ConvState)
	assert.Contains(t, ev.Text, "rue des Lilas")
}

func TestExplicitTransferBypassesBudget(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	ev := handle(t, e, "conv-human", "passez-moi quelqu'un s'il vous plaît")

	assert.Equal(t, dialog.EventTransfer, ev.Type)
	assert.Equal(t, dialog.TransferExplicitRequest, ev.TransferReason)
}

func TestSpamTransfersSilently(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	ev, err := e.HandleTurn(context.Background(), turnReq("conv-spam", "espèce de connard"))
	require.NoError(t, err)

	assert.Equal(t, dialog.EventTransfer, ev.Type)
	assert.Equal(t, dialog.TransferSpam, ev.TransferReason)
	assert.True(t, ev.Silent)
	assert.Empty(t, ev.Text)
}

func TestAntiLoopCeilingForcesRouter(t *testing.T) {
	t.Parallel()

	e, st := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	const id = "conv-loop"

	sess := session.New(id, "", dialog.ChannelVoice)
	sess.TransitionTo(dialog.StateQualifName)
	sess.TurnCount = session.MaxTurns
	require.NoError(t, st.Save(context.Background(), sess))

	ev := handle(t, e, id, "alors voilà c'est compliqué")
	assert.Contains(t,
		[]dialog.State{dialog.StateIntentRouter, dialog.StateTransferred},
		ev.ConvState)
}

func TestRepeatReplaysLastMessage(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	const id = "conv-repeat"

	first := handle(t, e, id, "je voudrais un rendez-vous")
	second := handle(t, e, id, "pardon")

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.SayKey, second.SayKey)
}

func TestCorrectionReplaysLastQuestion(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	const id = "conv-correction"

	handle(t, e, id, "je voudrais un rendez-vous")
	asked := handle(t, e, id, "jean dupont")
	require.Equal(t, dialog.StateQualifMotif, asked.ConvState)

	// A bare "attendez" is a correction cue, not filler: the engine
	// re-asks the pending question instead of counting a noise strike.
	ev := handle(t, e, id, "attendez")
	assert.Equal(t, asked.Text, ev.Text)
	assert.Equal(t, asked.SayKey, ev.SayKey)
	assert.Equal(t, dialog.StateQualifMotif, ev.ConvState)
}

func TestCancelFlow(t *testing.T) {
	t.Parallel()

	avail := &fakeAvailability{candidates: morningSlots()}
	e, _ := newTestEngine(t, avail)
	const id = "conv-cancel"

	ev := handle(t, e, id, "je veux annuler mon rendez-vous")
	assert.Equal(t, dialog.StateCancelName, ev.ConvState)

	ev = handle(t, e, id, "jean dupont")
	assert.Equal(t, dialog.StateCancelConfirm, ev.ConvState)
	assert.Contains(t, ev.Text, "Jean Dupont")

	ev = handle(t, e, id, "oui")
	assert.Equal(t, dialog.StateCancelDone, ev.ConvState)
	assert.Equal(t, []string{"Jean Dupont"}, avail.canceled)
}

func TestOrdonnanceFlow(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	const id = "conv-ordo"

	ev := handle(t, e, id, "j'ai besoin d'un renouvellement d'ordonnance")
	assert.Equal(t, dialog.StateOrdonnanceName, ev.ConvState)

	ev = handle(t, e, id, "marie durand")
	assert.Equal(t, dialog.StateOrdonnanceDetail, ev.ConvState)

	ev = handle(t, e, id, "mon traitement pour la tension")
	assert.Equal(t, dialog.StateOrdonnanceConfirm, ev.ConvState)

	ev = handle(t, e, id, "oui")
	assert.Equal(t, dialog.StateOrdonnanceDone, ev.ConvState)
}

func TestEmergencyTransfersImmediately(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	ev := handle(t, e, "conv-urgence", "c'est une urgence je saigne beaucoup")

	assert.Equal(t, dialog.EventTransfer, ev.Type)
	assert.Equal(t, dialog.TransferEmergency, ev.TransferReason)
}

func TestDuplicateDeliveryGetsNeutralAck(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	e.lockWait = 20 * time.Millisecond

	release, ok := e.locks.acquire(context.Background(), "conv-dup", time.Second)
	require.True(t, ok)
	defer release()

	ev, err := e.HandleTurn(context.Background(), turnReq("conv-dup", "bonjour"))
	require.NoError(t, err)
	assert.Equal(t, dialog.EventFinal, ev.Type)
	assert.Equal(t, validation.SayBusyAck, ev.SayKey)
}

func TestSilenceStrikesEscalate(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	const id = "conv-silence"

	req := turnReq(id, "")
	req.UserSpoke = false

	ev, err := e.HandleTurn(context.Background(), req)
	require.NoError(t, err)
	first := ev.Text

	ev, err = e.HandleTurn(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, first, ev.Text, "second strike uses different wording")

	ev, err = e.HandleTurn(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, dialog.StateIntentRouter, ev.ConvState)
}

func TestTerminalSessionStartsOver(t *testing.T) {
	t.Parallel()

	e, st := newTestEngine(t, &fakeAvailability{candidates: morningSlots()})
	const id = "conv-restart"

	sess := session.New(id, "", dialog.ChannelVoice)
	sess.TransitionTo(dialog.StateConfirmed)
	require.NoError(t, st.Save(context.Background(), sess))

	ev := handle(t, e, id, "je voudrais un rendez-vous")
	assert.Equal(t, dialog.StateQualifName, ev.ConvState)
}
