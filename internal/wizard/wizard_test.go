package wizard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/booking/internal/backend"
	"github.com/tripdesk/booking/internal/booking"
	"github.com/tripdesk/booking/internal/model"
	"github.com/tripdesk/booking/internal/payment"
	"github.com/tripdesk/booking/internal/processor"
	"github.com/tripdesk/booking/internal/traveler"
)

// wizardBackend fakes the whole backend contract for end-to-end wizard
// flows, with idempotent booking creation and incrementing processor
// intent ids.
type wizardBackend struct {
	bookings      map[string]backend.CreateBookingResult
	createCalls   int
	intentCalls   int
	finalizeErr   error
	finalizeCalls int
	finalizedRefs []string
	feeCents      int64
	status        backend.StatusResult
}

func newWizardBackend(fee int64) *wizardBackend {
	return &wizardBackend{bookings: map[string]backend.CreateBookingResult{}, feeCents: fee}
}

func (b *wizardBackend) CreateBooking(ctx context.Context, o model.Offer, ts []model.TravelerInfo, key string) (backend.CreateBookingResult, error) {
	b.createCalls++
	if res, ok := b.bookings[key]; ok {
		return res, nil
	}
	res := backend.CreateBookingResult{
		BookingID:   fmt.Sprintf("bk-%d", len(b.bookings)+1),
		FeeCents:    b.feeCents,
		FeeCurrency: "USD",
	}
	b.bookings[key] = res
	return res, nil
}

func (b *wizardBackend) CreatePaymentIntent(ctx context.Context, bookingID string, amount int64, currency string) (backend.PaymentIntentResult, error) {
	b.intentCalls++
	return backend.PaymentIntentResult{
		ClientSecret:    fmt.Sprintf("secret-%d", b.intentCalls),
		PaymentIntentID: fmt.Sprintf("pi-%d", b.intentCalls),
	}, nil
}

func (b *wizardBackend) FinalizeBooking(ctx context.Context, bookingID, ref string) (string, error) {
	b.finalizeCalls++
	if b.finalizeErr != nil {
		return "", b.finalizeErr
	}
	b.finalizedRefs = append(b.finalizedRefs, ref)
	return "PNR-" + bookingID, nil
}

func (b *wizardBackend) GetBookingStatus(ctx context.Context, bookingID string) (backend.StatusResult, error) {
	return b.status, nil
}

type wizardProcessor struct {
	decline    *processor.DeclineError
	confirmErr error // non-decline transport failure
	redirect   string
	calls      int
}

func (p *wizardProcessor) ConfirmPayment(ctx context.Context, secret string, d processor.Details) (processor.Result, error) {
	p.calls++
	if p.confirmErr != nil {
		return processor.Result{}, p.confirmErr
	}
	if p.decline != nil {
		return processor.Result{}, p.decline
	}
	id := "pi-" + secret[len("secret-"):]
	if p.redirect != "" {
		return processor.Result{Status: processor.StatusRequiresAction, PaymentIntentID: id, RedirectURL: p.redirect}, nil
	}
	return processor.Result{Status: processor.StatusSucceeded, PaymentIntentID: id}, nil
}

// memJournal is the minimal journal for wizard tests.
type memJournal struct {
	refs map[string]string
}

func (j *memJournal) RecordTransition(ctx context.Context, bookingID string, st model.PaymentState, ref string) error {
	if ref != "" {
		j.refs[bookingID] = ref
	}
	return nil
}

func (j *memJournal) LastPaymentRef(ctx context.Context, bookingID string) (string, error) {
	return j.refs[bookingID], nil
}

type harness struct {
	backend   *wizardBackend
	processor *wizardProcessor
	init      *booking.Initiator
	orch      *payment.Orchestrator
}

func newHarness(fee int64) *harness {
	b := newWizardBackend(fee)
	p := &wizardProcessor{}
	return &harness{
		backend:   b,
		processor: p,
		init:      booking.NewInitiator(b, zerolog.Nop()),
		orch:      payment.NewOrchestrator(b, p, &memJournal{refs: map[string]string{}}, zerolog.Nop(), time.Millisecond),
	}
}

func testOffer() model.Offer {
	return model.Offer{
		ID:       "off-1",
		Currency: "USD",
		Prices:   []model.PriceComponent{{TravelerType: "ADULT", BaseCents: 84500, TaxCents: 12250, Count: 1}},
	}
}

// atTravelers returns a wizard on the travelers step with a complete
// primary traveler.
func atTravelers(t *testing.T) Wizard {
	w := Start(testOffer())
	w, err := w.ToTravelers()
	require.NoError(t, err)
	w, err = w.EditTraveler(0, func(tr model.TravelerInfo) model.TravelerInfo {
		tr.FirstName = "ANNA MARIA"
		tr.LastName = "ERIKSSON"
		tr.DateOfBirth = "1974-08-12"
		tr.Email = "anna@example.com"
		return tr
	})
	require.NoError(t, err)
	return w
}

func TestStartOpensOnReview(t *testing.T) {
	w := Start(testOffer())
	assert.Equal(t, StepReview, w.Step)
	assert.Equal(t, model.PaymentNotStarted, w.PaymentState)
	assert.NotEmpty(t, w.ID)

	b := w.Breakdown()
	assert.Equal(t, int64(96750), b.TotalCents)
}

func TestToTravelersFixesPartySize(t *testing.T) {
	w := Start(testOffer())
	w, err := w.ToTravelers()
	require.NoError(t, err)
	assert.Equal(t, StepTravelers, w.Step)
	assert.Equal(t, 1, w.Travelers.Len())

	// Re-entering the travelers step is not a thing.
	_, err = w.ToTravelers()
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestToPaymentRejectsIncompleteTravelers(t *testing.T) {
	h := newHarness(2500)
	w := Start(testOffer())
	w, _ = w.ToTravelers()

	_, err := w.ToPayment(context.Background(), h.init)
	var verr *traveler.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StepTravelers, w.Step, "wizard stays on travelers for a local fix")
	assert.Equal(t, 0, h.backend.createCalls)
}

func TestFullFlowToConfirmation(t *testing.T) {
	h := newHarness(2500)
	w := atTravelers(t)

	w, err := w.ToPayment(context.Background(), h.init)
	require.NoError(t, err)
	assert.Equal(t, StepPayment, w.Step)
	require.NotNil(t, w.Intent)
	assert.Equal(t, int64(2500), w.Intent.FeeCents)

	w, out, err := w.Confirm(context.Background(), h.orch, processor.Details{CardNumber: "4242"})
	require.NoError(t, err)
	assert.Equal(t, StepConfirmation, w.Step)
	assert.Equal(t, model.PaymentSucceeded, out.State)

	confirmed, err := w.Booking()
	require.NoError(t, err)
	assert.Equal(t, "PNR-bk-1", confirmed.Reference)
}

func TestEditAfterIntentInvalidatesIt(t *testing.T) {
	h := newHarness(2500)
	w := atTravelers(t)
	w, err := w.ToPayment(context.Background(), h.init)
	require.NoError(t, err)

	w, err = w.EditTraveler(0, func(tr model.TravelerInfo) model.TravelerInfo {
		tr.LastName = "SVENSSON"
		return tr
	})
	require.NoError(t, err)
	assert.Equal(t, StepTravelers, w.Step, "identity edits tear back to travelers")
	assert.Nil(t, w.Intent, "the old intent is stale once data changed")
	assert.Equal(t, model.PaymentNotStarted, w.PaymentState)
}

func TestDeclineThenRetryMintsNewProcessorIntent(t *testing.T) {
	h := newHarness(2500)
	w := atTravelers(t)
	w, err := w.ToPayment(context.Background(), h.init)
	require.NoError(t, err)

	h.processor.decline = &processor.DeclineError{Code: "card_declined", Message: "Your card was declined."}
	w, _, err = w.Confirm(context.Background(), h.orch, processor.Details{})
	var perr *payment.PaymentError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Declined)
	assert.Equal(t, StepPayment, w.Step, "retry is scoped to the payment step")
	assert.Equal(t, model.PaymentFailed, w.PaymentState)
	assert.Nil(t, w.Intent, "the failed intent is discarded")

	// Confirming again without rearming is refused.
	_, _, err = w.Confirm(context.Background(), h.orch, processor.Details{})
	assert.ErrorIs(t, err, ErrRetryRequired)

	// Retry resolves to the same backend booking and a fresh intent.
	w, err = w.Retry(context.Background(), h.init)
	require.NoError(t, err)
	require.NotNil(t, w.Intent)
	assert.Equal(t, "bk-1", w.Intent.BookingID, "idempotency key collapses onto the same booking")

	h.processor.decline = nil
	w, _, err = w.Confirm(context.Background(), h.orch, processor.Details{})
	require.NoError(t, err)
	assert.Equal(t, StepConfirmation, w.Step)
	assert.Equal(t, []string{"pi-2"}, h.backend.finalizedRefs, "second attempt uses a new processor intent")
}

func TestZeroFeeReachesConfirmationWithoutProcessor(t *testing.T) {
	h := newHarness(0)
	w := atTravelers(t)
	w, err := w.ToPayment(context.Background(), h.init)
	require.NoError(t, err)

	w, _, err = w.Confirm(context.Background(), h.orch, processor.Details{})
	require.NoError(t, err)
	assert.Equal(t, StepConfirmation, w.Step)
	assert.Equal(t, 0, h.backend.intentCalls, "no payment intent for a waived fee")
	assert.Equal(t, 0, h.processor.calls)
	require.Len(t, h.backend.finalizedRefs, 1)
	assert.True(t, backend.IsWaiverMarker(h.backend.finalizedRefs[0]))
}

func TestFinalizeFailureParksPaidUnconfirmed(t *testing.T) {
	h := newHarness(2500)
	h.backend.finalizeErr = errors.New("backend down")
	w := atTravelers(t)
	w, err := w.ToPayment(context.Background(), h.init)
	require.NoError(t, err)

	w, _, err = w.Confirm(context.Background(), h.orch, processor.Details{})
	var amb *payment.FinalizationAmbiguousError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, StepPayment, w.Step, "never confirmation without a finalized booking")
	assert.Equal(t, model.PaymentSucceeded, w.PaymentState, "money moved; not presented as failure either")
	require.NotNil(t, w.Intent)

	// Recovery is reconciliation, not a fresh charge.
	h.backend.finalizeErr = nil
	h.backend.status = backend.StatusResult{PaymentState: model.PaymentSucceeded}
	w, _, err = w.Resume(context.Background(), h.orch)
	require.NoError(t, err)
	assert.Equal(t, StepConfirmation, w.Step)
	assert.Equal(t, 1, h.backend.intentCalls, "no second charge during reconciliation")
}

func TestConfirmAfterAmbiguousFinalizeRefusesSecondCharge(t *testing.T) {
	h := newHarness(2500)
	h.backend.finalizeErr = errors.New("backend down")
	w := atTravelers(t)
	w, err := w.ToPayment(context.Background(), h.init)
	require.NoError(t, err)

	w, _, err = w.Confirm(context.Background(), h.orch, processor.Details{})
	var amb *payment.FinalizationAmbiguousError
	require.ErrorAs(t, err, &amb)
	require.Equal(t, 1, h.backend.intentCalls)
	require.Equal(t, 1, h.processor.calls)

	// Money already moved; paying again is refused outright.
	_, _, err = w.Confirm(context.Background(), h.orch, processor.Details{})
	assert.ErrorIs(t, err, ErrReconcileRequired)
	assert.Equal(t, 1, h.backend.intentCalls, "no new payment intent after an ambiguous finalize")
	assert.Equal(t, 1, h.processor.calls, "the card is never charged twice")

	// Retry is refused too; only Resume can move this wizard forward.
	_, err = w.Retry(context.Background(), h.init)
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestResumeAbandonedBeforeConfirmRearmsPayment(t *testing.T) {
	h := newHarness(2500)
	w := atTravelers(t)
	w, err := w.ToPayment(context.Background(), h.init)
	require.NoError(t, err)

	// Reopened without ever confirming; the backend saw no payment.
	h.backend.status = backend.StatusResult{PaymentState: model.PaymentNotStarted}
	w, _, err = w.Resume(context.Background(), h.orch)
	require.NoError(t, err)
	assert.Equal(t, StepPayment, w.Step)
	assert.Equal(t, model.PaymentNotStarted, w.PaymentState, "never wedged in confirming")

	// A normal confirmation runs from here.
	w, _, err = w.Confirm(context.Background(), h.orch, processor.Details{})
	require.NoError(t, err)
	assert.Equal(t, StepConfirmation, w.Step)
}

func TestIndeterminateConfirmFailureForcesReconciliation(t *testing.T) {
	h := newHarness(2500)
	h.processor.confirmErr = errors.New("gateway timeout")
	w := atTravelers(t)
	w, err := w.ToPayment(context.Background(), h.init)
	require.NoError(t, err)

	w, _, err = w.Confirm(context.Background(), h.orch, processor.Details{})
	var perr *payment.PaymentError
	require.ErrorAs(t, err, &perr)
	assert.False(t, perr.Declined)
	assert.Equal(t, model.PaymentConfirming, w.PaymentState, "the lost confirmation may have landed")

	// A blind second confirm is refused; the first charge may exist.
	_, _, err = w.Confirm(context.Background(), h.orch, processor.Details{})
	assert.ErrorIs(t, err, ErrPaymentInFlight)
	assert.Equal(t, 1, h.processor.calls)

	// The backend says nothing was charged, so reconciliation rearms
	// the payment step and the retried confirmation goes through.
	h.processor.confirmErr = nil
	h.backend.status = backend.StatusResult{PaymentState: model.PaymentNotStarted}
	w, _, err = w.Resume(context.Background(), h.orch)
	require.NoError(t, err)
	w, _, err = w.Confirm(context.Background(), h.orch, processor.Details{})
	require.NoError(t, err)
	assert.Equal(t, StepConfirmation, w.Step)
	assert.Equal(t, []string{"pi-2"}, h.backend.finalizedRefs)
}

func TestRedirectChallengeSuspendsAndResumes(t *testing.T) {
	h := newHarness(2500)
	h.processor.redirect = "https://processor.example/3ds"
	w := atTravelers(t)
	w, err := w.ToPayment(context.Background(), h.init)
	require.NoError(t, err)

	w, out, err := w.Confirm(context.Background(), h.orch, processor.Details{ReturnURL: "https://agency.example/return"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentConfirming, w.PaymentState)
	assert.Equal(t, "https://processor.example/3ds", out.RedirectURL)

	// A second confirmation while one is pending is refused.
	_, _, err = w.Confirm(context.Background(), h.orch, processor.Details{})
	assert.ErrorIs(t, err, ErrPaymentInFlight)

	// Editing travelers mid-confirmation is refused too.
	_, err = w.EditTraveler(0, func(tr model.TravelerInfo) model.TravelerInfo { return tr })
	assert.ErrorIs(t, err, ErrPaymentInFlight)

	// The user returns from the challenge; the backend saw the charge.
	h.backend.status = backend.StatusResult{PaymentState: model.PaymentSucceeded}
	w, _, err = w.Resume(context.Background(), h.orch)
	require.NoError(t, err)
	assert.Equal(t, StepConfirmation, w.Step)
	assert.Equal(t, []string{"pi-1"}, h.backend.finalizedRefs)
}

func TestBookingGuardsInvariant(t *testing.T) {
	h := newHarness(2500)
	w := atTravelers(t)
	w, err := w.ToPayment(context.Background(), h.init)
	require.NoError(t, err)
	w, _, err = w.Confirm(context.Background(), h.orch, processor.Details{})
	require.NoError(t, err)

	// Tampering with the state behind the machine's back is the one
	// way to reach confirmation without a succeeded payment.
	w.PaymentState = model.PaymentFailed
	_, err = w.Booking()
	var fatal *FatalStateError
	require.ErrorAs(t, err, &fatal)
}

func TestRemoveTravelerRestartsFlow(t *testing.T) {
	offer := model.Offer{
		ID:       "off-2",
		Currency: "USD",
		Prices:   []model.PriceComponent{{TravelerType: "ADULT", BaseCents: 30000, TaxCents: 4000, Count: 2}},
	}
	h := newHarness(2500)
	w := Start(offer)
	w, _ = w.ToTravelers()
	require.Equal(t, 2, w.Travelers.Len())

	for i := 0; i < 2; i++ {
		idx := i
		var err error
		w, err = w.EditTraveler(idx, func(tr model.TravelerInfo) model.TravelerInfo {
			tr.FirstName = "T"
			tr.LastName = fmt.Sprintf("TRAVELER%d", idx)
			tr.DateOfBirth = "1990-01-01"
			return tr
		})
		require.NoError(t, err)
	}
	w, err := w.ToPayment(context.Background(), h.init)
	require.NoError(t, err)

	w, err = w.RemoveTraveler(1)
	require.NoError(t, err)
	assert.Equal(t, StepTravelers, w.Step, "party change restarts the flow")
	assert.Nil(t, w.Intent)
	assert.Equal(t, 1, w.Travelers.Len())

	_, err = w.RemoveTraveler(0)
	assert.ErrorIs(t, err, traveler.ErrPrimaryRequired)
}
