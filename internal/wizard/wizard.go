// Package wizard is the top-level state machine sequencing a booking
// flow: review, travelers, payment, confirmation.  A Wizard is an
// immutable value; every transition returns a new Wizard, so stale
// async results (an OCR scan, a slow payment) can never corrupt a flow
// that has moved on.  Ad hoc processing flags are deliberately absent:
// the step plus the payment state say everything there is to say.
package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tripdesk/booking/internal/booking"
	"github.com/tripdesk/booking/internal/model"
	"github.com/tripdesk/booking/internal/payment"
	"github.com/tripdesk/booking/internal/pricing"
	"github.com/tripdesk/booking/internal/processor"
	"github.com/tripdesk/booking/internal/traveler"
)

// Step identifies where in the flow a wizard is.
type Step string

const (
	StepReview       Step = "REVIEW"
	StepTravelers    Step = "TRAVELERS"
	StepPayment      Step = "PAYMENT"
	StepConfirmation Step = "CONFIRMATION"
)

// ErrWrongStep is returned when an operation is attempted on a step it
// does not belong to.
var ErrWrongStep = errors.New("wizard: operation not valid in current step")

// ErrPaymentInFlight is returned when a second confirmation is
// attempted while one is already confirming.  Two intents must never be
// confirming concurrently for one wizard; the pending one has to be
// resolved (or reconciled via Resume) first.
var ErrPaymentInFlight = errors.New("wizard: a payment is already confirming")

// ErrRetryRequired is returned when Confirm is called after a failed
// attempt: the spent intent must be replaced via Retry first.
var ErrRetryRequired = errors.New("wizard: previous attempt failed, retry to arm a new intent")

// ErrReconcileRequired is returned when Confirm is called after money
// already moved for this booking, such as when a finalize failure
// parked the wizard paid-but-unconfirmed.  Charging the card again is
// forbidden; the only way forward is Resume, which reconciles against
// the backend's view of the booking.
var ErrReconcileRequired = errors.New("wizard: payment already succeeded, reconcile instead of paying again")

// FatalStateError reports a broken invariant, such as reaching the
// confirmation step without a succeeded payment.  It should never
// occur; callers log it and halt the flow rather than guessing.
type FatalStateError struct {
	Reason string
}

func (e *FatalStateError) Error() string { return "wizard: fatal state: " + e.Reason }

// Wizard is one booking flow.  The offer snapshot is fixed at start;
// the traveler count is fixed when the travelers step is entered, and
// removing a traveler restarts the flow with the smaller party.
type Wizard struct {
	ID           string                  `json:"id"`
	Offer        model.Offer             `json:"offer"`
	Step         Step                    `json:"step"`
	Travelers    traveler.Store          `json:"travelers"`
	Intent       *model.BookingIntent    `json:"intent,omitempty"`
	PaymentState model.PaymentState      `json:"payment_state"`
	Confirmed    *model.ConfirmedBooking `json:"confirmed,omitempty"`

	// Version is the optimistic-concurrency counter owned by the
	// session store.  Transitions never touch it; Save bumps it and
	// rejects a save whose loaded version is no longer current.
	Version uint64 `json:"version"`
}

// Start opens a new wizard on the review step for an offer snapshot.
func Start(offer model.Offer) Wizard {
	return Wizard{
		ID:           uuid.NewString(),
		Offer:        offer,
		Step:         StepReview,
		PaymentState: model.PaymentNotStarted,
	}
}

// Breakdown returns the itinerary price split shown on the review step.
// This is the ticket price; the hold fee collected by the payment step
// is a separate amount owned by the backend.
func (w Wizard) Breakdown() pricing.Breakdown {
	return pricing.ComputeBreakdown(w.Offer)
}

// ToTravelers moves review -> travelers, creating one blank traveler
// record per expected traveler.  The count is frozen from here on.
func (w Wizard) ToTravelers() (Wizard, error) {
	if w.Step != StepReview {
		return w, ErrWrongStep
	}
	w.Step = StepTravelers
	w.Travelers = traveler.New(w.Offer.TravelerCount())
	return w, nil
}

// invalidateIntent drops a stale BookingIntent after traveler data
// changed.  Intents are immutable snapshots; edits demand a fresh one.
// Only inert states are dropped this way; a confirming intent blocks
// edits entirely.
func (w Wizard) invalidateIntent() Wizard {
	w.Intent = nil
	w.PaymentState = model.PaymentNotStarted
	w.Step = StepTravelers
	return w
}

// editGuard rejects traveler mutations outside the travelers/payment
// steps or while a payment is confirming.
func (w Wizard) editGuard() error {
	if w.Step != StepTravelers && w.Step != StepPayment {
		return ErrWrongStep
	}
	if w.PaymentState == model.PaymentConfirming {
		return ErrPaymentInFlight
	}
	return nil
}

// EditTraveler applies a field-level edit.  Editing from the payment
// step is allowed but tears the flow back to travelers and discards the
// now-stale intent.
func (w Wizard) EditTraveler(index int, mutate func(model.TravelerInfo) model.TravelerInfo) (Wizard, error) {
	if err := w.editGuard(); err != nil {
		return w, err
	}
	ts, err := w.Travelers.Update(index, mutate)
	if err != nil {
		return w, err
	}
	w.Travelers = ts
	return w.invalidateIntent(), nil
}

// RemoveTraveler drops a non-primary traveler.  Changing the party size
// restarts the flow: the wizard returns to the travelers step with the
// smaller sequence and any intent is discarded.
func (w Wizard) RemoveTraveler(index int) (Wizard, error) {
	if err := w.editGuard(); err != nil {
		return w, err
	}
	ts, err := w.Travelers.Remove(index)
	if err != nil {
		return w, err
	}
	w.Travelers = ts
	return w.invalidateIntent(), nil
}

// ScanTicket captures the scan target before an OCR scan starts; see
// traveler.Store.ScanTicket.
func (w Wizard) ScanTicket(index int) (uint64, error) {
	if err := w.editGuard(); err != nil {
		return 0, err
	}
	return w.Travelers.ScanTicket(index)
}

// ApplyScan merges a scan result, provided the target slot still holds
// the same logical traveler the scan was started against.
func (w Wizard) ApplyScan(index int, ticket uint64, data model.ScannedDocumentData) (Wizard, error) {
	if err := w.editGuard(); err != nil {
		return w, err
	}
	ts, err := w.Travelers.ApplyScan(index, ticket, data)
	if err != nil {
		return w, err
	}
	w.Travelers = ts
	return w.invalidateIntent(), nil
}

// ToPayment runs the proceed-to-payment gate and the Booking Initiator.
// On a validation error or a backend failure the wizard stays on the
// travelers step with all entered data intact; on success it holds a
// fresh BookingIntent and the payment step begins.
func (w Wizard) ToPayment(ctx context.Context, init *booking.Initiator) (Wizard, error) {
	if w.Step != StepTravelers {
		return w, ErrWrongStep
	}
	intent, err := init.Initiate(ctx, w.Offer, w.Travelers.Travelers())
	if err != nil {
		return w, err
	}
	w.Intent = &intent
	w.PaymentState = model.PaymentNotStarted
	w.Step = StepPayment
	return w, nil
}

// Confirm drives fee collection for the current intent.  The outcome
// moves the wizard to confirmation (success), leaves it confirming
// (redirect challenge pending; the caller sends the user to
// Outcome.RedirectURL), or records the failure so the payment step can
// offer a scoped retry.
func (w Wizard) Confirm(ctx context.Context, orch *payment.Orchestrator, details processor.Details) (Wizard, payment.Outcome, error) {
	if w.Step != StepPayment {
		return w, payment.Outcome{}, ErrWrongStep
	}
	if w.PaymentState == model.PaymentConfirming {
		return w, payment.Outcome{}, ErrPaymentInFlight
	}
	if w.PaymentState == model.PaymentSucceeded {
		// Paid but not yet confirmed.  A fresh CollectFee here would
		// mint a new intent and charge the card a second time.
		return w, payment.Outcome{}, ErrReconcileRequired
	}
	if w.PaymentState == model.PaymentFailed {
		return w, payment.Outcome{}, ErrRetryRequired
	}
	if w.Intent == nil {
		return w, payment.Outcome{}, &FatalStateError{Reason: "payment step without a booking intent"}
	}

	out, err := orch.CollectFee(ctx, *w.Intent, details)
	return w.absorb(out, err)
}

// Retry restarts fee collection after a failed attempt.  The spent
// intent was discarded; re-running the initiator under the same
// idempotency key resolves to the same backend booking and arms the
// payment step with a fresh intent, so the next Confirm mints a new
// processor payment intent.
func (w Wizard) Retry(ctx context.Context, init *booking.Initiator) (Wizard, error) {
	if w.Step != StepPayment {
		return w, ErrWrongStep
	}
	if w.PaymentState != model.PaymentFailed {
		return w, ErrWrongStep
	}
	intent, err := init.Initiate(ctx, w.Offer, w.Travelers.Travelers())
	if err != nil {
		return w, err
	}
	w.Intent = &intent
	w.PaymentState = model.PaymentNotStarted
	return w, nil
}

// Resume reconciles a confirming payment after a redirect return or a
// reopened wizard.  It never starts a new charge.
func (w Wizard) Resume(ctx context.Context, orch *payment.Orchestrator) (Wizard, payment.Outcome, error) {
	if w.Step != StepPayment {
		return w, payment.Outcome{}, ErrWrongStep
	}
	if w.Intent == nil {
		return w, payment.Outcome{}, &FatalStateError{Reason: "resume without a booking intent"}
	}
	out, err := orch.Resume(ctx, w.Intent.BookingID)
	return w.absorb(out, err)
}

// absorb folds a payment outcome into the wizard state.
func (w Wizard) absorb(out payment.Outcome, err error) (Wizard, payment.Outcome, error) {
	if err != nil {
		var amb *payment.FinalizationAmbiguousError
		if errors.As(err, &amb) {
			// Money moved but the booking is unconfirmed.  The wizard
			// parks in the succeeded payment state without reaching
			// confirmation; the handler escalates to support.
			w.PaymentState = model.PaymentSucceeded
			return w, out, err
		}
		var perr *payment.PaymentError
		if errors.As(err, &perr) && perr.Declined {
			// The intent is spent.  The wizard stays on the payment
			// step so the retry is scoped there; Retry mints a fresh
			// intent before the next confirmation.
			w.PaymentState = model.PaymentFailed
			w.Intent = nil
			return w, out, err
		}
		// Indeterminate failure: the confirmation may have landed even
		// though the answer was lost.  Absorbing the orchestrator's
		// state (confirming, for a lost confirmation) forces the next
		// action through Resume rather than a blind second charge.
		if out.State != "" {
			w.PaymentState = out.State
		}
		return w, out, err
	}

	w.PaymentState = out.State
	if out.Booking != nil {
		if out.State != model.PaymentSucceeded {
			return w, out, &FatalStateError{Reason: fmt.Sprintf("confirmed booking with payment state %s", out.State)}
		}
		w.Confirmed = out.Booking
		w.Step = StepConfirmation
	}
	return w, out, nil
}

// Booking returns the terminal confirmation artifact.  Calling it on a
// confirmation-step wizard without a succeeded payment is an invariant
// breach and yields a FatalStateError.
func (w Wizard) Booking() (model.ConfirmedBooking, error) {
	if w.Step != StepConfirmation {
		return model.ConfirmedBooking{}, ErrWrongStep
	}
	if w.Confirmed == nil || w.PaymentState != model.PaymentSucceeded {
		return model.ConfirmedBooking{}, &FatalStateError{Reason: "confirmation step without a succeeded payment"}
	}
	return *w.Confirmed, nil
}
