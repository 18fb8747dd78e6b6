// Package payment drives fee collection for one BookingIntent through
// its state machine: not-started, intent-created, confirming, then
// succeeded or failed.  The orchestrator owns the ordering guarantees
// that matter for money: the backend finalize call happens only after
// the processor reports success, and a finalize failure after a
// successful charge is surfaced as its own ambiguous state instead of
// being retried as a fresh payment.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripdesk/booking/internal/backend"
	"github.com/tripdesk/booking/internal/model"
	"github.com/tripdesk/booking/internal/processor"
)

// Journal durably records every payment state transition keyed by
// booking id.  It is what lets a wizard reopened after a redirect or an
// abandoned tab find the intent it was confirming instead of charging
// again.  Implementations live in internal/repository.
type Journal interface {
	// RecordTransition appends a state change.  paymentRef is the
	// processor intent id or waiver marker, empty while no intent
	// exists yet.
	RecordTransition(ctx context.Context, bookingID string, state model.PaymentState, paymentRef string) error
	// LastPaymentRef returns the payment reference most recently
	// recorded for the booking, or empty if none.
	LastPaymentRef(ctx context.Context, bookingID string) (string, error)
}

// Outcome is the result of driving one payment attempt as far as it
// can go synchronously.
type Outcome struct {
	State       model.PaymentState
	PaymentRef  string                  // processor intent id or waiver marker
	RedirectURL string                  // set when the processor demands a challenge redirect
	Booking     *model.ConfirmedBooking // set once the backend has finalized
}

// Orchestrator runs payment attempts.  One orchestrator serves all
// wizards; per-attempt state travels in arguments and the journal.
type Orchestrator struct {
	backend   backend.Client
	processor processor.Client
	journal   Journal
	log       zerolog.Logger

	// waiverDelay is how long the zero-fee path pauses before
	// reporting success, so the UI timing matches a real charge.
	waiverDelay time.Duration
}

// DefaultWaiverDelay is the pause on the zero-fee path.
const DefaultWaiverDelay = 1500 * time.Millisecond

// NewOrchestrator constructs an Orchestrator.  All dependencies must be
// non-nil.  waiverDelay <= 0 selects DefaultWaiverDelay.
func NewOrchestrator(b backend.Client, p processor.Client, j Journal, log zerolog.Logger, waiverDelay time.Duration) *Orchestrator {
	if b == nil || p == nil || j == nil {
		panic("nil dependency passed to NewOrchestrator")
	}
	if waiverDelay <= 0 {
		waiverDelay = DefaultWaiverDelay
	}
	return &Orchestrator{
		backend:     b,
		processor:   p,
		journal:     j,
		log:         log.With().Str("component", "payment").Logger(),
		waiverDelay: waiverDelay,
	}
}

// CollectFee drives one payment attempt for the intent.  It returns a
// terminal Outcome, an Outcome with a RedirectURL when the processor
// needs a challenge (resume via Resume after the return callback), or
// an error from the taxonomy in errors.go.
func (o *Orchestrator) CollectFee(ctx context.Context, intent model.BookingIntent, details processor.Details) (Outcome, error) {
	if intent.FeeCents == 0 {
		return o.collectWaived(ctx, intent)
	}

	// not-started -> intent-created
	pi, err := o.backend.CreatePaymentIntent(ctx, intent.BookingID, intent.FeeCents, intent.FeeCurrency)
	if err != nil {
		o.log.Warn().Err(err).Str("booking_id", intent.BookingID).Msg("payment intent creation failed")
		return Outcome{State: model.PaymentNotStarted}, &PaymentError{
			Message: "We couldn't start the payment. Your card was not charged. Please try again.",
			Err:     err,
		}
	}
	o.record(ctx, intent.BookingID, model.PaymentIntentCreated, pi.PaymentIntentID)

	// intent-created -> confirming
	o.record(ctx, intent.BookingID, model.PaymentConfirming, pi.PaymentIntentID)
	res, err := o.processor.ConfirmPayment(ctx, pi.ClientSecret, details)
	if err != nil {
		return o.confirmFailed(ctx, intent.BookingID, pi.PaymentIntentID, err)
	}

	switch res.Status {
	case processor.StatusRequiresAction:
		// Suspended on a challenge.  The journal keeps the intent so
		// the return-URL callback can resume; nothing is charged yet
		// until the processor completes the challenge.
		o.log.Info().Str("booking_id", intent.BookingID).Msg("payment awaiting challenge redirect")
		return Outcome{
			State:       model.PaymentConfirming,
			PaymentRef:  res.PaymentIntentID,
			RedirectURL: res.RedirectURL,
		}, nil
	case processor.StatusSucceeded:
		o.record(ctx, intent.BookingID, model.PaymentSucceeded, res.PaymentIntentID)
		return o.finalize(ctx, intent.BookingID, res.PaymentIntentID)
	default:
		return Outcome{State: model.PaymentConfirming}, &PaymentError{
			Message: "The payment processor returned an unexpected result. Please check the booking status before retrying.",
			Err:     fmt.Errorf("unexpected processor status %q", res.Status),
		}
	}
}

// collectWaived is the zero-fee path: no processor contact at all, a
// deliberate pause for consistent UI timing, then finalize with a
// waiver marker the backend can tell apart from a real processor
// intent id.
func (o *Orchestrator) collectWaived(ctx context.Context, intent model.BookingIntent) (Outcome, error) {
	select {
	case <-time.After(o.waiverDelay):
	case <-ctx.Done():
		return Outcome{State: model.PaymentNotStarted}, ctx.Err()
	}
	marker := backend.NewWaiverMarker()
	o.record(ctx, intent.BookingID, model.PaymentSucceeded, marker)
	o.log.Info().Str("booking_id", intent.BookingID).Msg("fee waived, skipping processor")
	return o.finalize(ctx, intent.BookingID, marker)
}

// confirmFailed handles confirming -> failed.  A processor decline is
// definitive: no money moved, the intent is spent, and the processor's
// message is surfaced verbatim.  Any other failure is indeterminate,
// so the user is told to check the booking status rather than being
// promised the card is clean.
func (o *Orchestrator) confirmFailed(ctx context.Context, bookingID, paymentIntentID string, err error) (Outcome, error) {
	var decline *processor.DeclineError
	if errors.As(err, &decline) {
		o.record(ctx, bookingID, model.PaymentFailed, paymentIntentID)
		o.log.Info().Str("booking_id", bookingID).Str("code", decline.Code).Msg("payment declined")
		return Outcome{State: model.PaymentFailed, PaymentRef: paymentIntentID}, &PaymentError{
			Message:  decline.Message,
			Declined: true,
			Err:      decline,
		}
	}
	o.log.Warn().Err(err).Str("booking_id", bookingID).Msg("payment confirmation failed")
	return Outcome{State: model.PaymentConfirming, PaymentRef: paymentIntentID}, &PaymentError{
		Message: "We couldn't complete the payment. Please check the booking status before retrying.",
		Err:     err,
	}
}

// finalize is the only place the backend's finalize endpoint is called,
// and it is only reachable after a succeeded-equivalent result.  When
// it fails, money has already moved: the caller gets a
// FinalizationAmbiguousError, never a silent retry.
func (o *Orchestrator) finalize(ctx context.Context, bookingID, paymentRef string) (Outcome, error) {
	reference, err := o.backend.FinalizeBooking(ctx, bookingID, paymentRef)
	if err != nil {
		o.log.Error().Err(err).Str("booking_id", bookingID).Msg("finalize failed after successful payment")
		return Outcome{State: model.PaymentSucceeded, PaymentRef: paymentRef}, &FinalizationAmbiguousError{
			BookingID:  bookingID,
			PaymentRef: paymentRef,
			Err:        err,
		}
	}
	o.log.Info().Str("booking_id", bookingID).Str("reference", reference).Msg("booking finalized")
	return Outcome{
		State:      model.PaymentSucceeded,
		PaymentRef: paymentRef,
		Booking:    &model.ConfirmedBooking{Reference: reference, BookingID: bookingID},
	}, nil
}

// Resume reconciles a payment after a redirect return or a reopened
// wizard.  The backend, not the client, is the authority on whether the
// charge completed while we were away, so this never restarts fee
// collection blindly.
func (o *Orchestrator) Resume(ctx context.Context, bookingID string) (Outcome, error) {
	st, err := o.backend.GetBookingStatus(ctx, bookingID)
	if err != nil {
		return Outcome{}, fmt.Errorf("payment: status check for %s: %w", bookingID, err)
	}

	switch st.PaymentState {
	case model.PaymentSucceeded:
		if st.BookingReference != "" {
			// Backend already finalized (e.g. via processor webhook).
			return Outcome{
				State:   model.PaymentSucceeded,
				Booking: &model.ConfirmedBooking{Reference: st.BookingReference, BookingID: bookingID},
			}, nil
		}
		// Paid but not yet finalized: finish the job with the intent
		// the journal remembered.
		ref, err := o.journal.LastPaymentRef(ctx, bookingID)
		if err != nil || ref == "" {
			return Outcome{State: model.PaymentSucceeded}, &FinalizationAmbiguousError{
				BookingID: bookingID,
				Err:       fmt.Errorf("payment succeeded but no journaled intent: %w", err),
			}
		}
		o.record(ctx, bookingID, model.PaymentSucceeded, ref)
		return o.finalize(ctx, bookingID, ref)
	case model.PaymentFailed:
		o.record(ctx, bookingID, model.PaymentFailed, "")
		return Outcome{State: model.PaymentFailed}, &PaymentError{
			Message:  "The payment did not go through. You have not been charged. Please try again.",
			Declined: true,
		}
	case model.PaymentNotStarted, model.PaymentIntentCreated:
		// Nothing was charged while the wizard was away.  The payment
		// step is rearmed so a normal confirmation can run; wedging
		// such a wizard in confirming would lock the user out forever.
		return Outcome{State: st.PaymentState}, nil
	default:
		// Still pending on the processor side; the caller polls again.
		return Outcome{State: model.PaymentConfirming}, nil
	}
}

// record journals a transition.  Journal failures are logged and not
// propagated: losing an audit row must not fail a live payment.
func (o *Orchestrator) record(ctx context.Context, bookingID string, state model.PaymentState, ref string) {
	if err := o.journal.RecordTransition(ctx, bookingID, state, ref); err != nil {
		o.log.Error().Err(err).Str("booking_id", bookingID).Str("state", string(state)).Msg("journal write failed")
	}
}
