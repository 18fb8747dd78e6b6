package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tripdesk/booking/internal/booking"
	"github.com/tripdesk/booking/internal/payment"
	"github.com/tripdesk/booking/internal/processor"
	"github.com/tripdesk/booking/internal/queue"
	queue_publisher "github.com/tripdesk/booking/internal/service"
	"github.com/tripdesk/booking/internal/session"
	"github.com/tripdesk/booking/internal/wizard"
)

// ProceedToPayment handles POST /v1/wizards/:id/payment.  It runs the
// validation gate and the booking initiator; on success the wizard is
// on the payment step holding a BookingIntent with the fee to collect.
// On failure the wizard stays on the travelers step with everything
// the user typed intact.
func (h *WizardHandler) ProceedToPayment(c echo.Context) error {
	return h.paymentTransition(c, func(w wizard.Wizard) (wizard.Wizard, payment.Outcome, error) {
		next, err := w.ToPayment(c.Request().Context(), h.Initiator)
		return next, payment.Outcome{}, err
	})
}

// ConfirmPayment handles POST /v1/wizards/:id/payment/confirm.  The
// body carries the user-entered payment details.  Possible outcomes:
// a confirmed booking, a redirect the client must follow for a
// challenge, or a typed payment failure with an explicit statement of
// whether money moved.
func (h *WizardHandler) ConfirmPayment(c echo.Context) error {
	var details processor.Details
	if err := c.Bind(&details); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	return h.paymentTransition(c, func(w wizard.Wizard) (wizard.Wizard, payment.Outcome, error) {
		return w.Confirm(c.Request().Context(), h.Orch, details)
	})
}

// RetryPayment handles POST /v1/wizards/:id/payment/retry.  After a
// decline the spent intent is gone; this rearms the payment step with
// a fresh intent (same backend booking via the idempotency key).
func (h *WizardHandler) RetryPayment(c echo.Context) error {
	return h.paymentTransition(c, func(w wizard.Wizard) (wizard.Wizard, payment.Outcome, error) {
		next, err := w.Retry(c.Request().Context(), h.Initiator)
		return next, payment.Outcome{}, err
	})
}

// PaymentReturn handles GET /v1/payments/return?booking_id=...  — the
// processor's return-URL callback after a redirect challenge, and the
// re-entry point for a wizard reopened after abandonment.  It never
// starts a new charge; it reconciles against the backend's view.
func (h *WizardHandler) PaymentReturn(c echo.Context) error {
	bookingID := c.QueryParam("booking_id")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id is required"})
	}
	ctx := c.Request().Context()
	w, err := h.Sessions.FindByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no wizard for this booking"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}

	// Reconciliation is a payment transition too; reload under the
	// wizard's lock so it cannot interleave with a live confirm.
	unlock := h.locks.acquire(w.ID)
	defer unlock()
	w, err = h.Sessions.Load(ctx, w.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}

	next, out, err := w.Resume(ctx, h.Orch)
	return h.finishPayment(c, next, out, err)
}

// paymentTransition is like transition but for payment-step operations,
// which produce an Outcome alongside the new wizard state.
func (h *WizardHandler) paymentTransition(c echo.Context, fn func(wizard.Wizard) (wizard.Wizard, payment.Outcome, error)) error {
	ctx := c.Request().Context()
	// One payment transition at a time per wizard: two concurrent
	// confirms must not both load a not-started state and each drive a
	// processor confirmation.
	unlock := h.locks.acquire(c.Param("id"))
	defer unlock()

	w, err := h.Sessions.Load(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "wizard not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}

	next, out, err := fn(w)
	return h.finishPayment(c, next, out, err)
}

// finishPayment persists the post-transition wizard and renders the
// outcome.  The wizard state is saved even when the transition errored:
// a failed or ambiguous payment is real state the next request needs.
func (h *WizardHandler) finishPayment(c echo.Context, w wizard.Wizard, out payment.Outcome, err error) error {
	if serr := h.Sessions.Save(c.Request().Context(), w); serr != nil {
		if errors.Is(serr, session.ErrStaleSession) {
			// Another process moved this wizard while we worked; its
			// outcome is already saved and ours must not clobber it.
			return c.JSON(http.StatusConflict, echo.Map{"error": "the wizard changed concurrently; reload and try again"})
		}
		h.Log.Error().Err(serr).Str("wizard_id", w.ID).Msg("failed to persist session after payment transition")
	}

	if err != nil {
		return h.mapPaymentError(c, w, err)
	}

	if out.RedirectURL != "" {
		return c.JSON(http.StatusOK, echo.Map{
			"wizard":       viewOf(w),
			"redirect_url": out.RedirectURL,
		})
	}
	if w.Step == wizard.StepConfirmation {
		h.publishConfirmed(w)
	}
	return c.JSON(http.StatusOK, viewOf(w))
}

// mapPaymentError renders payment failures.  Every payment-side error
// states plainly whether money was charged — that statement is the
// single most important correctness property of this surface.
func (h *WizardHandler) mapPaymentError(c echo.Context, w wizard.Wizard, err error) error {
	var ierr *booking.InitError
	if errors.As(err, &ierr) {
		return c.JSON(http.StatusBadGateway, echo.Map{
			"error":       "we couldn't create the booking; please try again",
			"money_moved": false,
			"retry_scope": "travelers",
		})
	}

	var amb *payment.FinalizationAmbiguousError
	if errors.As(err, &amb) {
		// Paid but unconfirmed.  Not a retry button; a support hand-off.
		h.Log.Error().Err(err).Str("booking_id", amb.BookingID).Msg("paid-but-unconfirmed booking")
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       "your payment went through, but we couldn't confirm the booking yet. Do NOT pay again — please contact support with your booking id.",
			"money_moved": true,
			"booking_id":  amb.BookingID,
			"support":     true,
		})
	}

	var perr *payment.PaymentError
	if errors.As(err, &perr) {
		resp := echo.Map{
			"error":       perr.Message,
			"retry_scope": "payment",
		}
		if perr.Declined {
			// A decline is definitive: nothing was charged.
			resp["money_moved"] = false
		} else {
			// Indeterminate transport failure: don't promise either way.
			resp["money_moved"] = "unknown"
		}
		return c.JSON(http.StatusPaymentRequired, resp)
	}

	return h.mapWizardError(c, err)
}

// publishConfirmed emits the booking.confirmed event.  Best effort: the
// booking is already final, so a broker outage only costs downstream
// notifications, never the booking.
func (h *WizardHandler) publishConfirmed(w wizard.Wizard) {
	confirmed, err := w.Booking()
	if err != nil {
		h.Log.Error().Err(err).Str("wizard_id", w.ID).Msg("confirmation step without booking")
		return
	}
	route := make([]string, 0, len(w.Offer.Segments))
	for _, s := range w.Offer.Segments {
		route = append(route, s.Origin+"-"+s.Destination)
	}
	travelers := w.Travelers.Travelers()
	ev := queue.BookingConfirmedEvent{
		BookingID:        confirmed.BookingID,
		BookingReference: confirmed.Reference,
		OfferID:          w.Offer.ID,
		Route:            route,
		TravelerCount:    len(travelers),
		ConfirmedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if len(travelers) > 0 {
		ev.PrimaryEmail = travelers[0].Email
	}
	if w.Intent != nil {
		ev.FeeCents = w.Intent.FeeCents
		ev.FeeCurrency = w.Intent.FeeCurrency
		ev.FeeWaived = w.Intent.FeeCents == 0
	}
	go func() {
		// Detached from the request context: the response should not
		// wait on the broker.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishBookingConfirmed(ctx, ev)
	}()
}
