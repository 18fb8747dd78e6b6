package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/tripdesk/booking/internal/booking"
	"github.com/tripdesk/booking/internal/model"
	"github.com/tripdesk/booking/internal/payment"
	"github.com/tripdesk/booking/internal/pricing"
	"github.com/tripdesk/booking/internal/scan"
	"github.com/tripdesk/booking/internal/session"
	"github.com/tripdesk/booking/internal/traveler"
	"github.com/tripdesk/booking/internal/wizard"
)

// WizardHandler exposes the booking wizard over HTTP.  Each endpoint
// loads the wizard session, applies exactly one state-machine
// transition and saves the result; the state machine itself decides
// what is allowed, the handler only translates errors into responses.
type WizardHandler struct {
	Sessions  session.Store
	Initiator *booking.Initiator
	Orch      *payment.Orchestrator
	Extractor *scan.Extractor // nil when no OCR engine is available
	Log       zerolog.Logger

	locks lockTable // serializes payment transitions per wizard
}

// NewWizardHandler constructs a WizardHandler.  Extractor may be nil;
// scanning then responds 503 and travelers are entered manually.
func NewWizardHandler(sessions session.Store, init *booking.Initiator, orch *payment.Orchestrator, extractor *scan.Extractor, log zerolog.Logger) *WizardHandler {
	if sessions == nil || init == nil || orch == nil {
		panic("nil dependency passed to NewWizardHandler")
	}
	return &WizardHandler{
		Sessions:  sessions,
		Initiator: init,
		Orch:      orch,
		Extractor: extractor,
		Log:       log.With().Str("component", "handler").Logger(),
	}
}

// wizardView is the wire representation of a wizard returned by every
// flow endpoint.
type wizardView struct {
	ID           string                  `json:"id"`
	Step         wizard.Step             `json:"step"`
	Offer        model.Offer             `json:"offer"`
	Breakdown    pricing.Display         `json:"breakdown"`
	Travelers    []model.TravelerInfo    `json:"travelers"`
	Intent       *model.BookingIntent    `json:"intent,omitempty"`
	PaymentState model.PaymentState      `json:"payment_state"`
	Confirmed    *model.ConfirmedBooking `json:"confirmed,omitempty"`
}

func viewOf(w wizard.Wizard) wizardView {
	return wizardView{
		ID:           w.ID,
		Step:         w.Step,
		Offer:        w.Offer,
		Breakdown:    w.Breakdown().Render(language.English),
		Travelers:    w.Travelers.Travelers(),
		Intent:       w.Intent,
		PaymentState: w.PaymentState,
		Confirmed:    w.Confirmed,
	}
}

// StartWizard handles POST /v1/wizards.  The body carries the offer
// snapshot selected by the search step; the response is a fresh wizard
// on the review step with the rendered price breakdown.
func (h *WizardHandler) StartWizard(c echo.Context) error {
	var body struct {
		Offer model.Offer `json:"offer"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Offer.ID == "" || body.Offer.Currency == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "offer with id and currency is required"})
	}

	w := wizard.Start(body.Offer)
	if err := h.Sessions.Save(c.Request().Context(), w); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to persist session"})
	}
	h.Log.Info().Str("wizard_id", w.ID).Str("offer_id", body.Offer.ID).Msg("wizard started")
	return c.JSON(http.StatusCreated, viewOf(w))
}

// GetWizard handles GET /v1/wizards/:id.
func (h *WizardHandler) GetWizard(c echo.Context) error {
	w, err := h.Sessions.Load(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "wizard not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}
	return c.JSON(http.StatusOK, viewOf(w))
}

// EnterTravelers handles POST /v1/wizards/:id/travelers.  It moves the
// wizard from review to the travelers step, freezing the party size.
func (h *WizardHandler) EnterTravelers(c echo.Context) error {
	return h.transition(c, func(w wizard.Wizard) (wizard.Wizard, error) {
		return w.ToTravelers()
	})
}

// travelerPatch is a partial traveler edit; only present fields are
// applied, so the UI can save field-by-field.
type travelerPatch struct {
	FirstName   *string               `json:"first_name"`
	LastName    *string               `json:"last_name"`
	DateOfBirth *string               `json:"date_of_birth"`
	Gender      *model.Gender         `json:"gender"`
	Nationality *string               `json:"nationality"`
	Email       *string               `json:"email"`
	Phone       *string               `json:"phone"`
	Document    *model.TravelDocument `json:"document"`
}

func (p travelerPatch) apply(t model.TravelerInfo) model.TravelerInfo {
	if p.FirstName != nil {
		t.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		t.LastName = *p.LastName
	}
	if p.DateOfBirth != nil {
		t.DateOfBirth = *p.DateOfBirth
	}
	if p.Gender != nil {
		t.Gender = *p.Gender
	}
	if p.Nationality != nil {
		t.Nationality = *p.Nationality
	}
	if p.Email != nil {
		t.Email = *p.Email
	}
	if p.Phone != nil {
		t.Phone = *p.Phone
	}
	if p.Document != nil {
		doc := *p.Document
		t.Document = &doc
	}
	return t
}

// EditTraveler handles PATCH /v1/wizards/:id/travelers/:index.
func (h *WizardHandler) EditTraveler(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid traveler index"})
	}
	var patch travelerPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	return h.transition(c, func(w wizard.Wizard) (wizard.Wizard, error) {
		return w.EditTraveler(index, patch.apply)
	})
}

// RemoveTraveler handles DELETE /v1/wizards/:id/travelers/:index.
// Changing the party restarts the flow at the travelers step.
func (h *WizardHandler) RemoveTraveler(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid traveler index"})
	}
	return h.transition(c, func(w wizard.Wizard) (wizard.Wizard, error) {
		return w.RemoveTraveler(index)
	})
}

// transition loads the session, applies fn and saves the result.  The
// returned response is the updated wizard view, or a mapped error when
// the state machine refuses.
func (h *WizardHandler) transition(c echo.Context, fn func(wizard.Wizard) (wizard.Wizard, error)) error {
	ctx := c.Request().Context()
	w, err := h.Sessions.Load(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "wizard not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}

	next, err := fn(w)
	if err != nil {
		return h.mapWizardError(c, err)
	}
	if err := h.Sessions.Save(ctx, next); err != nil {
		if errors.Is(err, session.ErrStaleSession) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "the wizard changed concurrently; reload and try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to persist session"})
	}
	return c.JSON(http.StatusOK, viewOf(next))
}

// CancelWizard handles DELETE /v1/wizards/:id.  Abandoning a flow
// before payment discards the session; an inert pending booking moves
// no money, so there is nothing to compensate.  A wizard whose payment
// is confirming, or succeeded without a confirmed booking, cannot be
// thrown away: it has to be resolved through the payment return path.
func (h *WizardHandler) CancelWizard(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	unlock := h.locks.acquire(id)
	defer unlock()

	w, err := h.Sessions.Load(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "wizard not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}
	if w.PaymentState == model.PaymentConfirming ||
		(w.PaymentState == model.PaymentSucceeded && w.Confirmed == nil) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "a payment is pending for this booking; resolve it before discarding the wizard"})
	}
	if err := h.Sessions.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete session"})
	}
	return c.NoContent(http.StatusNoContent)
}

// mapWizardError translates state-machine and validation errors into
// HTTP responses.  Validation problems list every offending field so
// the form can mark them all in one pass.
func (h *WizardHandler) mapWizardError(c echo.Context, err error) error {
	var verr *traveler.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":  "traveler details are incomplete",
			"fields": verr.Issues,
		})
	}
	switch {
	case errors.Is(err, wizard.ErrWrongStep):
		return c.JSON(http.StatusConflict, echo.Map{"error": "operation not valid in current step"})
	case errors.Is(err, wizard.ErrPaymentInFlight):
		return c.JSON(http.StatusConflict, echo.Map{"error": "a payment is already in progress for this booking"})
	case errors.Is(err, wizard.ErrRetryRequired):
		return c.JSON(http.StatusConflict, echo.Map{"error": "previous payment attempt failed; retry to start a new one"})
	case errors.Is(err, wizard.ErrReconcileRequired):
		// Money moved; a second charge is forbidden.
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       "this booking's payment already succeeded. Do NOT pay again — finish via the payment status check.",
			"money_moved": true,
			"support":     true,
		})
	case errors.Is(err, traveler.ErrPrimaryRequired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "the primary traveler cannot be removed"})
	case errors.Is(err, traveler.ErrIndexOutOfRange):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no such traveler"})
	case errors.Is(err, traveler.ErrStaleScan):
		return c.JSON(http.StatusConflict, echo.Map{"error": "the traveler changed while the scan was running; please scan again"})
	}

	var fatal *wizard.FatalStateError
	if errors.As(err, &fatal) {
		// Invariant breach: log loudly and halt this flow.
		h.Log.Error().Err(err).Str("wizard_id", c.Param("id")).Msg("wizard invariant violated")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal state error; please contact support"})
	}
	h.Log.Warn().Err(err).Str("wizard_id", c.Param("id")).Msg("wizard transition failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected error"})
}
