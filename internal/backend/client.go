// Package backend defines the contract this service consumes from the
// booking backend: the system of record that stores bookings, talks to
// the airline side and issues PNRs.  Only the four operations the
// wizard needs are modeled; everything else the backend does is out of
// scope here.
package backend

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tripdesk/booking/internal/model"
)

// CreateBookingResult is the backend's answer to a booking submission:
// the pending-booking handle plus the hold fee to collect now.
type CreateBookingResult struct {
	BookingID   string `json:"booking_id"`
	FeeCents    int64  `json:"fee_cents"`
	FeeCurrency string `json:"fee_currency"`
}

// PaymentIntentResult carries the processor client secret minted for a
// booking's hold fee.
type PaymentIntentResult struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// StatusResult reports the backend's view of a booking's payment,
// used to reconcile after a redirect-based confirmation or an
// abandoned wizard.
type StatusResult struct {
	PaymentState     model.PaymentState `json:"payment_state"`
	BookingReference string             `json:"booking_reference,omitempty"`
}

// Client is the abstract booking-backend contract.  All calls are
// blocking and honor the context.  CreateBooking must be invoked with
// an idempotency key so a retried submission of the same logical
// booking collapses server-side instead of creating a duplicate
// pending record.
type Client interface {
	CreateBooking(ctx context.Context, offer model.Offer, travelers []model.TravelerInfo, idempotencyKey string) (CreateBookingResult, error)
	CreatePaymentIntent(ctx context.Context, bookingID string, amountCents int64, currency string) (PaymentIntentResult, error)
	// FinalizeBooking settles the booking after payment.  paymentRef is
	// either the processor's payment intent id or a waiver marker for
	// the zero-fee path; the backend tells them apart by the marker
	// prefix.  It returns the human-readable booking reference.
	FinalizeBooking(ctx context.Context, bookingID, paymentRef string) (string, error)
	GetBookingStatus(ctx context.Context, bookingID string) (StatusResult, error)
}

// waiverPrefix marks a finalize call whose fee was waived and therefore
// never touched the payment processor.  Processor intent ids are opaque
// but never carry this prefix.
const waiverPrefix = "fee-waived:"

// NewWaiverMarker mints a payment reference for a zero-fee booking.
func NewWaiverMarker() string {
	return waiverPrefix + uuid.NewString()
}

// IsWaiverMarker reports whether a payment reference is a fee waiver
// rather than a real processor intent id.
func IsWaiverMarker(ref string) bool {
	return strings.HasPrefix(ref, waiverPrefix)
}
