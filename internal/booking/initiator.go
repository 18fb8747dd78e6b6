// Package booking turns a validated traveler set plus an offer into a
// pending booking on the backend and hands back the BookingIntent the
// payment step needs.
package booking

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tripdesk/booking/internal/backend"
	"github.com/tripdesk/booking/internal/model"
	"github.com/tripdesk/booking/internal/traveler"
)

// InitError wraps a backend rejection or transport failure during
// booking creation.  No money has moved at this point, and the same
// idempotency key makes a retry safe: the wizard stays on the travelers
// step and the user retries without re-entering anything.
type InitError struct {
	Err error
}

func (e *InitError) Error() string { return fmt.Sprintf("booking: initiation failed: %v", e.Err) }
func (e *InitError) Unwrap() error { return e.Err }

// Initiator submits bookings to the backend.
type Initiator struct {
	backend backend.Client
	log     zerolog.Logger
}

// NewInitiator constructs an Initiator.  The backend client must be
// non-nil.
func NewInitiator(b backend.Client, log zerolog.Logger) *Initiator {
	if b == nil {
		panic("nil backend client passed to NewInitiator")
	}
	return &Initiator{backend: b, log: log.With().Str("component", "booking").Logger()}
}

// Initiate runs the proceed-to-payment validation gate and, only when
// it passes, submits the offer and travelers to the backend.  A gate
// failure returns *traveler.ValidationError without any network call.
// A backend failure returns *InitError.  On success the returned
// BookingIntent is immutable; if the offer or traveler set changes
// afterwards, Initiate must be called again for a fresh intent.
func (i *Initiator) Initiate(ctx context.Context, offer model.Offer, travelers []model.TravelerInfo) (model.BookingIntent, error) {
	if err := traveler.Validate(travelers); err != nil {
		return model.BookingIntent{}, err
	}

	key := IdempotencyKey(offer.ID, travelers)
	res, err := i.backend.CreateBooking(ctx, offer, travelers, key)
	if err != nil {
		i.log.Warn().Err(err).Str("offer_id", offer.ID).Msg("booking creation failed")
		return model.BookingIntent{}, &InitError{Err: err}
	}

	i.log.Info().
		Str("booking_id", res.BookingID).
		Int64("fee_cents", res.FeeCents).
		Str("fee_currency", res.FeeCurrency).
		Msg("booking created")

	return model.BookingIntent{
		BookingID:   res.BookingID,
		FeeCents:    res.FeeCents,
		FeeCurrency: res.FeeCurrency,
		OfferID:     offer.ID,
	}, nil
}
