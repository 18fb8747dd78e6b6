package model

// BookingIntent is the backend-issued pending-booking handle obtained by
// the Booking Initiator.  It is immutable: if the offer or the traveler
// set changes after creation, a new intent must be created rather than
// mutating this one.  FeeCents is the concierge hold fee collected now,
// not the ticket price.
type BookingIntent struct {
	BookingID   string `json:"booking_id"`   // backend-assigned identifier
	FeeCents    int64  `json:"fee_cents"`    // hold fee in smallest currency unit
	FeeCurrency string `json:"fee_currency"` // ISO 4217 code for the fee
	OfferID     string `json:"offer_id"`     // offer snapshot this intent was created against
}

// ConfirmedBooking is the terminal artifact of a wizard flow: the
// human-readable booking reference plus the intent it settles.  It can
// only exist after exactly one successful payment state transition for
// its BookingIntent.
type ConfirmedBooking struct {
	Reference string `json:"reference"`  // human-readable booking reference (PNR)
	BookingID string `json:"booking_id"` // the BookingIntent this confirms
}
