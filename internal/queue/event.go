// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a wizard reaches its terminal
// confirmation state.  It carries enough for downstream consumers
// (notifications, analytics, the ops dashboard) to act without querying
// the booking backend.
type BookingConfirmedEvent struct {
	BookingID        string   `json:"booking_id"`
	BookingReference string   `json:"booking_reference"`
	OfferID          string   `json:"offer_id"`
	Route            []string `json:"route"` // segment hops, e.g. "LHR-JFK"
	TravelerCount    int      `json:"traveler_count"`
	PrimaryEmail     string   `json:"primary_email"`
	FeeCents         int64    `json:"fee_cents"`
	FeeCurrency      string   `json:"fee_currency"`
	FeeWaived        bool     `json:"fee_waived"`
	ConfirmedAt      string   `json:"confirmed_at"` // RFC 3339 UTC
}
