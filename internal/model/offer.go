package model

// Segment is one flight leg inside an itinerary: a carrier-operated hop
// between two airports at fixed times.  Times are RFC 3339 strings as
// returned by the search backend; this core never does date math on them.
type Segment struct {
	Origin        string `json:"origin"`         // IATA code of the departure airport
	Destination   string `json:"destination"`    // IATA code of the arrival airport
	Carrier       string `json:"carrier"`        // operating carrier code
	FlightNumber  string `json:"flight_number"`  // carrier-assigned flight number
	DepartureTime string `json:"departure_time"` // scheduled departure, RFC 3339
	ArrivalTime   string `json:"arrival_time"`   // scheduled arrival, RFC 3339
}

// PriceComponent is the per-traveler price split for one traveler type
// (adult, child, infant).  Amounts are in the smallest currency unit
// (cents) to avoid floating-point drift in money arithmetic.
type PriceComponent struct {
	TravelerType string `json:"traveler_type"` // ADULT, CHILD or INFANT
	BaseCents    int64  `json:"base_cents"`    // base fare in cents
	TaxCents     int64  `json:"tax_cents"`     // taxes and carrier fees in cents
	Count        int    `json:"count"`         // how many travelers of this type
}

// Offer is an immutable priced itinerary snapshot produced by a prior
// search step.  The wizard reads it but never mutates it; if the offer
// changes, a new wizard flow is started.  The ticket price captured here
// is settled later by the agency and is distinct from the hold fee
// collected during the wizard (which the booking backend determines).
type Offer struct {
	ID        string           `json:"id"`        // search-assigned offer identifier
	Segments  []Segment        `json:"segments"`  // ordered routing
	Prices    []PriceComponent `json:"prices"`    // per-traveler-type price split
	Currency  string           `json:"currency"`  // ISO 4217 code for all amounts
	BaseCents int64            `json:"base_cents"` // itinerary base total in cents
	TaxCents  int64            `json:"tax_cents"`  // itinerary tax/fee total in cents
}

// TravelerCount returns how many traveler records the wizard must collect
// for this offer.  The count is fixed for the lifetime of a wizard flow.
func (o Offer) TravelerCount() int {
	n := 0
	for _, p := range o.Prices {
		n += p.Count
	}
	if n == 0 {
		n = 1
	}
	return n
}
