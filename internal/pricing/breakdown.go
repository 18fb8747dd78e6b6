// Package pricing derives the itinerary price breakdown shown on the
// review step.  It is stateless: everything is a pure function of the
// offer snapshot.  The concierge hold fee collected during the wizard
// comes from the booking backend and is deliberately NOT computed here;
// ticket price and hold fee are different amounts in different
// conversations and must never be conflated.
package pricing

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tripdesk/booking/internal/model"
)

// Breakdown is the itinerary price split in the offer's currency.  All
// amounts are in the smallest currency unit.
type Breakdown struct {
	BaseCents  int64  `json:"base_cents"`
	TaxCents   int64  `json:"tax_cents"`
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`
}

// ComputeBreakdown derives the breakdown from an offer.  Offers from
// the search backend carry itinerary totals; when those are absent the
// per-traveler price components are summed instead.
func ComputeBreakdown(offer model.Offer) Breakdown {
	base := offer.BaseCents
	tax := offer.TaxCents
	if base == 0 && tax == 0 {
		for _, p := range offer.Prices {
			base += p.BaseCents * int64(p.Count)
			tax += p.TaxCents * int64(p.Count)
		}
	}
	return Breakdown{
		BaseCents:  base,
		TaxCents:   tax,
		TotalCents: base + tax,
		Currency:   offer.Currency,
	}
}

// Display is the breakdown rendered for humans: locale-aware formatted
// amounts with the currency symbol and two decimal places.
type Display struct {
	Base         string `json:"base"`
	TaxesAndFees string `json:"taxes_and_fees"`
	Total        string `json:"total"`
	Currency     string `json:"currency"`
}

// Render formats the breakdown for the given display locale.
func (b Breakdown) Render(tag language.Tag) Display {
	return Display{
		Base:         FormatMoney(b.BaseCents, b.Currency, tag),
		TaxesAndFees: FormatMoney(b.TaxCents, b.Currency, tag),
		Total:        FormatMoney(b.TotalCents, b.Currency, tag),
		Currency:     b.Currency,
	}
}

// FormatMoney renders an amount of the given ISO 4217 currency for a
// display locale: currency symbol, locale digit grouping, two decimal
// places.  An unknown currency code falls back to "CODE 12.34".
func FormatMoney(cents int64, code string, tag language.Tag) string {
	p := message.NewPrinter(tag)
	unit, err := currency.ParseISO(code)
	if err != nil {
		return p.Sprintf("%s %.2f", code, float64(cents)/100)
	}
	sym := p.Sprintf("%v", currency.Symbol(unit))
	return p.Sprintf("%s%.2f", sym, float64(cents)/100)
}
