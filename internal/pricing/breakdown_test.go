package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"github.com/tripdesk/booking/internal/model"
)

func TestComputeBreakdownUsesOfferTotals(t *testing.T) {
	b := ComputeBreakdown(model.Offer{
		Currency:  "USD",
		BaseCents: 84500,
		TaxCents:  12250,
	})
	assert.Equal(t, int64(84500), b.BaseCents)
	assert.Equal(t, int64(12250), b.TaxCents)
	assert.Equal(t, int64(96750), b.TotalCents)
	assert.Equal(t, "USD", b.Currency)
}

func TestComputeBreakdownSumsComponents(t *testing.T) {
	b := ComputeBreakdown(model.Offer{
		Currency: "EUR",
		Prices: []model.PriceComponent{
			{TravelerType: "ADULT", BaseCents: 30000, TaxCents: 5000, Count: 2},
			{TravelerType: "CHILD", BaseCents: 20000, TaxCents: 3000, Count: 1},
		},
	})
	assert.Equal(t, int64(80000), b.BaseCents)
	assert.Equal(t, int64(13000), b.TaxCents)
	assert.Equal(t, int64(93000), b.TotalCents)
}

func TestFormatMoneyTwoDecimals(t *testing.T) {
	s := FormatMoney(123450, "USD", language.English)
	assert.Contains(t, s, "1,234.50")
}

func TestFormatMoneyUnknownCurrencyFallsBack(t *testing.T) {
	s := FormatMoney(500, "ZZZ", language.English)
	assert.Equal(t, "ZZZ 5.00", s)
}
