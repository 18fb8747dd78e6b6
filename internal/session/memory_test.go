package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/booking/internal/model"
	"github.com/tripdesk/booking/internal/wizard"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	w := wizard.Start(model.Offer{ID: "off-1", Currency: "USD"})
	require.NoError(t, s.Save(ctx, w))

	got, err := s.Load(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, wizard.StepReview, got.Step)

	_, err = s.Load(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreBookingIndex(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	w := wizard.Start(model.Offer{ID: "off-1"})
	w.Intent = &model.BookingIntent{BookingID: "bk-9", FeeCents: 100, FeeCurrency: "USD"}
	require.NoError(t, s.Save(ctx, w))

	got, err := s.FindByBookingID(ctx, "bk-9")
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)

	require.NoError(t, s.Delete(ctx, w.ID))
	_, err = s.FindByBookingID(ctx, "bk-9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRejectsStaleVersion(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	w := wizard.Start(model.Offer{ID: "off-1", Currency: "USD"})
	require.NoError(t, s.Save(ctx, w))

	// Two requests load the same version; only the first save wins,
	// the second must reload before it may write.
	a, err := s.Load(ctx, w.ID)
	require.NoError(t, err)
	b, err := s.Load(ctx, w.ID)
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, a))
	assert.ErrorIs(t, s.Save(ctx, b), ErrStaleSession)

	// After a reload the save goes through again.
	b, err = s.Load(ctx, w.ID)
	require.NoError(t, err)
	assert.NoError(t, s.Save(ctx, b))
}

func TestWizardSurvivesSerialization(t *testing.T) {
	// The Redis store persists wizards as JSON; the traveler sequence
	// and its scan-guard generations must survive the round trip.
	w := wizard.Start(model.Offer{
		ID:       "off-1",
		Currency: "USD",
		Prices:   []model.PriceComponent{{TravelerType: "ADULT", BaseCents: 1000, Count: 2}},
	})
	w, err := w.ToTravelers()
	require.NoError(t, err)
	w, err = w.EditTraveler(0, func(tr model.TravelerInfo) model.TravelerInfo {
		tr.FirstName = "ANNA"
		return tr
	})
	require.NoError(t, err)

	blob, err := json.Marshal(w)
	require.NoError(t, err)

	var got wizard.Wizard
	require.NoError(t, json.Unmarshal(blob, &got))
	assert.Equal(t, 2, got.Travelers.Len())
	tr, err := got.Travelers.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "ANNA", tr.FirstName)
}
