package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/booking/internal/backend"
	"github.com/tripdesk/booking/internal/model"
	"github.com/tripdesk/booking/internal/traveler"
)

// fakeBackend records CreateBooking calls and replays idempotent
// results the way a real backend would: same key, same booking id.
type fakeBackend struct {
	backend.Client

	calls   int
	byKey   map[string]backend.CreateBookingResult
	nextID  int
	failErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{byKey: map[string]backend.CreateBookingResult{}}
}

func (f *fakeBackend) CreateBooking(ctx context.Context, offer model.Offer, travelers []model.TravelerInfo, key string) (backend.CreateBookingResult, error) {
	f.calls++
	if f.failErr != nil {
		return backend.CreateBookingResult{}, f.failErr
	}
	if res, ok := f.byKey[key]; ok {
		return res, nil
	}
	f.nextID++
	res := backend.CreateBookingResult{
		BookingID:   "bk-" + string(rune('0'+f.nextID)),
		FeeCents:    2500,
		FeeCurrency: "USD",
	}
	f.byKey[key] = res
	return res, nil
}

func validTravelers() []model.TravelerInfo {
	return []model.TravelerInfo{{
		FirstName:   "ANNA MARIA",
		LastName:    "ERIKSSON",
		DateOfBirth: "1974-08-12",
		Email:       "anna@example.com",
	}}
}

func TestInitiateRejectsIncompleteTravelersWithoutNetwork(t *testing.T) {
	fb := newFakeBackend()
	init := NewInitiator(fb, zerolog.Nop())

	_, err := init.Initiate(context.Background(), model.Offer{ID: "off-1"}, []model.TravelerInfo{{FirstName: "ANNA"}})

	var verr *traveler.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, fb.calls, "validation failure must not reach the backend")
}

func TestInitiateReturnsIntent(t *testing.T) {
	fb := newFakeBackend()
	init := NewInitiator(fb, zerolog.Nop())

	intent, err := init.Initiate(context.Background(), model.Offer{ID: "off-1", Currency: "USD"}, validTravelers())
	require.NoError(t, err)
	assert.Equal(t, int64(2500), intent.FeeCents)
	assert.Equal(t, "USD", intent.FeeCurrency)
	assert.Equal(t, "off-1", intent.OfferID)
	assert.NotEmpty(t, intent.BookingID)
}

func TestInitiateRetrySameKeySameBooking(t *testing.T) {
	fb := newFakeBackend()
	init := NewInitiator(fb, zerolog.Nop())
	offer := model.Offer{ID: "off-1"}

	first, err := init.Initiate(context.Background(), offer, validTravelers())
	require.NoError(t, err)
	second, err := init.Initiate(context.Background(), offer, validTravelers())
	require.NoError(t, err)

	assert.Equal(t, first.BookingID, second.BookingID, "identical submissions must collapse onto one booking")
	assert.Equal(t, 2, fb.calls)
}

func TestInitiateBackendFailureIsInitError(t *testing.T) {
	fb := newFakeBackend()
	fb.failErr = errors.New("backend unreachable")
	init := NewInitiator(fb, zerolog.Nop())

	_, err := init.Initiate(context.Background(), model.Offer{ID: "off-1"}, validTravelers())
	var ierr *InitError
	require.ErrorAs(t, err, &ierr)
}

func TestIdempotencyKeyStableAndContactBlind(t *testing.T) {
	ts := validTravelers()
	key := IdempotencyKey("off-1", ts)
	assert.Equal(t, key, IdempotencyKey("off-1", validTravelers()))

	// Contact edits must not change the key.
	ts[0].Email = "other@example.com"
	ts[0].Phone = "+100"
	assert.Equal(t, key, IdempotencyKey("off-1", ts))

	// Identity edits must.
	ts[0].LastName = "SVENSSON"
	assert.NotEqual(t, key, IdempotencyKey("off-1", ts))

	// Different offers must.
	assert.NotEqual(t, key, IdempotencyKey("off-2", validTravelers()))
}
