package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tripdesk/booking/internal/model"
)

// HTTPClient talks to the booking backend over its REST API.  It is the
// default Client implementation wired in cmd/server; tests use fakes.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for the backend at baseURL.  A nil
// httpClient gets a default with a 30 second timeout; booking creation
// can be slow when the backend is talking to the airline side.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{baseURL: baseURL, http: httpClient}
}

// createBookingRequest is the wire shape of a booking submission.
type createBookingRequest struct {
	Offer     model.Offer          `json:"offer"`
	Travelers []model.TravelerInfo `json:"travelers"`
}

// CreateBooking submits the offer and traveler set.  The idempotency
// key travels in the Idempotency-Key header; the backend returns the
// same booking for a repeated key.
func (c *HTTPClient) CreateBooking(ctx context.Context, offer model.Offer, travelers []model.TravelerInfo, idempotencyKey string) (CreateBookingResult, error) {
	var out CreateBookingResult
	hdr := http.Header{"Idempotency-Key": []string{idempotencyKey}}
	err := c.post(ctx, "/v1/bookings", createBookingRequest{Offer: offer, Travelers: travelers}, hdr, &out)
	return out, err
}

// CreatePaymentIntent asks the backend to mint a processor payment
// intent for the booking's hold fee.
func (c *HTTPClient) CreatePaymentIntent(ctx context.Context, bookingID string, amountCents int64, currency string) (PaymentIntentResult, error) {
	var out PaymentIntentResult
	body := map[string]any{"amount_cents": amountCents, "currency": currency}
	err := c.post(ctx, "/v1/bookings/"+bookingID+"/payment-intent", body, nil, &out)
	return out, err
}

// FinalizeBooking settles the booking and returns the booking reference.
func (c *HTTPClient) FinalizeBooking(ctx context.Context, bookingID, paymentRef string) (string, error) {
	var out struct {
		BookingReference string `json:"booking_reference"`
	}
	body := map[string]any{"payment_ref": paymentRef, "waived": IsWaiverMarker(paymentRef)}
	if err := c.post(ctx, "/v1/bookings/"+bookingID+"/finalize", body, nil, &out); err != nil {
		return "", err
	}
	return out.BookingReference, nil
}

// GetBookingStatus fetches the backend's view of a booking's payment.
func (c *HTTPClient) GetBookingStatus(ctx context.Context, bookingID string) (StatusResult, error) {
	var out StatusResult
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/bookings/"+bookingID+"/status", nil)
	if err != nil {
		return out, err
	}
	err = c.do(req, &out)
	return out, err
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, hdr http.Header, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Surface the backend's error body; handlers decide how much
		// of it to show the user.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
