package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient confirms payments against the processor's REST API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a processor client.  A nil httpClient gets a
// default with a 60 second timeout; confirmation can stall on a
// pending authentication challenge.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPClient{baseURL: baseURL, http: httpClient}
}

// ConfirmPayment posts the payment details against the client secret.
// Processor-reported declines come back as *DeclineError with the
// processor's message intact.
func (c *HTTPClient) ConfirmPayment(ctx context.Context, clientSecret string, details Details) (Result, error) {
	payload := struct {
		ClientSecret string `json:"client_secret"`
		Details
	}{ClientSecret: clientSecret, Details: details}

	buf, err := json.Marshal(payload)
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/confirm", bytes.NewReader(buf))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, err
	}

	// 402 carries a structured decline; anything else non-2xx is a
	// transport-level failure.
	if resp.StatusCode == http.StatusPaymentRequired {
		var decline DeclineError
		if err := json.Unmarshal(body, &decline); err != nil || decline.Message == "" {
			decline.Message = "payment was declined"
		}
		return Result{}, &decline
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("processor: confirm: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out Result
	if err := json.Unmarshal(body, &out); err != nil {
		return Result{}, err
	}
	return out, nil
}
