// Package processor defines the contract this service consumes from the
// payment processor.  Only client-side confirmation is modeled: intent
// creation goes through the booking backend, which holds the processor
// account credentials.
package processor

import "context"

// Result statuses reported by ConfirmPayment.
const (
	// StatusSucceeded: the charge went through.
	StatusSucceeded = "succeeded"
	// StatusRequiresAction: a 3-D Secure or redirect challenge is
	// pending; the caller must send the user to RedirectURL and resume
	// from the return-URL callback.
	StatusRequiresAction = "requires_action"
)

// Details carries the user-entered payment method plus the return URL
// the processor should send the user back to after a redirect
// challenge.  The return URL must carry the booking id so the wizard
// can be rehydrated.
type Details struct {
	CardNumber string `json:"card_number"`
	ExpMonth   int    `json:"exp_month"`
	ExpYear    int    `json:"exp_year"`
	CVC        string `json:"cvc"`
	HolderName string `json:"holder_name"`
	ReturnURL  string `json:"return_url"`
}

// Result is the processor's answer to a confirmation attempt.
type Result struct {
	Status          string `json:"status"`
	PaymentIntentID string `json:"payment_intent_id"`
	RedirectURL     string `json:"redirect_url,omitempty"`
}

// DeclineError is a card or authentication failure reported by the
// processor.  Message is shown to the user verbatim; Code is for logs.
// A declined intent is single-use: retrying requires a fresh intent.
type DeclineError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DeclineError) Error() string { return "processor: " + e.Message }

// Client confirms a payment intent identified by its client secret.
// Implementations may block for a long time while a challenge flow is
// pending and must honor context cancellation.
type Client interface {
	ConfirmPayment(ctx context.Context, clientSecret string, details Details) (Result, error)
}
