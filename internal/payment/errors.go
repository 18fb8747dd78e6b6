package payment

import "fmt"

// PaymentError is a failed fee collection where no money moved: the
// processor declined the card, the authentication challenge failed, or
// the intent could not be created at all.  The failed intent is spent;
// retrying starts a fresh cycle with a new intent.  Message is safe to
// show the user and, for declines, carries the processor's wording
// verbatim.
type PaymentError struct {
	Message  string
	Declined bool // true when the processor itself reported the failure
	Err      error
}

func (e *PaymentError) Error() string { return "payment: " + e.Message }
func (e *PaymentError) Unwrap() error { return e.Err }

// FinalizationAmbiguousError is the paid-but-unconfirmed state: the
// processor confirmed the charge but the backend finalize call failed.
// Money HAS moved.  This must never be silently retried as a fresh
// payment and never presented as a plain failure; the only sanctioned
// recovery is reconciling through the backend's booking status, and
// the user is directed to support.
type FinalizationAmbiguousError struct {
	BookingID  string
	PaymentRef string // the processor intent that carries the charge
	Err        error
}

func (e *FinalizationAmbiguousError) Error() string {
	return fmt.Sprintf("payment: booking %s is paid but unconfirmed: %v", e.BookingID, e.Err)
}

func (e *FinalizationAmbiguousError) Unwrap() error { return e.Err }
