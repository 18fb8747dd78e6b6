package model

// PaymentState is the client-tracked lifecycle of one payment attempt
// against a BookingIntent.  Exactly one PaymentState is live per intent.
// A failed attempt is retried by creating a fresh intent-created cycle,
// never by re-using a processor confirmation token.
type PaymentState string

const (
	PaymentNotStarted    PaymentState = "NOT_STARTED"
	PaymentIntentCreated PaymentState = "INTENT_CREATED"
	PaymentConfirming    PaymentState = "CONFIRMING"
	PaymentSucceeded     PaymentState = "SUCCEEDED"
	PaymentFailed        PaymentState = "FAILED"
)

// Terminal reports whether the state admits no further transitions.
func (s PaymentState) Terminal() bool {
	return s == PaymentSucceeded || s == PaymentFailed
}
