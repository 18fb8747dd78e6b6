package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/tripdesk/booking/internal/handler"    // handlers implementing the wizard flow
	"github.com/tripdesk/booking/internal/middleware" // rate limiting for the scan endpoint
)

// RegisterRoutes registers routes that do not belong to a wizard session on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterWizard registers the booking wizard endpoints.  Every route below
// /v1/wizards/:id loads the wizard from the session store, applies one step
// transition and saves the result, so the URL layout mirrors the flow:
// travelers first, then payment, then confirmation.  The rdb client powers
// the scan rate limiter and may be nil.
func RegisterWizard(e *echo.Echo, h *handler.WizardHandler, rdb *redis.Client, scanPerMinute int) {
	g := e.Group("/v1/wizards")

	// Create a wizard for an offer and return it on the review step.
	g.POST("", h.StartWizard)
	// Fetch the current view of a wizard, including the price breakdown.
	g.GET("/:id", h.GetWizard)
	// Discard an abandoned wizard.  Refused while a payment is pending.
	g.DELETE("/:id", h.CancelWizard)

	// Traveler collection.  Entering the step fixes the party size; edits
	// are per traveler and removing one sends the wizard back to the start.
	g.POST("/:id/travelers", h.EnterTravelers)
	g.PATCH("/:id/travelers/:index", h.EditTraveler)
	g.DELETE("/:id/travelers/:index", h.RemoveTraveler)

	// Passport scans run OCR, which is expensive, so the endpoint carries
	// its own rate limit on top of the engine pool.
	g.POST("/:id/travelers/:index/scan", h.ScanDocument,
		middleware.ScanRateLimit(rdb, scanPerMinute))

	// Payment.  Proceeding creates the booking on the backend; confirm
	// collects the fee and retry is only valid after a decline.
	g.POST("/:id/payment", h.ProceedToPayment)
	g.POST("/:id/payment/confirm", h.ConfirmPayment)
	g.POST("/:id/payment/retry", h.RetryPayment)

	// Landing point for processor redirects.  The wizard is found through
	// the booking id the processor echoes back, not the wizard id.
	e.GET("/v1/payments/return", h.PaymentReturn)
}
