// Package session persists wizard state between HTTP requests.  A
// running flow must survive a full page redirect to the payment
// processor and back, and must be findable by booking id when the
// return-URL callback arrives, so sessions are stored out of process in
// Redis with an in-memory fallback for development.
package session

import (
	"context"
	"errors"

	"github.com/tripdesk/booking/internal/wizard"
)

// ErrNotFound is returned when no session exists for the given key.
var ErrNotFound = errors.New("session: not found")

// ErrStaleSession is returned by Save when the wizard's version no
// longer matches the stored one: another request transitioned the same
// wizard in between.  The caller reloads and lets the state machine
// decide whether the operation is still valid.
var ErrStaleSession = errors.New("session: wizard was updated concurrently")

// Store persists wizard sessions.
type Store interface {
	// Save upserts the wizard, indexed by wizard id and, when an
	// intent exists, by booking id for return-callback lookup.  The
	// stored version is bumped; a save against an outdated version
	// fails with ErrStaleSession so concurrent transitions cannot
	// silently overwrite each other.
	Save(ctx context.Context, w wizard.Wizard) error
	// Load fetches a wizard by its id.
	Load(ctx context.Context, id string) (wizard.Wizard, error)
	// FindByBookingID fetches the wizard holding the given booking
	// intent; used by the payment return callback, which only knows
	// the booking id.
	FindByBookingID(ctx context.Context, bookingID string) (wizard.Wizard, error)
	// Delete removes a session, normally after confirmation.
	Delete(ctx context.Context, id string) error
}
