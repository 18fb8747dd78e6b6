// Package repository provides data access to the payment journal.  The
// journal is this service's only durable table: an append-only record
// of payment state transitions per booking, consulted when a wizard is
// reopened after a redirect or an abandoned tab and the service has to
// work out whether money moved.
package repository

import "errors"

// ErrNoJournalEntries is returned when a booking has no journal rows.
// Callers treat this as "no payment was ever started" rather than a
// database failure.
var ErrNoJournalEntries = errors.New("repository: no journal entries for booking")
