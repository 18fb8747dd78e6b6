package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tripdesk/booking/internal/model"
)

// JournalRecord mirrors the schema of the payment_journal table.  The
// table is append-only: a booking's payment history is the ordered set
// of its rows, never an update in place.
type JournalRecord struct {
	ID         uint64    // payment_journal.id
	BookingID  string    // payment_journal.booking_id
	State      string    // payment_journal.state
	PaymentRef string    // payment_journal.payment_ref (empty before an intent exists)
	CreatedAt  time.Time // payment_journal.created_at
}

// JournalRepo provides access to the payment_journal table.  All
// timestamps are stored in UTC.
type JournalRepo struct {
	db *sql.DB
}

// NewJournalRepo returns a new JournalRepo bound to the given database.
func NewJournalRepo(db *sql.DB) *JournalRepo { return &JournalRepo{db: db} }

// RecordTransition appends one payment state transition.  It implements
// payment.Journal.
func (r *JournalRepo) RecordTransition(ctx context.Context, bookingID string, state model.PaymentState, paymentRef string) error {
	const q = `INSERT INTO payment_journal (booking_id, state, payment_ref, created_at) VALUES (?, ?, ?, UTC_TIMESTAMP())`
	_, err := r.db.ExecContext(ctx, q, bookingID, string(state), paymentRef)
	return err
}

// LastPaymentRef returns the most recently journaled payment reference
// for a booking, or empty when every row predates an intent.  It
// implements payment.Journal.
func (r *JournalRepo) LastPaymentRef(ctx context.Context, bookingID string) (string, error) {
	const q = `SELECT payment_ref FROM payment_journal WHERE booking_id = ? AND payment_ref <> '' ORDER BY id DESC LIMIT 1`
	var ref string
	err := r.db.QueryRowContext(ctx, q, bookingID).Scan(&ref)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return ref, nil
}

// History returns a booking's full transition history, oldest first.
// Support staff use this when untangling a paid-but-unconfirmed case.
func (r *JournalRepo) History(ctx context.Context, bookingID string) ([]JournalRecord, error) {
	const q = `SELECT id, booking_id, state, payment_ref, created_at FROM payment_journal WHERE booking_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JournalRecord
	for rows.Next() {
		var rec JournalRecord
		if err := rows.Scan(&rec.ID, &rec.BookingID, &rec.State, &rec.PaymentRef, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoJournalEntries
	}
	return out, nil
}
