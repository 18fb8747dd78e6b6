package repository

import (
	"context"
	"sync"
	"time"

	"github.com/tripdesk/booking/internal/model"
)

// MemoryJournal is the in-process journal used in development and in
// tests when no database is configured.  It is NOT a substitute for the
// durable journal in production: a process restart loses the history a
// redirect return may depend on.
type MemoryJournal struct {
	mu   sync.Mutex
	rows map[string][]JournalRecord
}

// NewMemoryJournal returns an empty in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{rows: map[string][]JournalRecord{}}
}

func (j *MemoryJournal) RecordTransition(ctx context.Context, bookingID string, state model.PaymentState, paymentRef string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows[bookingID] = append(j.rows[bookingID], JournalRecord{
		ID:         uint64(len(j.rows[bookingID]) + 1),
		BookingID:  bookingID,
		State:      string(state),
		PaymentRef: paymentRef,
		CreatedAt:  time.Now().UTC(),
	})
	return nil
}

func (j *MemoryJournal) LastPaymentRef(ctx context.Context, bookingID string) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rows := j.rows[bookingID]
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].PaymentRef != "" {
			return rows[i].PaymentRef, nil
		}
	}
	return "", nil
}

// History mirrors JournalRepo.History.
func (j *MemoryJournal) History(ctx context.Context, bookingID string) ([]JournalRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rows := j.rows[bookingID]
	if len(rows) == 0 {
		return nil, ErrNoJournalEntries
	}
	out := make([]JournalRecord, len(rows))
	copy(out, rows)
	return out, nil
}
