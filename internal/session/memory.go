package session

import (
	"context"
	"sync"

	"github.com/tripdesk/booking/internal/wizard"
)

// MemoryStore is the in-process fallback used in development and in
// tests, and when Redis is unreachable at startup.  Sessions do not
// survive a restart, which is acceptable for a single-node dev setup.
type MemoryStore struct {
	mu        sync.RWMutex
	byID      map[string]wizard.Wizard
	byBooking map[string]string
}

// NewMemoryStore returns an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      map[string]wizard.Wizard{},
		byBooking: map[string]string{},
	}
}

func (s *MemoryStore) Save(ctx context.Context, w wizard.Wizard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.byID[w.ID]; ok && cur.Version != w.Version {
		return ErrStaleSession
	}
	w.Version++
	s.byID[w.ID] = w
	if w.Intent != nil {
		s.byBooking[w.Intent.BookingID] = w.ID
	}
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) (wizard.Wizard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.byID[id]
	if !ok {
		return wizard.Wizard{}, ErrNotFound
	}
	return w, nil
}

func (s *MemoryStore) FindByBookingID(ctx context.Context, bookingID string) (wizard.Wizard, error) {
	s.mu.RLock()
	id, ok := s.byBooking[bookingID]
	s.mu.RUnlock()
	if !ok {
		return wizard.Wizard{}, ErrNotFound
	}
	return s.Load(ctx, id)
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.byID[id]; ok && w.Intent != nil {
		delete(s.byBooking, w.Intent.BookingID)
	}
	delete(s.byID, id)
	return nil
}
