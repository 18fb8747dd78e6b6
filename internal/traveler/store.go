// Package traveler holds the ordered traveler sequence collected during
// the travelers step.  The sequence is immutable: every mutation returns
// a new Store, so an async scan result that lands after the user has
// kept editing can be rejected or merged without stale-state surprises.
package traveler

import (
	"encoding/json"
	"errors"

	"github.com/tripdesk/booking/internal/model"
)

// ErrPrimaryRequired is returned when a caller tries to remove the
// primary traveler at index 0.  The primary traveler carries the
// contact fields and is always required.
var ErrPrimaryRequired = errors.New("traveler: primary traveler cannot be removed")

// ErrIndexOutOfRange is returned for operations addressing a slot that
// does not exist.
var ErrIndexOutOfRange = errors.New("traveler: index out of range")

// ErrStaleScan is returned when a scan result arrives for a slot whose
// occupant has been removed or replaced since the scan started.
var ErrStaleScan = errors.New("traveler: scan target no longer current")

type slot struct {
	info model.TravelerInfo
	gen  uint64 // bumped whenever a different logical traveler occupies the slot
}

// Store is an immutable ordered sequence of travelers.  The zero value
// is empty; use New to create one sized for an offer.
type Store struct {
	slots []slot
}

// New creates a Store with count blank travelers.  The count is fixed
// at wizard entry; changing the traveler set restarts the flow.
func New(count int) Store {
	if count < 1 {
		count = 1
	}
	return Store{slots: make([]slot, count)}
}

// Len returns the number of travelers.
func (s Store) Len() int { return len(s.slots) }

// Travelers returns a copy of the traveler sequence.
func (s Store) Travelers() []model.TravelerInfo {
	out := make([]model.TravelerInfo, len(s.slots))
	for i, sl := range s.slots {
		out[i] = sl.info
	}
	return out
}

// Get returns the traveler at index.
func (s Store) Get(index int) (model.TravelerInfo, error) {
	if index < 0 || index >= len(s.slots) {
		return model.TravelerInfo{}, ErrIndexOutOfRange
	}
	return s.slots[index].info, nil
}

func (s Store) clone() Store {
	out := Store{slots: make([]slot, len(s.slots))}
	copy(out.slots, s.slots)
	return out
}

// Update applies a field-level edit to the traveler at index and
// returns the new sequence.  The mutate function receives a copy, so it
// cannot reach back into the old sequence.
func (s Store) Update(index int, mutate func(model.TravelerInfo) model.TravelerInfo) (Store, error) {
	if index < 0 || index >= len(s.slots) {
		return s, ErrIndexOutOfRange
	}
	out := s.clone()
	out.slots[index].info = mutate(out.slots[index].info)
	return out, nil
}

// Remove drops the traveler at index and returns the new sequence.
// Index 0 is refused: the primary traveler is always required.  Slots
// that shift down get a new generation, invalidating any scan that was
// started against their previous occupants.
func (s Store) Remove(index int) (Store, error) {
	if index == 0 {
		return s, ErrPrimaryRequired
	}
	if index < 0 || index >= len(s.slots) {
		return s, ErrIndexOutOfRange
	}
	out := Store{slots: make([]slot, 0, len(s.slots)-1)}
	out.slots = append(out.slots, s.slots[:index]...)
	for _, sl := range s.slots[index+1:] {
		sl.gen++
		out.slots = append(out.slots, sl)
	}
	return out, nil
}

// ScanTicket captures the generation of the slot at index.  Callers
// take a ticket before starting an OCR scan and present it to
// ApplyScan, so a result that resolves after the slot's occupant
// changed is discarded instead of merged.
func (s Store) ScanTicket(index int) (uint64, error) {
	if index < 0 || index >= len(s.slots) {
		return 0, ErrIndexOutOfRange
	}
	return s.slots[index].gen, nil
}

// ApplyScan merges scanned document data into the traveler at index and
// returns the new sequence.  Identity and document fields are
// overwritten wholesale; contact fields (email, phone) are preserved
// because a travel document never carries them.  If the slot's
// generation no longer matches the ticket the scan is stale and
// ErrStaleScan is returned.
func (s Store) ApplyScan(index int, ticket uint64, data model.ScannedDocumentData) (Store, error) {
	if index < 0 || index >= len(s.slots) {
		return s, ErrIndexOutOfRange
	}
	if s.slots[index].gen != ticket {
		return s, ErrStaleScan
	}
	out := s.clone()
	cur := out.slots[index].info

	cur.FirstName = data.FirstName
	cur.LastName = data.LastName
	cur.DateOfBirth = data.DateOfBirth
	cur.Gender = data.Gender
	cur.Nationality = data.Nationality
	cur.Document = &model.TravelDocument{
		Type:           data.DocumentType,
		Number:         data.DocumentNumber,
		ExpiryDate:     data.ExpiryDate,
		IssuingCountry: data.IssuingCountry,
		Holder:         true,
	}

	out.slots[index].info = cur
	return out, nil
}

// slotJSON is the persisted form of a slot; the generation travels with
// the traveler so the stale-scan guard survives session rehydration.
type slotJSON struct {
	Info model.TravelerInfo `json:"info"`
	Gen  uint64             `json:"gen"`
}

// MarshalJSON serializes the sequence for session persistence.
func (s Store) MarshalJSON() ([]byte, error) {
	out := make([]slotJSON, len(s.slots))
	for i, sl := range s.slots {
		out[i] = slotJSON{Info: sl.info, Gen: sl.gen}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a sequence persisted by MarshalJSON.
func (s *Store) UnmarshalJSON(b []byte) error {
	var in []slotJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	s.slots = make([]slot, len(in))
	for i, sl := range in {
		s.slots[i] = slot{info: sl.Info, gen: sl.Gen}
	}
	return nil
}
