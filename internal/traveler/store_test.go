package traveler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/booking/internal/model"
)

func specimenScan() model.ScannedDocumentData {
	return model.ScannedDocumentData{
		DocumentType:   "P",
		DocumentNumber: "L898902C3",
		FirstName:      "ANNA MARIA",
		LastName:       "ERIKSSON",
		DateOfBirth:    "1974-08-12",
		ExpiryDate:     "2012-04-15",
		Gender:         model.GenderFemale,
		Nationality:    "UTO",
		IssuingCountry: "UTO",
	}
}

func TestUpdateReturnsNewSequence(t *testing.T) {
	s := New(2)
	s2, err := s.Update(1, func(tr model.TravelerInfo) model.TravelerInfo {
		tr.FirstName = "ANNA"
		return tr
	})
	require.NoError(t, err)

	// The original sequence is untouched.
	orig, _ := s.Get(1)
	assert.Empty(t, orig.FirstName)
	updated, _ := s2.Get(1)
	assert.Equal(t, "ANNA", updated.FirstName)
}

func TestRemovePrimaryForbidden(t *testing.T) {
	s := New(2)
	_, err := s.Remove(0)
	assert.ErrorIs(t, err, ErrPrimaryRequired)

	s2, err := s.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, 1, s2.Len())
}

func TestApplyScanPreservesContactFields(t *testing.T) {
	s := New(1)
	s, _ = s.Update(0, func(tr model.TravelerInfo) model.TravelerInfo {
		tr.Email = "anna@example.com"
		tr.Phone = "+4670000000"
		return tr
	})

	ticket, err := s.ScanTicket(0)
	require.NoError(t, err)
	s2, err := s.ApplyScan(0, ticket, specimenScan())
	require.NoError(t, err)

	got, _ := s2.Get(0)
	assert.Equal(t, "anna@example.com", got.Email)
	assert.Equal(t, "+4670000000", got.Phone)
	assert.Equal(t, "ERIKSSON", got.LastName)
	require.NotNil(t, got.Document)
	assert.Equal(t, "L898902C3", got.Document.Number)
	assert.True(t, got.Document.Holder)
}

func TestApplyScanAfterRemoveIsStale(t *testing.T) {
	s := New(3)
	// Scan starts against traveler 2.
	ticket, err := s.ScanTicket(2)
	require.NoError(t, err)

	// Traveler 1 is removed before the OCR result resolves, so the
	// occupant of slot 2 shifted down into slot 1.
	s2, err := s.Remove(1)
	require.NoError(t, err)

	_, err = s2.ApplyScan(1, ticket, specimenScan())
	assert.ErrorIs(t, err, ErrStaleScan)
}

func TestScannedTravelerPassesGateUnedited(t *testing.T) {
	s := New(1)
	ticket, _ := s.ScanTicket(0)
	s, err := s.ApplyScan(0, ticket, specimenScan())
	require.NoError(t, err)

	assert.NoError(t, Validate(s.Travelers()))
}

func TestValidateListsEveryMissingField(t *testing.T) {
	s := New(2)
	s, _ = s.Update(0, func(tr model.TravelerInfo) model.TravelerInfo {
		tr.FirstName = "ANNA"
		tr.LastName = "ERIKSSON"
		tr.DateOfBirth = "1974-08-12"
		return tr
	})

	err := Validate(s.Travelers())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 3)
	for _, iss := range verr.Issues {
		assert.Equal(t, 1, iss.Index)
	}
}
