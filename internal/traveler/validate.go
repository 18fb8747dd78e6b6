package traveler

import (
	"fmt"
	"strings"

	"github.com/tripdesk/booking/internal/model"
)

// FieldIssue names one missing or malformed field on one traveler.
type FieldIssue struct {
	Index int    `json:"index"` // which traveler
	Field string `json:"field"` // which field
}

// ValidationError is the field-level result of the proceed-to-payment
// gate.  It is produced entirely locally; no network call is made while
// any issue remains.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, iss := range e.Issues {
		parts[i] = fmt.Sprintf("traveler %d: %s required", iss.Index, iss.Field)
	}
	return "traveler: " + strings.Join(parts, "; ")
}

// Validate runs the proceed-to-payment gate over the sequence: every
// traveler must have a non-empty first name, last name and date of
// birth.  It returns nil when the sequence is complete, otherwise a
// *ValidationError listing every missing field so the form can mark
// them all at once.
func Validate(travelers []model.TravelerInfo) error {
	var issues []FieldIssue
	for i, t := range travelers {
		if strings.TrimSpace(t.FirstName) == "" {
			issues = append(issues, FieldIssue{Index: i, Field: "first_name"})
		}
		if strings.TrimSpace(t.LastName) == "" {
			issues = append(issues, FieldIssue{Index: i, Field: "last_name"})
		}
		if strings.TrimSpace(t.DateOfBirth) == "" {
			issues = append(issues, FieldIssue{Index: i, Field: "date_of_birth"})
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
