package mrz

import (
	"fmt"
	"strings"

	"github.com/tripdesk/booking/internal/model"
)

// mrzField upper-cases s, replaces spaces with fillers and pads or
// truncates to width.
func mrzField(s string, width int) string {
	s = strings.ToUpper(strings.ReplaceAll(s, " ", "<"))
	if len(s) > width {
		return s[:width]
	}
	return s + strings.Repeat("<", width-len(s))
}

// compactDate turns an ISO 8601 date back into the YYMMDD form used on
// the document.
func compactDate(iso string) (string, error) {
	if len(iso) != 10 || iso[4] != '-' || iso[7] != '-' {
		return "", fmt.Errorf("mrz: not an ISO date: %q", iso)
	}
	return iso[2:4] + iso[5:7] + iso[8:10], nil
}

// Encode renders a Document back into its two TD3 lines, computing all
// check digits including the composite.  It is the inverse of Decode
// for every field Decode preserves and exists mainly so tests can
// assert the round-trip and so fixtures can be generated.
func Encode(doc Document) (string, string, error) {
	sexChar := "<"
	switch doc.Sex {
	case model.GenderMale:
		sexChar = "M"
	case model.GenderFemale:
		sexChar = "F"
	}

	birth, err := compactDate(doc.BirthDate)
	if err != nil {
		return "", "", err
	}
	expiry, err := compactDate(doc.ExpiryDate)
	if err != nil {
		return "", "", err
	}

	name := mrzField(doc.Surname, len(doc.Surname)) + "<<" + strings.ReplaceAll(strings.ToUpper(doc.GivenNames), " ", "<")
	line1 := mrzField(doc.Type, 2) + mrzField(doc.IssuingCountry, 3) + mrzField(name, 39)

	number := mrzField(doc.Number, 9)
	personal := mrzField(doc.PersonalNumber, 14)

	line2 := number + digit(number) +
		mrzField(doc.Nationality, 3) +
		birth + digit(birth) +
		sexChar +
		expiry + digit(expiry) +
		personal + digit(personal)
	// Composite digit covers the document number, birth and expiry
	// groups and the personal number, check digits included.
	composite := line2[0:10] + line2[13:20] + line2[21:43]
	line2 += digit(composite)

	return line1, line2, nil
}

func digit(s string) string {
	d := checkDigit(s)
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%d", d)
}
