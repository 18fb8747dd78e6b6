// Package mrz decodes the Machine-Readable Zone printed on a travel
// document's data page, following the ICAO 9303 TD3 (passport) layout:
// two lines of 44 characters drawn from the alphabet A-Z, 0-9 and the
// filler '<'.  The package is pure string arithmetic with no I/O; OCR
// and image handling live in internal/scan.
package mrz

import (
	"fmt"
	"strings"

	"github.com/tripdesk/booking/internal/model"
)

// LineLength is the fixed width of a TD3 MRZ line.
const LineLength = 44

// MinCandidateLength is the shortest OCR line worth considering as an
// MRZ candidate.  Shorter fragments are printed text or noise.
const MinCandidateLength = 20

// Document holds the decoded fields of a TD3 MRZ block.  Dates are
// normalized to ISO 8601 (YYYY-MM-DD); names have fillers replaced by
// spaces and trailing padding stripped.
type Document struct {
	Type           string // document type, e.g. "P"
	IssuingCountry string // three-letter issuing state code
	Surname        string // primary identifier
	GivenNames     string // secondary identifier, space separated
	Number         string // document number without filler padding
	Nationality    string // three-letter nationality code
	BirthDate      string // ISO date
	Sex            model.Gender
	ExpiryDate     string // ISO date
	PersonalNumber string // optional national identifier
}

// FieldError reports a structural decoding failure tied to a named MRZ
// field, such as a check-digit mismatch or a malformed date.
type FieldError struct {
	Field  string // which MRZ field failed
	Reason string // what was wrong with it
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("mrz: %s: %s", e.Field, e.Reason)
}

// charValue maps an MRZ character to its check-digit value: digits map
// to themselves, A-Z to 10-35 and the filler '<' to 0.  Any other
// character returns -1.
func charValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	case c == '<':
		return 0
	default:
		return -1
	}
}

// checkDigit computes the ICAO 9303 check digit over s using the
// repeating 7-3-1 weighting.  It returns -1 if s contains a character
// outside the MRZ alphabet.
func checkDigit(s string) int {
	weights := [3]int{7, 3, 1}
	sum := 0
	for i := 0; i < len(s); i++ {
		v := charValue(s[i])
		if v < 0 {
			return -1
		}
		sum += v * weights[i%3]
	}
	return sum % 10
}

// verify checks the character at pos against the check digit computed
// over the field value.  A '<' in the check position counts as 0, which
// is how empty optional fields are encoded.
func verify(field, value string, digit byte) error {
	want := checkDigit(value)
	if want < 0 {
		return &FieldError{Field: field, Reason: "character outside MRZ alphabet"}
	}
	got := int(digit - '0')
	if digit == '<' {
		got = 0
	}
	if got != want {
		return &FieldError{Field: field, Reason: fmt.Sprintf("check digit mismatch (got %c, want %d)", digit, want)}
	}
	return nil
}

// trimFiller removes trailing '<' padding and converts interior fillers
// to single spaces.
func trimFiller(s string) string {
	s = strings.TrimRight(s, "<")
	parts := strings.Split(s, "<")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// normalizeBirthDate expands a YYMMDD birth date using the common ICAO
// pivot: two-digit years below 50 map to 20YY, everything else to 19YY.
// The pivot misclassifies centenarians; that ambiguity is inherent to
// the format.
func normalizeBirthDate(yymmdd string) (string, error) {
	return expandDate(yymmdd, func(yy int) int {
		if yy < 50 {
			return 2000 + yy
		}
		return 1900 + yy
	})
}

// normalizeExpiryDate expands a YYMMDD expiry date.  Unlike birth dates,
// expiry dates are always mapped into 20YY: no travel document in
// circulation expires in the 1900s.
func normalizeExpiryDate(yymmdd string) (string, error) {
	return expandDate(yymmdd, func(yy int) int { return 2000 + yy })
}

func expandDate(yymmdd string, century func(int) int) (string, error) {
	if len(yymmdd) != 6 {
		return "", fmt.Errorf("want 6 digits, got %q", yymmdd)
	}
	for i := 0; i < 6; i++ {
		if yymmdd[i] < '0' || yymmdd[i] > '9' {
			return "", fmt.Errorf("non-digit in date %q", yymmdd)
		}
	}
	yy := int(yymmdd[0]-'0')*10 + int(yymmdd[1]-'0')
	mm := yymmdd[2:4]
	dd := yymmdd[4:6]
	return fmt.Sprintf("%04d-%s-%s", century(yy), mm, dd), nil
}

// normalizeSex maps the MRZ sex character to the closed Gender
// enumeration.  Anything that is not M or F, including the '<' filler,
// maps to GenderUnspecified rather than guessing.
func normalizeSex(c byte) model.Gender {
	switch c {
	case 'M':
		return model.GenderMale
	case 'F':
		return model.GenderFemale
	default:
		return model.GenderUnspecified
	}
}

// pad right-pads a candidate line with fillers up to the TD3 width so a
// line whose trailing fillers were dropped by OCR still decodes; the
// field check digits catch real corruption.
func pad(line string) string {
	if len(line) >= LineLength {
		return line
	}
	return line + strings.Repeat("<", LineLength-len(line))
}

// Decode parses a two-line TD3 MRZ block.  Both lines must already be
// upper-case with whitespace stripped (internal/scan does that).  It
// validates the document-number, birth-date and expiry-date check
// digits always, and the personal-number and composite digits when the
// second line arrived at full width; when OCR dropped trailing
// characters the restored padding would fail those two by construction,
// so they are skipped.  A mismatch or a malformed field returns a
// *FieldError.
func Decode(line1, line2 string) (Document, error) {
	if len(line1) > LineLength || len(line2) > LineLength {
		return Document{}, &FieldError{Field: "line", Reason: fmt.Sprintf("line longer than %d characters", LineLength)}
	}
	fullLine2 := len(line2) == LineLength
	line1 = pad(line1)
	line2 = pad(line2)

	var doc Document
	doc.Type = trimFiller(line1[0:2])
	doc.IssuingCountry = trimFiller(line1[2:5])

	// Name field: primary and secondary identifiers separated by '<<'.
	name := strings.TrimRight(line1[5:44], "<")
	primary, secondary, _ := strings.Cut(name, "<<")
	doc.Surname = trimFiller(primary)
	doc.GivenNames = trimFiller(secondary)

	number := line2[0:9]
	if err := verify("document number", number, line2[9]); err != nil {
		return Document{}, err
	}
	doc.Number = trimFiller(number)

	doc.Nationality = trimFiller(line2[10:13])

	birth := line2[13:19]
	if err := verify("birth date", birth, line2[19]); err != nil {
		return Document{}, err
	}
	iso, err := normalizeBirthDate(birth)
	if err != nil {
		return Document{}, &FieldError{Field: "birth date", Reason: err.Error()}
	}
	doc.BirthDate = iso

	doc.Sex = normalizeSex(line2[20])

	expiry := line2[21:27]
	if err := verify("expiry date", expiry, line2[27]); err != nil {
		return Document{}, err
	}
	iso, err = normalizeExpiryDate(expiry)
	if err != nil {
		return Document{}, &FieldError{Field: "expiry date", Reason: err.Error()}
	}
	doc.ExpiryDate = iso

	if fullLine2 {
		if err := verify("personal number", line2[28:42], line2[42]); err != nil {
			return Document{}, err
		}
		// The composite digit spans the document number, dates and
		// personal number together with their own check digits.
		composite := line2[0:10] + line2[13:20] + line2[21:43]
		if err := verify("composite", composite, line2[43]); err != nil {
			return Document{}, err
		}
	}
	doc.PersonalNumber = trimFiller(line2[28:42])

	return doc, nil
}
