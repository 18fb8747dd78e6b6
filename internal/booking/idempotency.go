package booking

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/tripdesk/booking/internal/model"
)

// IdempotencyKey derives a stable key for one logical booking
// submission: the offer id plus the ordered traveler identities.  A
// retry of the same submission produces the same key, so the backend
// collapses it onto the existing pending booking instead of creating a
// duplicate.  Contact fields are excluded: fixing a typo in an email
// address must not mint a second booking.
func IdempotencyKey(offerID string, travelers []model.TravelerInfo) string {
	var b strings.Builder
	b.WriteString(offerID)
	for _, t := range travelers {
		b.WriteByte('|')
		b.WriteString(strings.ToUpper(strings.TrimSpace(t.FirstName)))
		b.WriteByte(';')
		b.WriteString(strings.ToUpper(strings.TrimSpace(t.LastName)))
		b.WriteByte(';')
		b.WriteString(t.DateOfBirth)
		if t.Document != nil {
			b.WriteByte(';')
			b.WriteString(t.Document.Number)
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
