// Package ocr abstracts the optical character recognition engine used by
// the document scanner.  The scanner only ever needs one operation:
// recognize text in an image, constrained to a character whitelist.
// Engines may be expensive to run, so engine instances are pooled and
// never shared between concurrent recognitions.
package ocr

import "context"

// MRZWhitelist is the character set used for travel-document scans.
// Restricting the engine to the MRZ alphabet sharply reduces misreads
// of the dense OCR-B text.
const MRZWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789<"

// Engine performs a single text recognition pass over an image.
// Implementations must be safe to call sequentially but are not
// required to support concurrent calls; the Pool enforces exclusivity.
type Engine interface {
	// RecognizeText runs OCR over the raw image bytes, restricted to
	// the given character whitelist, and returns the raw recognized
	// text with line breaks preserved.
	RecognizeText(ctx context.Context, image []byte, whitelist string) (string, error)
}
