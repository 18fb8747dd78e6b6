// Package scan turns a photo of a travel document's data page into
// structured identity data.  The pipeline is OCR, candidate-line
// filtering, MRZ decoding and completeness checking; each stage fails
// with its own kind so the UI can tell "no MRZ found" apart from "MRZ
// found but unreadable".
package scan

import "fmt"

// FailureKind classifies where in the pipeline a scan failed.
type FailureKind string

const (
	// DetectionFailure: OCR produced no usable MRZ candidate lines.
	DetectionFailure FailureKind = "DETECTION"
	// ParseFailure: an MRZ block was found but decoding hit a
	// structural error such as a bad check digit.
	ParseFailure FailureKind = "PARSE"
	// IncompleteDataFailure: the MRZ decoded but is missing fields a
	// traveler record cannot do without.
	IncompleteDataFailure FailureKind = "INCOMPLETE"
)

// Failure is a typed scan failure.  Hint is a user-displayable
// remediation suggestion; every scan failure is recoverable by retaking
// the photo or entering the data manually, and never escalates past the
// travelers step.
type Failure struct {
	Kind FailureKind // which stage failed
	Hint string      // what the user can do about it
	Err  error       // underlying cause, may be nil
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("scan: %s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("scan: %s", f.Kind)
}

func (f *Failure) Unwrap() error { return f.Err }

const (
	hintRetake = "We couldn't find the machine-readable zone. Retake the photo with the whole data page visible and well lit, or enter the details manually."
	hintBlurry = "The machine-readable zone couldn't be read cleanly. Hold the camera steady, avoid glare, and try again — or enter the details manually."
	hintManual = "The scan is missing required details. Please enter the document information manually."
)
