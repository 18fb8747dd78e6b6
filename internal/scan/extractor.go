package scan

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tripdesk/booking/internal/model"
	"github.com/tripdesk/booking/internal/mrz"
	"github.com/tripdesk/booking/internal/ocr"
)

// Extractor runs the full scan pipeline against a single OCR engine
// (normally an ocr.Pool, so recognitions never overlap on one engine
// instance).  It holds no per-scan state; one Extractor serves all
// requests.
type Extractor struct {
	engine ocr.Engine
	log    zerolog.Logger
}

// NewExtractor constructs an Extractor.  The engine must be non-nil.
func NewExtractor(engine ocr.Engine, log zerolog.Logger) *Extractor {
	if engine == nil {
		panic("nil engine passed to NewExtractor")
	}
	return &Extractor{engine: engine, log: log.With().Str("component", "scan").Logger()}
}

// Extract OCRs the image, isolates the MRZ block and decodes it into
// ScannedDocumentData.  On failure it returns a *Failure whose kind
// identifies the stage that failed.  The engine is only held for the
// duration of the recognition call; decode and normalization run on
// plain strings afterwards.
func (x *Extractor) Extract(ctx context.Context, image []byte) (model.ScannedDocumentData, error) {
	raw, err := x.engine.RecognizeText(ctx, image, ocr.MRZWhitelist)
	if err != nil {
		x.log.Warn().Err(err).Msg("OCR recognition failed")
		return model.ScannedDocumentData{}, &Failure{Kind: DetectionFailure, Hint: hintRetake, Err: err}
	}

	lines := candidateLines(raw)
	if len(lines) < 2 {
		x.log.Debug().Int("candidates", len(lines)).Msg("MRZ zone not found")
		return model.ScannedDocumentData{}, &Failure{Kind: DetectionFailure, Hint: hintRetake}
	}

	// The MRZ sits at the bottom of the data page, so the trailing
	// candidates are the machine-readable block.  Passports use two
	// lines; TD1 identity cards would need the trailing three.
	doc, err := mrz.Decode(lines[len(lines)-2], lines[len(lines)-1])
	if err != nil {
		x.log.Debug().Err(err).Msg("MRZ decode failed")
		return model.ScannedDocumentData{}, &Failure{Kind: ParseFailure, Hint: hintBlurry, Err: err}
	}

	data := model.ScannedDocumentData{
		DocumentType:   doc.Type,
		DocumentNumber: doc.Number,
		FirstName:      doc.GivenNames,
		LastName:       doc.Surname,
		DateOfBirth:    doc.BirthDate,
		ExpiryDate:     doc.ExpiryDate,
		Gender:         doc.Sex,
		Nationality:    doc.Nationality,
		IssuingCountry: doc.IssuingCountry,
		PersonalNumber: doc.PersonalNumber,
	}

	if data.DocumentNumber == "" || data.LastName == "" {
		return model.ScannedDocumentData{}, &Failure{Kind: IncompleteDataFailure, Hint: hintManual}
	}

	x.log.Info().Str("issuing_country", data.IssuingCountry).Msg("document scanned")
	return data, nil
}

// candidateLines filters raw OCR output down to plausible MRZ lines:
// whitespace inside a line is stripped (OCR tends to insert spaces into
// the dense OCR-B text), blank lines are dropped, and a surviving line
// must contain the MRZ filler character and meet the minimum length.
// Printed headers and other page text rarely survive both conditions.
func candidateLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Join(strings.Fields(line), "")
		if line == "" {
			continue
		}
		if !strings.Contains(line, "<") || len(line) < mrz.MinCandidateLength {
			continue
		}
		out = append(out, line)
	}
	return out
}
