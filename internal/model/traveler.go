package model

// Gender is the closed enumeration used for traveler identity.  MRZ sex
// values that are not recognizably male or female map to
// GenderUnspecified; the extractor never guesses.
type Gender string

const (
	GenderMale        Gender = "MALE"
	GenderFemale      Gender = "FEMALE"
	GenderUnspecified Gender = "UNSPECIFIED"
)

// TravelDocument is the optional travel document attached to a traveler,
// either scanned from a passport data page or typed in manually.  Dates
// are ISO 8601 (YYYY-MM-DD) strings.
type TravelDocument struct {
	Type           string `json:"type"`            // document type code, e.g. "P" for passport
	Number         string `json:"number"`          // document number as printed
	ExpiryDate     string `json:"expiry_date"`     // ISO date of expiry
	IssuingCountry string `json:"issuing_country"` // ICAO three-letter issuing state
	Holder         bool   `json:"holder"`          // true when the traveler is the document holder
}

// TravelerInfo is one traveler's record collected during the travelers
// step.  Identity fields may be filled wholesale by a document scan or
// field-by-field by manual edits.  Contact fields are only meaningful on
// the primary traveler (index 0) and are never present in a travel
// document, so a scan must not clobber them.
type TravelerInfo struct {
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	DateOfBirth string          `json:"date_of_birth"` // ISO 8601 date
	Gender      Gender          `json:"gender"`
	Nationality string          `json:"nationality"` // ICAO three-letter code
	Email       string          `json:"email"`       // primary traveler only
	Phone       string          `json:"phone"`       // primary traveler only
	Document    *TravelDocument `json:"document,omitempty"`
}

// ScannedDocumentData is the structured output of one successful MRZ
// scan.  It is ephemeral: merged into a TravelerInfo and then discarded,
// never persisted or sent anywhere on its own.
type ScannedDocumentData struct {
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	DateOfBirth    string `json:"date_of_birth"` // ISO 8601 date
	ExpiryDate     string `json:"expiry_date"`   // ISO 8601 date
	Gender         Gender `json:"gender"`
	Nationality    string `json:"nationality"`
	IssuingCountry string `json:"issuing_country"`
	PersonalNumber string `json:"personal_number"`
}
