package certgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/alnah/go-certgen/internal/storage"
)

// DocumentType selects the kind of document to generate.
type DocumentType string

// Document types.
const (
	DocumentCertificate DocumentType = "certificate"
	DocumentOfferLetter DocumentType = "offer-letter"
)

// ParseDocumentType maps a request type to a DocumentType.
// Empty or unknown values select DocumentCertificate.
func ParseDocumentType(s string) DocumentType {
	if DocumentType(strings.ToLower(strings.TrimSpace(s))) == DocumentOfferLetter {
		return DocumentOfferLetter
	}
	return DocumentCertificate
}

// String returns the wire name of the type.
func (d DocumentType) String() string {
	return string(d)
}

// FlexString is a string that also accepts JSON numbers and null.
// Callers send fields such as year or pincode either way.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the trimmed value.
func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

// StudentData identifies the recipient.
type StudentData struct {
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	RegisterNumber  FlexString `json:"registerNumber"`
	Department      FlexString `json:"department"`
	Year            FlexString `json:"year"`
	InstitutionName FlexString `json:"institutionName"`
	City            FlexString `json:"city"`
	State           FlexString `json:"state"`
	Pincode         FlexString `json:"pincode"`
}

// CourseData describes the course or engagement.
type CourseData struct {
	Title     string     `json:"title"`
	StartDate FlexString `json:"startDate"`
	EndDate   FlexString `json:"endDate"`
}

// Request is the body of a generation request.
type Request struct {
	StudentData   *StudentData `json:"studentData"`
	CourseData    CourseData   `json:"courseData"`
	CertificateID string       `json:"certificateId"`
	CallbackURL   string       `json:"callbackUrl"`
	Type          string       `json:"type,omitempty"`
	TemplateURL   string       `json:"templateUrl,omitempty"`
	TemplateID    string       `json:"templateId,omitempty"`
	QRCode        string       `json:"qrCode,omitempty"`
}

// DocumentType returns the parsed document type.
func (r *Request) DocumentType() DocumentType {
	return ParseDocumentType(r.Type)
}

// Validate checks required fields before a request is accepted.
// A nil error means the request can be processed asynchronously.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request body", ErrMissingField)
	}

	var missing []string
	if r.StudentData == nil {
		missing = append(missing, "studentData")
	} else {
		if strings.TrimSpace(r.StudentData.Name) == "" {
			missing = append(missing, "studentData.name")
		}
		if strings.TrimSpace(r.StudentData.Email) == "" {
			missing = append(missing, "studentData.email")
		}
	}
	if strings.TrimSpace(r.CertificateID) == "" {
		missing = append(missing, "certificateId")
	}
	if strings.TrimSpace(r.CallbackURL) == "" {
		missing = append(missing, "callbackUrl")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	if err := storage.ValidateID(r.CertificateID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCertificateID, err)
	}

	u, err := url.Parse(r.CallbackURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidCallbackURL, r.CallbackURL)
	}

	return nil
}
