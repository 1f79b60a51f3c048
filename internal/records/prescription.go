package records

import (
	"encoding/base64"
	"strings"
)

// Prescription is owned by exactly one Patient. Image holds the raw bytes
// of an optional attachment; it is stored base64 encoded.
type Prescription struct {
	ID          int    `json:"id"`
	Medicine    string `json:"medicine"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Image       []byte `json:"image_base64,omitempty"`
}

func (p Prescription) Identity() int { return p.ID }

func (p Prescription) HasImage() bool { return len(p.Image) > 0 }

func (p Prescription) ToRecord() Record {
	return Record{
		"id":           p.ID,
		"medicine":     p.Medicine,
		"description":  p.Description,
		"date":         p.Date,
		"image_base64": base64.StdEncoding.EncodeToString(p.Image),
	}
}

func PrescriptionFromRecord(r Record) (Prescription, error) {
	var (
		p   Prescription
		err error
	)
	if p.ID, err = r.ID("id"); err != nil {
		return Prescription{}, withEntity("prescription", err)
	}
	if p.Medicine, err = r.String("medicine"); err != nil {
		return Prescription{}, withEntity("prescription", err)
	}
	if p.Description, err = r.String("description"); err != nil {
		return Prescription{}, withEntity("prescription", err)
	}
	if p.Date, err = r.String("date"); err != nil {
		return Prescription{}, withEntity("prescription", err)
	}

	encoded, err := r.OptionalString("image_base64")
	if err != nil {
		return Prescription{}, withEntity("prescription", err)
	}
	if encoded != "" {
		p.Image, err = base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return Prescription{}, &MalformedRecordError{Entity: "prescription", Field: "image_base64", Reason: "not valid base64"}
		}
	}
	return p, nil
}

func (p Prescription) Validate() error {
	if strings.TrimSpace(p.Medicine) == "" {
		return &ValidationError{Field: "medicine", Reason: "is required"}
	}
	return ValidateDate("date", p.Date)
}
