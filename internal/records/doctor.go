package records

import "strings"

type Doctor struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Password       string `json:"-"`
}

func (d Doctor) Identity() int { return d.ID }

func (d Doctor) ToRecord() Record {
	return Record{
		"id":             d.ID,
		"name":           d.Name,
		"specialization": d.Specialization,
		"password":       d.Password,
	}
}

func DoctorFromRecord(r Record) (Doctor, error) {
	var (
		d   Doctor
		err error
	)
	if d.ID, err = r.ID("id"); err != nil {
		return Doctor{}, withEntity("doctor", err)
	}
	if d.Name, err = r.String("name"); err != nil {
		return Doctor{}, withEntity("doctor", err)
	}
	if d.Specialization, err = r.String("specialization"); err != nil {
		return Doctor{}, withEntity("doctor", err)
	}
	if d.Password, err = r.String("password"); err != nil {
		return Doctor{}, withEntity("doctor", err)
	}
	return d, nil
}

func (d Doctor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if d.Password == "" {
		return &ValidationError{Field: "password", Reason: "is required"}
	}
	return nil
}
