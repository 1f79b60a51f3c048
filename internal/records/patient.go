package records

import (
	"fmt"
	"strings"
)

type Patient struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Age           int            `json:"age"`
	Ailment       string         `json:"ailment"`
	Password      string         `json:"-"`
	Reports       []string       `json:"reports"`
	Bills         []Bill         `json:"bills"`
	Prescriptions []Prescription `json:"prescriptions"`
}

func (p Patient) Identity() int { return p.ID }

func (p Patient) ToRecord() Record {
	bills := make([]Record, 0, len(p.Bills))
	for _, b := range p.Bills {
		bills = append(bills, b.ToRecord())
	}
	prescriptions := make([]Record, 0, len(p.Prescriptions))
	for _, rx := range p.Prescriptions {
		prescriptions = append(prescriptions, rx.ToRecord())
	}
	reports := make([]string, len(p.Reports))
	copy(reports, p.Reports)

	return Record{
		"id":            p.ID,
		"name":          p.Name,
		"age":           p.Age,
		"ailment":       p.Ailment,
		"password":      p.Password,
		"reports":       reports,
		"bills":         bills,
		"prescriptions": prescriptions,
	}
}

// PatientFromRecord decodes a stored patient. A bills list in the legacy
// text format is converted to structured bills on the way in.
func PatientFromRecord(r Record) (Patient, error) {
	var (
		p   Patient
		err error
	)
	if p.ID, err = r.ID("id"); err != nil {
		return Patient{}, withEntity("patient", err)
	}
	if p.Name, err = r.String("name"); err != nil {
		return Patient{}, withEntity("patient", err)
	}
	if p.Age, err = r.NonNegativeInt("age"); err != nil {
		return Patient{}, withEntity("patient", err)
	}
	if p.Ailment, err = r.String("ailment"); err != nil {
		return Patient{}, withEntity("patient", err)
	}
	if p.Password, err = r.String("password"); err != nil {
		return Patient{}, withEntity("patient", err)
	}
	if p.Reports, err = r.Strings("reports"); err != nil {
		return Patient{}, withEntity("patient", err)
	}

	rawBills, err := r.List("bills")
	if err != nil {
		return Patient{}, withEntity("patient", err)
	}
	if IsLegacyBillList(rawBills) {
		p.Bills = MigrateLegacyBills(rawBills)
	} else {
		p.Bills = make([]Bill, 0, len(rawBills))
		for i, raw := range rawBills {
			rec, ok := AsRecord(raw)
			if !ok {
				return Patient{}, &MalformedRecordError{Entity: "patient", Field: fmt.Sprintf("bills[%d]", i), Reason: "expected an object"}
			}
			bill, err := BillFromRecord(rec)
			if err != nil {
				return Patient{}, fmt.Errorf("patient %d bills[%d]: %w", p.ID, i, err)
			}
			p.Bills = append(p.Bills, bill)
		}
	}

	rawPrescriptions, err := r.List("prescriptions")
	if err != nil {
		return Patient{}, withEntity("patient", err)
	}
	p.Prescriptions = make([]Prescription, 0, len(rawPrescriptions))
	for i, raw := range rawPrescriptions {
		rec, ok := AsRecord(raw)
		if !ok {
			return Patient{}, &MalformedRecordError{Entity: "patient", Field: fmt.Sprintf("prescriptions[%d]", i), Reason: "expected an object"}
		}
		rx, err := PrescriptionFromRecord(rec)
		if err != nil {
			return Patient{}, fmt.Errorf("patient %d prescriptions[%d]: %w", p.ID, i, err)
		}
		p.Prescriptions = append(p.Prescriptions, rx)
	}

	return p, nil
}

// HasLegacyBills reports whether the stored record still needs the legacy
// bill conversion.
func HasLegacyBills(r Record) bool {
	raw, err := r.List("bills")
	return err == nil && IsLegacyBillList(raw)
}

// Validate checks the scalar fields a caller may set on a patient.
func (p Patient) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if p.Age < 0 {
		return &ValidationError{Field: "age", Reason: "must not be negative"}
	}
	if p.Password == "" {
		return &ValidationError{Field: "password", Reason: "is required"}
	}
	return nil
}

// TotalDue sums the amounts of all pending bills.
func (p Patient) TotalDue() float64 {
	var total float64
	for _, b := range p.Bills {
		if b.Status == BillPending {
			total += b.Amount
		}
	}
	return total
}

func (p Patient) Bill(id int) (Bill, bool) {
	for _, b := range p.Bills {
		if b.ID == id {
			return b, true
		}
	}
	return Bill{}, false
}

func (p Patient) Prescription(id int) (Prescription, bool) {
	for _, rx := range p.Prescriptions {
		if rx.ID == id {
			return rx, true
		}
	}
	return Prescription{}, false
}

// Clone returns a deep copy so callers never share nested lists with a
// stored patient.
func (p Patient) Clone() Patient {
	c := p
	c.Reports = append([]string{}, p.Reports...)
	c.Bills = append([]Bill{}, p.Bills...)
	c.Prescriptions = make([]Prescription, len(p.Prescriptions))
	for i, rx := range p.Prescriptions {
		if rx.Image != nil {
			rx.Image = append([]byte{}, rx.Image...)
		}
		c.Prescriptions[i] = rx
	}
	return c
}
