package records

// Appointment references a patient and a doctor by id. Neither reference is
// checked when the appointment is stored.
type Appointment struct {
	ID        int    `json:"id"`
	PatientID int    `json:"patient_id"`
	DoctorID  int    `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

func (a Appointment) Identity() int { return a.ID }

func (a Appointment) ToRecord() Record {
	return Record{
		"id":         a.ID,
		"patient_id": a.PatientID,
		"doctor_id":  a.DoctorID,
		"date":       a.Date,
		"time":       a.Time,
	}
}

func AppointmentFromRecord(r Record) (Appointment, error) {
	var (
		a   Appointment
		err error
	)
	if a.ID, err = r.ID("id"); err != nil {
		return Appointment{}, withEntity("appointment", err)
	}
	if a.PatientID, err = r.ID("patient_id"); err != nil {
		return Appointment{}, withEntity("appointment", err)
	}
	if a.DoctorID, err = r.ID("doctor_id"); err != nil {
		return Appointment{}, withEntity("appointment", err)
	}
	if a.Date, err = r.String("date"); err != nil {
		return Appointment{}, withEntity("appointment", err)
	}
	if a.Time, err = r.String("time"); err != nil {
		return Appointment{}, withEntity("appointment", err)
	}
	return a, nil
}

func (a Appointment) Validate() error {
	if a.PatientID <= 0 {
		return &ValidationError{Field: "patient_id", Reason: "must be a positive id"}
	}
	if a.DoctorID <= 0 {
		return &ValidationError{Field: "doctor_id", Reason: "must be a positive id"}
	}
	return ValidateDate("date", a.Date)
}
