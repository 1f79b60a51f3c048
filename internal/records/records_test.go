package records

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode mimics how the data files are read: numbers stay json.Number.
func decode(t *testing.T, raw string) Record {
	t.Helper()
	var rec Record
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&rec))
	return rec
}

func TestRoundTripIsStable(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		decode func(Record) (interface{}, error)
		encode func(interface{}) Record
	}{
		{
			name: "bill without status",
			raw:  `{"id": 4, "amount": 120.5, "description": "X-Ray", "date": "2025-03-01"}`,
			decode: func(r Record) (interface{}, error) { return BillFromRecord(r) },
			encode: func(v interface{}) Record { return v.(Bill).ToRecord() },
		},
		{
			name: "prescription with image",
			raw:  `{"id": 1, "medicine": "Paracetamol", "description": "twice daily", "date": "2025-03-02", "image_base64": "iVBORw0KGgo="}`,
			decode: func(r Record) (interface{}, error) { return PrescriptionFromRecord(r) },
			encode: func(v interface{}) Record { return v.(Prescription).ToRecord() },
		},
		{
			name: "patient with nested lists",
			raw: `{"id": 7, "name": "Ram Thapa", "age": 41, "ailment": "Fever", "password": "pw",
				"reports": ["xray.png"],
				"bills": [{"id": 1, "amount": 10, "description": "Fee", "date": "2025-01-02", "status": "Paid"}],
				"prescriptions": [{"id": 1, "medicine": "ORS", "description": "", "date": "2025-01-02"}]}`,
			decode: func(r Record) (interface{}, error) { return PatientFromRecord(r) },
			encode: func(v interface{}) Record { return v.(Patient).ToRecord() },
		},
		{
			name: "patient with only required fields",
			raw:  `{"id": 2, "name": "Sita", "age": 30, "ailment": "", "password": "x"}`,
			decode: func(r Record) (interface{}, error) { return PatientFromRecord(r) },
			encode: func(v interface{}) Record { return v.(Patient).ToRecord() },
		},
		{
			name: "doctor",
			raw:  `{"id": 1001, "name": "Dr. Admin", "specialization": "Administrator", "password": "admin123"}`,
			decode: func(r Record) (interface{}, error) { return DoctorFromRecord(r) },
			encode: func(v interface{}) Record { return v.(Doctor).ToRecord() },
		},
		{
			name: "appointment",
			raw:  `{"id": 3, "patient_id": 99, "doctor_id": 1001, "date": "2025-05-05", "time": "10:30"}`,
			decode: func(r Record) (interface{}, error) { return AppointmentFromRecord(r) },
			encode: func(v interface{}) Record { return v.(Appointment).ToRecord() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := tt.decode(decode(t, tt.raw))
			require.NoError(t, err)

			second, err := tt.decode(tt.encode(first))
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestFromRecordDefaults(t *testing.T) {
	b, err := BillFromRecord(decode(t, `{"id": 1, "amount": 0, "description": "d", "date": "2025-01-01"}`))
	require.NoError(t, err)
	assert.Equal(t, BillPending, b.Status)

	rx, err := PrescriptionFromRecord(decode(t, `{"id": 1, "medicine": "m", "description": "d", "date": "2025-01-01"}`))
	require.NoError(t, err)
	assert.False(t, rx.HasImage())

	p, err := PatientFromRecord(decode(t, `{"id": 1, "name": "n", "age": 3, "ailment": "a", "password": "p"}`))
	require.NoError(t, err)
	assert.Empty(t, p.Reports)
	assert.Empty(t, p.Bills)
	assert.Empty(t, p.Prescriptions)
}

func TestFromRecordRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"missing name", `{"id": 1, "age": 3, "ailment": "a", "password": "p"}`, "name"},
		{"age is text", `{"id": 1, "name": "n", "age": "old", "ailment": "a", "password": "p"}`, "age"},
		{"age is fractional", `{"id": 1, "name": "n", "age": 3.5, "ailment": "a", "password": "p"}`, "age"},
		{"age is boolean", `{"id": 1, "name": "n", "age": true, "ailment": "a", "password": "p"}`, "age"},
		{"name is a number", `{"id": 1, "name": 5, "age": 3, "ailment": "a", "password": "p"}`, "name"},
		{"bills is an object", `{"id": 1, "name": "n", "age": 3, "ailment": "a", "password": "p", "bills": {}}`, "bills"},
		{"id is zero", `{"id": 0, "name": "n", "age": 3, "ailment": "a", "password": "p"}`, "id"},
		{"id is negative", `{"id": -3, "name": "n", "age": 3, "ailment": "a", "password": "p"}`, "id"},
		{"age is negative", `{"id": 1, "name": "n", "age": -5, "ailment": "a", "password": "p"}`, "age"},
		{"bill entry not an object", `{"id": 1, "name": "n", "age": 3, "ailment": "a", "password": "p", "bills": [{"id": 1, "amount": 1, "description": "d", "date": "x"}, 3]}`, "bills[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PatientFromRecord(decode(t, tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord))

			var mre *MalformedRecordError
			require.True(t, errors.As(err, &mre))
			assert.Equal(t, tt.field, mre.Field)
			assert.Equal(t, "patient", mre.Entity)
		})
	}
}

func TestNestedMalformedBillNamesTheBill(t *testing.T) {
	_, err := PatientFromRecord(decode(t, `{"id": 1, "name": "n", "age": 3, "ailment": "a", "password": "p",
		"bills": [{"id": 1, "amount": "lots", "description": "d", "date": "2025-01-01"}]}`))

	var mre *MalformedRecordError
	require.True(t, errors.As(err, &mre))
	assert.Equal(t, "bill", mre.Entity)
	assert.Equal(t, "amount", mre.Field)
}

func TestDecodersRejectOutOfRangeNumbers(t *testing.T) {
	tests := []struct {
		name   string
		decode func() error
		entity string
		field  string
	}{
		{"negative bill amount", func() error {
			_, err := BillFromRecord(decode(t, `{"id": 1, "amount": -10, "description": "d", "date": "2025-01-01"}`))
			return err
		}, "bill", "amount"},
		{"bill id zero", func() error {
			_, err := BillFromRecord(decode(t, `{"id": 0, "amount": 1, "description": "d", "date": "2025-01-01"}`))
			return err
		}, "bill", "id"},
		{"prescription id negative", func() error {
			_, err := PrescriptionFromRecord(decode(t, `{"id": -1, "medicine": "m", "description": "d", "date": "2025-01-01"}`))
			return err
		}, "prescription", "id"},
		{"doctor id zero", func() error {
			_, err := DoctorFromRecord(decode(t, `{"id": 0, "name": "n", "specialization": "s", "password": "p"}`))
			return err
		}, "doctor", "id"},
		{"appointment patient id negative", func() error {
			_, err := AppointmentFromRecord(decode(t, `{"id": 1, "patient_id": -2, "doctor_id": 1001, "date": "2025-01-01", "time": "10:00"}`))
			return err
		}, "appointment", "patient_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mre *MalformedRecordError
			require.True(t, errors.As(tt.decode(), &mre))
			assert.Equal(t, tt.entity, mre.Entity)
			assert.Equal(t, tt.field, mre.Field)
		})
	}
}

func TestBillStatusParsing(t *testing.T) {
	_, err := BillFromRecord(decode(t, `{"id": 1, "amount": 1, "description": "d", "date": "2025-01-01", "status": "Refunded"}`))
	assert.ErrorIs(t, err, ErrMalformedRecord)

	b, err := BillFromRecord(decode(t, `{"id": 1, "amount": 1, "description": "d", "date": "2025-01-01", "status": "paid"}`))
	require.NoError(t, err)
	assert.Equal(t, BillPaid, b.Status)
}

func TestPrescriptionRejectsBadImage(t *testing.T) {
	_, err := PrescriptionFromRecord(decode(t, `{"id": 1, "medicine": "m", "description": "d", "date": "2025-01-01", "image_base64": "%%%"}`))
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestIntAcceptsStoredVariants(t *testing.T) {
	r := Record{"a": 4.0, "b": json.Number("5"), "c": " 6 ", "d": int64(7), "e": json.Number("8.0")}
	for field, want := range map[string]int{"a": 4, "b": 5, "c": 6, "d": 7, "e": 8} {
		got, err := r.Int(field)
		require.NoError(t, err, field)
		assert.Equal(t, want, got, field)
	}
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Patient{Name: "", Age: 1, Password: "p"}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, Patient{Name: "n", Age: -1, Password: "p"}.Validate(), ErrInvalidInput)
	assert.NoError(t, Patient{Name: "n", Age: 0, Password: "p"}.Validate())

	assert.ErrorIs(t, Bill{Amount: -1, Description: "d", Date: "2025-01-01", Status: BillPending}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, Bill{Amount: 1, Description: "d", Date: "01/01/2025", Status: BillPending}.Validate(), ErrInvalidInput)
	assert.NoError(t, Bill{Amount: 0, Description: "d", Date: "2025-01-01", Status: BillPending}.Validate())

	assert.ErrorIs(t, Prescription{Medicine: " ", Date: "2025-01-01"}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, Appointment{PatientID: 1, DoctorID: 1, Date: "tomorrow"}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, Doctor{Name: "d"}.Validate(), ErrInvalidInput)
}

func TestTotalDueCountsPendingOnly(t *testing.T) {
	p := Patient{Bills: []Bill{
		{ID: 1, Amount: 100, Status: BillPending},
		{ID: 2, Amount: 50, Status: BillPaid},
		{ID: 3, Amount: 25.5, Status: BillPending},
	}}
	assert.InDelta(t, 125.5, p.TotalDue(), 1e-9)
}

func TestCloneDoesNotShareLists(t *testing.T) {
	p := Patient{
		Bills:         []Bill{{ID: 1}},
		Prescriptions: []Prescription{{ID: 1, Image: []byte{1, 2}}},
	}
	c := p.Clone()
	c.Bills[0].Amount = 9
	c.Prescriptions[0].Image[0] = 7

	assert.Zero(t, p.Bills[0].Amount)
	assert.Equal(t, byte(1), p.Prescriptions[0].Image[0])
}
