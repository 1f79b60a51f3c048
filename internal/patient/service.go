package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/mesikahq/hospital-records/internal/attachment"
	"github.com/mesikahq/hospital-records/internal/audit"
	"github.com/mesikahq/hospital-records/internal/auth"
	"github.com/mesikahq/hospital-records/internal/records"
	"github.com/mesikahq/hospital-records/internal/store"
)

var (
	ErrEmptyQuery = errors.New("search query is empty")
	ErrNoImage    = errors.New("prescription has no image")
)

// NewPatient holds the fields a doctor enters for a new patient.
type NewPatient struct {
	Name     string
	Age      int
	Ailment  string
	Password string
}

// NewBill holds the fields entered for a new bill. An empty Date means
// today.
type NewBill struct {
	Amount      float64
	Description string
	Date        string
}

// NewPrescription holds the fields entered for a new prescription. Image is
// optional and must be a JPEG or PNG when set.
type NewPrescription struct {
	Medicine    string
	Description string
	Date        string
	Image       []byte
}

type Service interface {
	Create(ctx context.Context, in NewPatient) (records.Patient, error)
	Get(ctx context.Context, id int) (records.Patient, error)
	List(ctx context.Context) []records.Patient
	Search(ctx context.Context, query string) ([]records.Patient, error)
	Find(ctx context.Context, query string) (records.Patient, error)
	Delete(ctx context.Context, id int) error
	GetHistory(ctx context.Context, id int) ([]audit.AuditEvent, error)

	AddBill(ctx context.Context, patientID int, in NewBill) (records.Bill, error)
	MarkBillPaid(ctx context.Context, patientID, billID int) error
	DeleteBill(ctx context.Context, patientID, billID int) error
	TotalDue(ctx context.Context, patientID int) (float64, error)

	AddPrescription(ctx context.Context, patientID int, in NewPrescription) (records.Prescription, error)
	DeletePrescription(ctx context.Context, patientID, prescriptionID int) error
	PrescriptionImage(ctx context.Context, patientID, prescriptionID int) ([]byte, error)
}

type service struct {
	store     *store.Store
	audit     audit.Service
	passwords auth.Passwords
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(s *store.Store, audit audit.Service, passwords auth.Passwords, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		store:     s,
		audit:     audit,
		passwords: passwords,
		logger:    logger,
		now:       time.Now,
	}
}

// ParseAge converts user input into an age.
func ParseAge(s string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &records.ValidationError{Field: "age", Reason: "must be a whole number"}
	}
	return age, nil
}

// ParseAmount converts user input into a bill amount.
func ParseAmount(s string) (float64, error) {
	amount, err := cast.ToFloat64E(strings.TrimSpace(s))
	if err != nil {
		return 0, &records.ValidationError{Field: "amount", Reason: "must be a number"}
	}
	return amount, nil
}

func (s *service) Create(ctx context.Context, in NewPatient) (records.Patient, error) {
	p := records.Patient{
		ID:            s.store.Patients.NextID(),
		Name:          strings.TrimSpace(in.Name),
		Age:           in.Age,
		Ailment:       strings.TrimSpace(in.Ailment),
		Password:      in.Password,
		Reports:       []string{},
		Bills:         []records.Bill{},
		Prescriptions: []records.Prescription{},
	}
	if err := p.Validate(); err != nil {
		return records.Patient{}, err
	}

	sealed, err := s.passwords.Seal(p.Password)
	if err != nil {
		return records.Patient{}, err
	}
	p.Password = sealed

	if err := s.store.Patients.Add(p); err != nil {
		return records.Patient{}, err
	}
	if err := s.store.Flush(); err != nil {
		return records.Patient{}, err
	}

	details, _ := json.Marshal(map[string]interface{}{
		"name": p.Name,
		"age":  p.Age,
	})
	s.logEvent(ctx, &audit.AuditEvent{
		EventType:   audit.EventModify,
		Action:      "CREATE",
		Resource:    "patient",
		ResourceID:  strconv.Itoa(p.ID),
		Status:      "success",
		Sensitivity: "PHI",
		Details:     json.RawMessage(details),
		Message:     fmt.Sprintf("New patient %d added", p.ID),
	})

	return p.Clone(), nil
}

func (s *service) Get(ctx context.Context, id int) (records.Patient, error) {
	p, err := s.store.Patients.Get(id)
	if err != nil {
		return records.Patient{}, err
	}
	return p.Clone(), nil
}

func (s *service) List(ctx context.Context) []records.Patient {
	out := make([]records.Patient, 0, s.store.Patients.Len())
	for p := range s.store.Patients.All() {
		out = append(out, p.Clone())
	}
	return out
}

// Search returns every patient whose id or name contains query. An empty
// query returns all patients.
func (s *service) Search(ctx context.Context, query string) ([]records.Patient, error) {
	var out []records.Patient
	for p := range s.store.SearchPatients(query) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, p.Clone())
	}
	return out, nil
}

// Find returns the first patient matching query.
func (s *service) Find(ctx context.Context, query string) (records.Patient, error) {
	if strings.TrimSpace(query) == "" {
		return records.Patient{}, ErrEmptyQuery
	}
	return s.store.FirstPatient(query)
}

func (s *service) Delete(ctx context.Context, id int) error {
	if !s.store.Patients.Delete(id) {
		return &store.NotFoundError{Kind: "patient", ID: id}
	}
	if err := s.store.Flush(); err != nil {
		return err
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:   audit.EventDelete,
		Action:      "DELETE",
		Resource:    "patient",
		ResourceID:  strconv.Itoa(id),
		Status:      "success",
		Sensitivity: "PHI",
		Message:     fmt.Sprintf("Patient %d deleted", id),
	})
	return nil
}

func (s *service) GetHistory(ctx context.Context, id int) ([]audit.AuditEvent, error) {
	if _, err := s.store.Patients.Get(id); err != nil {
		return nil, err
	}

	filters := map[string]interface{}{
		"resource":    "patient",
		"resource_id": strconv.Itoa(id),
	}
	return s.audit.QueryEvents(ctx, filters, 0, 100)
}

func (s *service) AddBill(ctx context.Context, patientID int, in NewBill) (records.Bill, error) {
	bill := records.Bill{
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Date:        s.dateOrToday(in.Date),
		Status:      records.BillPending,
	}
	if err := bill.Validate(); err != nil {
		return records.Bill{}, err
	}

	p, err := s.store.MutateBills(patientID, store.AppendNew(func(id int) records.Bill {
		bill.ID = id
		return bill
	}))
	if err != nil {
		return records.Bill{}, err
	}
	if err := s.store.Flush(); err != nil {
		return records.Bill{}, err
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventModify,
		Action:     "ADD_BILL",
		Resource:   "patient",
		ResourceID: strconv.Itoa(p.ID),
		Status:     "success",
		Message:    fmt.Sprintf("New bill %d added for patient %d", bill.ID, p.ID),
	})
	return bill, nil
}

func (s *service) MarkBillPaid(ctx context.Context, patientID, billID int) error {
	if _, err := s.store.MutateBills(patientID, store.MarkBillStatus(billID, records.BillPaid)); err != nil {
		return err
	}
	if err := s.store.Flush(); err != nil {
		return err
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventModify,
		Action:     "MARK_BILL_PAID",
		Resource:   "patient",
		ResourceID: strconv.Itoa(patientID),
		Status:     "success",
		Message:    fmt.Sprintf("Bill %d marked paid for patient %d", billID, patientID),
	})
	return nil
}

// DeleteBill removes a bill. Deleting a bill that does not exist succeeds
// without writing anything.
func (s *service) DeleteBill(ctx context.Context, patientID, billID int) error {
	before, err := s.store.Patients.Get(patientID)
	if err != nil {
		return err
	}
	if _, ok := before.Bill(billID); !ok {
		return nil
	}

	if _, err := s.store.MutateBills(patientID, store.RemoveByID[records.Bill](billID)); err != nil {
		return err
	}
	if err := s.store.Flush(); err != nil {
		return err
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventDelete,
		Action:     "DELETE_BILL",
		Resource:   "patient",
		ResourceID: strconv.Itoa(patientID),
		Status:     "success",
		Message:    fmt.Sprintf("Bill %d deleted for patient %d", billID, patientID),
	})
	return nil
}

func (s *service) TotalDue(ctx context.Context, patientID int) (float64, error) {
	p, err := s.store.Patients.Get(patientID)
	if err != nil {
		return 0, err
	}
	return p.TotalDue(), nil
}

func (s *service) AddPrescription(ctx context.Context, patientID int, in NewPrescription) (records.Prescription, error) {
	rx := records.Prescription{
		Medicine:    strings.TrimSpace(in.Medicine),
		Description: strings.TrimSpace(in.Description),
		Date:        s.dateOrToday(in.Date),
	}
	if err := rx.Validate(); err != nil {
		return records.Prescription{}, err
	}
	if len(in.Image) > 0 {
		if _, err := attachment.Detect(in.Image); err != nil {
			return records.Prescription{}, &records.ValidationError{Field: "image", Reason: err.Error()}
		}
		rx.Image = slices.Clone(in.Image)
	}

	p, err := s.store.MutatePrescriptions(patientID, store.AppendNew(func(id int) records.Prescription {
		rx.ID = id
		return rx
	}))
	if err != nil {
		return records.Prescription{}, err
	}
	if err := s.store.Flush(); err != nil {
		return records.Prescription{}, err
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:   audit.EventModify,
		Action:      "ADD_PRESCRIPTION",
		Resource:    "patient",
		ResourceID:  strconv.Itoa(p.ID),
		Status:      "success",
		Sensitivity: "PHI",
		Message:     fmt.Sprintf("New prescription %d added for patient %d", rx.ID, p.ID),
	})
	return rx, nil
}

// DeletePrescription removes a prescription. An unknown id is a no-op.
func (s *service) DeletePrescription(ctx context.Context, patientID, prescriptionID int) error {
	before, err := s.store.Patients.Get(patientID)
	if err != nil {
		return err
	}
	if _, ok := before.Prescription(prescriptionID); !ok {
		return nil
	}

	if _, err := s.store.MutatePrescriptions(patientID, store.RemoveByID[records.Prescription](prescriptionID)); err != nil {
		return err
	}
	if err := s.store.Flush(); err != nil {
		return err
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventDelete,
		Action:     "DELETE_PRESCRIPTION",
		Resource:   "patient",
		ResourceID: strconv.Itoa(patientID),
		Status:     "success",
		Message:    fmt.Sprintf("Prescription %d deleted for patient %d", prescriptionID, patientID),
	})
	return nil
}

func (s *service) PrescriptionImage(ctx context.Context, patientID, prescriptionID int) ([]byte, error) {
	p, err := s.store.Patients.Get(patientID)
	if err != nil {
		return nil, err
	}
	rx, ok := p.Prescription(prescriptionID)
	if !ok {
		return nil, &store.NotFoundError{Kind: "prescription", ID: prescriptionID}
	}
	if !rx.HasImage() {
		return nil, ErrNoImage
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:   audit.EventAccess,
		Action:      "VIEW_PRESCRIPTION_IMAGE",
		Resource:    "patient",
		ResourceID:  strconv.Itoa(patientID),
		Status:      "success",
		Sensitivity: "PHI",
	})
	return slices.Clone(rx.Image), nil
}

func (s *service) dateOrToday(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return s.now().Format(records.DateLayout)
	}
	return date
}

func (s *service) logEvent(ctx context.Context, event *audit.AuditEvent) {
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to log audit event", zap.String("action", event.Action), zap.Error(err))
	}
}
