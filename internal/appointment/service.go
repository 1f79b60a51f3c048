package appointment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mesikahq/hospital-records/internal/audit"
	"github.com/mesikahq/hospital-records/internal/records"
	"github.com/mesikahq/hospital-records/internal/store"
)

// NewAppointment holds the fields entered when scheduling. An empty Date
// means today.
type NewAppointment struct {
	PatientID int
	DoctorID  int
	Date      string
	Time      string
}

// View is an appointment with the names of the people it references. A
// reference that no longer resolves is shown as "ID <n>".
type View struct {
	records.Appointment
	PatientName string
	DoctorName  string
}

type Service interface {
	Schedule(ctx context.Context, in NewAppointment) (records.Appointment, error)
	ListForPatient(ctx context.Context, patientID int) []View
	ListForDoctor(ctx context.Context, doctorID int) []View
}

type service struct {
	store  *store.Store
	audit  audit.Service
	logger *zap.Logger
	now    func() time.Time
}

func NewService(s *store.Store, audit audit.Service, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		store:  s,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// Schedule stores a new appointment. The patient and doctor ids are not
// checked against their collections.
func (s *service) Schedule(ctx context.Context, in NewAppointment) (records.Appointment, error) {
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = s.now().Format(records.DateLayout)
	}

	a := records.Appointment{
		ID:        s.store.Appointments.NextID(),
		PatientID: in.PatientID,
		DoctorID:  in.DoctorID,
		Date:      date,
		Time:      strings.TrimSpace(in.Time),
	}
	if err := a.Validate(); err != nil {
		return records.Appointment{}, err
	}
	if err := s.store.Appointments.Add(a); err != nil {
		return records.Appointment{}, err
	}
	if err := s.store.Flush(); err != nil {
		return records.Appointment{}, err
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventModify,
		Action:     "SCHEDULE",
		Resource:   "appointment",
		ResourceID: strconv.Itoa(a.ID),
		Status:     "success",
		Message:    fmt.Sprintf("New appointment %d scheduled", a.ID),
	})
	return a, nil
}

func (s *service) ListForPatient(ctx context.Context, patientID int) []View {
	return s.views(func(a records.Appointment) bool { return a.PatientID == patientID })
}

func (s *service) ListForDoctor(ctx context.Context, doctorID int) []View {
	return s.views(func(a records.Appointment) bool { return a.DoctorID == doctorID })
}

func (s *service) views(match func(records.Appointment) bool) []View {
	var out []View
	for a := range s.store.Appointments.Search(match) {
		v := View{
			Appointment: a,
			PatientName: fallbackName(a.PatientID),
			DoctorName:  fallbackName(a.DoctorID),
		}
		if p, ok := s.store.Patients.FindByID(a.PatientID); ok {
			v.PatientName = p.Name
		}
		if d, ok := s.store.Doctors.FindByID(a.DoctorID); ok {
			v.DoctorName = d.Name
		}
		out = append(out, v)
	}
	return out
}

func fallbackName(id int) string {
	return fmt.Sprintf("ID %d", id)
}

func (s *service) logEvent(ctx context.Context, event *audit.AuditEvent) {
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to log audit event", zap.String("action", event.Action), zap.Error(err))
	}
}
