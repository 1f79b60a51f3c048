package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mesikahq/hospital-records/internal/audit"
	"github.com/mesikahq/hospital-records/internal/auth"
	"github.com/mesikahq/hospital-records/internal/records"
	"github.com/mesikahq/hospital-records/internal/store"
)

// DefaultAdmin is seeded when no doctor exists yet.
var DefaultAdmin = records.Doctor{
	ID:             1001,
	Name:           "Dr. Admin",
	Specialization: "Administrator",
	Password:       "admin123",
}

type NewDoctor struct {
	Name           string
	Specialization string
	Password       string
}

type Service interface {
	Create(ctx context.Context, in NewDoctor) (records.Doctor, error)
	Get(ctx context.Context, id int) (records.Doctor, error)
	List(ctx context.Context) []records.Doctor
	EnsureDefault(ctx context.Context, seed records.Doctor) (bool, error)
}

type service struct {
	store     *store.Store
	audit     audit.Service
	passwords auth.Passwords
	logger    *zap.Logger
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
	}
}

func (s *service) Create(ctx context.Context, in NewDoctor) (records.Doctor, error) {
	d := records.Doctor{
		ID:             s.store.Doctors.NextID(),
		Name:           strings.TrimSpace(in.Name),
		Specialization: strings.TrimSpace(in.Specialization),
		Password:       in.Password,
	}
	if err := d.Validate(); err != nil {
		return records.Doctor{}, err
	}
	if err := s.add(ctx, d); err != nil {
		return records.Doctor{}, err
	}
	return s.store.Doctors.Get(d.ID)
}

func (s *service) Get(ctx context.Context, id int) (records.Doctor, error) {
	return s.store.Doctors.Get(id)
}

func (s *service) List(ctx context.Context) []records.Doctor {
	return s.store.Doctors.Items()
}

// EnsureDefault adds seed when the doctors collection is empty and reports
// whether it did.
func (s *service) EnsureDefault(ctx context.Context, seed records.Doctor) (bool, error) {
	if s.store.Doctors.Len() > 0 {
		return false, nil
	}
	if seed.ID <= 0 {
		seed.ID = DefaultAdmin.ID
	}
	if err := seed.Validate(); err != nil {
		return false, fmt.Errorf("invalid default doctor: %w", err)
	}
	if err := s.add(ctx, seed); err != nil {
		return false, err
	}
	s.logger.Info("Seeded default doctor", zap.Int("id", seed.ID), zap.String("name", seed.Name))
	return true, nil
}

func (s *service) add(ctx context.Context, d records.Doctor) error {
	sealed, err := s.passwords.Seal(d.Password)
	if err != nil {
		return err
	}
	d.Password = sealed

	if err := s.store.Doctors.Add(d); err != nil {
		return err
	}
	if err := s.store.Flush(); err != nil {
		return err
	}

	details, err := json.Marshal(map[string]interface{}{
		"name":           d.Name,
		"specialization": d.Specialization,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit event details: %v", err)
	}
	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventModify,
		Action:     "CREATE",
		Resource:   "doctor",
		ResourceID: strconv.Itoa(d.ID),
		Status:     "success",
		Details:    json.RawMessage(details),
		Message:    fmt.Sprintf("New doctor %d added", d.ID),
	})
	return nil
}

func (s *service) logEvent(ctx context.Context, event *audit.AuditEvent) {
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to log audit event", zap.String("action", event.Action), zap.Error(err))
	}
}
