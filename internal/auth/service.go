package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mesikahq/hospital-records/internal/audit"
	"github.com/mesikahq/hospital-records/internal/records"
	"github.com/mesikahq/hospital-records/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrUnknownRole        = errors.New("unknown role")
)

type Role string

const (
	RolePatient Role = "Patient"
	RoleDoctor  Role = "Doctor"
)

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	switch {
	case strings.EqualFold(s, string(RolePatient)):
		return RolePatient, nil
	case strings.EqualFold(s, string(RoleDoctor)):
		return RoleDoctor, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownRole)
}

// Principal is the user a session acts for.
type Principal struct {
	Role Role
	ID   int
	Name string
}

// Actor is the form used in audit events.
func (p Principal) Actor() string {
	return fmt.Sprintf("%s:%d", p.Role, p.ID)
}

type Service interface {
	Login(ctx context.Context, role Role, id int, password string) (*Principal, error)
	Logout(ctx context.Context, p *Principal)
	ChangePatientPassword(ctx context.Context, doctor *Principal, doctorPassword string, patientID int, newPassword, confirm string) error
}

type service struct {
	store     *store.Store
	audit     audit.Service
	passwords Passwords
	logger    *zap.Logger
}

func NewService(s *store.Store, audit audit.Service, passwords Passwords, logger *zap.Logger) Service {
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

func (s *service) Login(ctx context.Context, role Role, id int, password string) (*Principal, error) {
	var (
		principal *Principal
		stored    string
	)

	switch role {
	case RolePatient:
		if p, ok := s.store.Patients.FindByID(id); ok {
			principal = &Principal{Role: role, ID: p.ID, Name: p.Name}
			stored = p.Password
		}
	case RoleDoctor:
		if d, ok := s.store.Doctors.FindByID(id); ok {
			principal = &Principal{Role: role, ID: d.ID, Name: d.Name}
			stored = d.Password
		}
	default:
		return nil, fmt.Errorf("%q: %w", role, ErrUnknownRole)
	}

	if principal == nil || !s.passwords.Verify(stored, password) {
		details, _ := json.Marshal(map[string]interface{}{
			"role":   role,
			"reason": "invalid_credentials",
		})
		s.logEvent(ctx, &audit.AuditEvent{
			EventType:   audit.EventLogin,
			UserID:      fmt.Sprintf("%s:%d", role, id),
			Action:      "LOGIN",
			Resource:    "user",
			ResourceID:  strconv.Itoa(id),
			Status:      "failure",
			Sensitivity: "HIGH",
			Details:     json.RawMessage(details),
			Message:     fmt.Sprintf("Failed login for %s %d", role, id),
		})
		return nil, ErrInvalidCredentials
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:   audit.EventLogin,
		UserID:      principal.Actor(),
		Action:      "LOGIN",
		Resource:    "user",
		ResourceID:  strconv.Itoa(id),
		Status:      "success",
		Sensitivity: "HIGH",
		Message:     fmt.Sprintf("User %d (%s) logged in.", id, role),
	})
	return principal, nil
}

func (s *service) Logout(ctx context.Context, p *Principal) {
	if p == nil {
		return
	}
	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventLogout,
		UserID:     p.Actor(),
		Action:     "LOGOUT",
		Resource:   "user",
		ResourceID: strconv.Itoa(p.ID),
		Status:     "success",
		Message:    fmt.Sprintf("User %d (%s) logged out.", p.ID, p.Role),
	})
}

// ChangePatientPassword lets a doctor replace a patient's password after
// confirming their own.
func (s *service) ChangePatientPassword(ctx context.Context, doctor *Principal, doctorPassword string, patientID int, newPassword, confirm string) error {
	if doctor == nil || doctor.Role != RoleDoctor {
		return ErrInvalidCredentials
	}
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	if newPassword == "" {
		return &records.ValidationError{Field: "password", Reason: "is required"}
	}

	d, ok := s.store.Doctors.FindByID(doctor.ID)
	if !ok || !s.passwords.Verify(d.Password, doctorPassword) {
		s.logEvent(ctx, &audit.AuditEvent{
			EventType:   audit.EventModify,
			UserID:      doctor.Actor(),
			Action:      "CHANGE_PASSWORD",
			Resource:    "patient",
			ResourceID:  strconv.Itoa(patientID),
			Status:      "failure",
			Sensitivity: "HIGH",
			Message:     "Change password error: incorrect doctor password",
		})
		return ErrInvalidCredentials
	}

	p, err := s.store.Patients.Get(patientID)
	if err != nil {
		return err
	}

	sealed, err := s.passwords.Seal(newPassword)
	if err != nil {
		return err
	}
	p.Password = sealed
	if err := s.store.Patients.Replace(p); err != nil {
		return err
	}
	if err := s.store.Flush(); err != nil {
		return err
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:   audit.EventModify,
		UserID:      doctor.Actor(),
		Action:      "CHANGE_PASSWORD",
		Resource:    "patient",
		ResourceID:  strconv.Itoa(patientID),
		Status:      "success",
		Sensitivity: "HIGH",
		Message:     fmt.Sprintf("Password changed for patient %d by doctor %d", patientID, doctor.ID),
	})
	return nil
}

func (s *service) logEvent(ctx context.Context, event *audit.AuditEvent) {
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to log audit event", zap.String("action", event.Action), zap.Error(err))
	}
}
