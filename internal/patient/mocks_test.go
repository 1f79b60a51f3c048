package patient

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mesikahq/hospital-records/internal/audit"
	"github.com/mesikahq/hospital-records/internal/auth"
	"github.com/mesikahq/hospital-records/internal/store"
)

type mockAudit struct {
	events  []audit.AuditEvent
	filters map[string]interface{}
	err     error
}

func (m *mockAudit) LogEvent(_ context.Context, event *audit.AuditEvent) error {
	m.events = append(m.events, *event)
	return m.err
}

func (m *mockAudit) QueryEvents(_ context.Context, filters map[string]interface{}, from, size int) ([]audit.AuditEvent, error) {
	m.filters = filters
	return m.events, nil
}

func (m *mockAudit) Close() error { return nil }

func (m *mockAudit) actions() []string {
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Action)
	}
	return out
}

var fixedNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*service, *store.Store, *mockAudit) {
	t.Helper()
	dir := t.TempDir()
	s := store.New(store.Files{
		Patients:     filepath.Join(dir, "patients.json"),
		Doctors:      filepath.Join(dir, "doctors.json"),
		Appointments: filepath.Join(dir, "appointments.json"),
		Indent:       4,
	}, zap.NewNop())

	m := &mockAudit{}
	svc := NewService(s, m, auth.Passwords{}, zap.NewNop()).(*service)
	svc.now = func() time.Time { return fixedNow }
	return svc, s, m
}
