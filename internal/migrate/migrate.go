package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesikahq/hospital-records/internal/database"
	"github.com/mesikahq/hospital-records/internal/records"
	"github.com/mesikahq/hospital-records/internal/store"
)

// Status describes what an upgrade would change in one data file
type Status struct {
	File      string
	Kind      string
	Records   int
	Legacy    int
	Malformed int
}

// Pending reports whether rewriting the file would change it
func (s Status) Pending() bool {
	return s.Legacy > 0 || s.Malformed > 0
}

// Manager rewrites data files into the current record layout
type Manager struct {
	files  store.Files
	logger *zap.Logger
}

// NewManager creates a new migration manager
func NewManager(files store.Files, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		files:  files,
		logger: logger,
	}
}

// Status inspects the three data files without writing anything
func (m *Manager) Status(ctx context.Context) ([]Status, error) {
	var out []Status

	patients, err := inspect(ctx, m.files.Patients, store.PatientCodec)
	if err != nil {
		return nil, err
	}
	out = append(out, patients)

	doctors, err := inspect(ctx, m.files.Doctors, store.DoctorCodec)
	if err != nil {
		return nil, err
	}
	out = append(out, doctors)

	appointments, err := inspect(ctx, m.files.Appointments, store.AppointmentCodec)
	if err != nil {
		return nil, err
	}
	out = append(out, appointments)

	return out, nil
}

func inspect[T records.Identified](ctx context.Context, path string, codec store.Codec[T]) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	loaded, err := store.Load(path, codec)
	if err != nil {
		return Status{}, fmt.Errorf("failed to inspect %s: %w", path, err)
	}
	return Status{
		File:      path,
		Kind:      codec.Kind,
		Records:   loaded.Collection.Len(),
		Legacy:    loaded.Migrated,
		Malformed: len(loaded.Skipped),
	}, nil
}

// Up rewrites every file that still holds legacy bills or unreadable
// records. Each such file is copied to <file>.bak first. It returns the
// statuses of the files that were rewritten.
func (m *Manager) Up(ctx context.Context) ([]Status, error) {
	statuses, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}

	var pending []Status
	for _, st := range statuses {
		if st.Pending() {
			pending = append(pending, st)
		}
	}
	if len(pending) == 0 {
		m.logger.Info("Data files are up to date")
		return nil, nil
	}

	for _, st := range pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		backup, err := database.Backup(st.File)
		if err != nil {
			return nil, fmt.Errorf("failed to back up %s: %w", st.File, err)
		}
		m.logger.Info("Backed up data file", zap.String("file", st.File), zap.String("backup", backup))
	}

	s, err := store.Open(m.files, m.logger)
	if err != nil {
		return nil, err
	}
	if err := s.Flush(); err != nil {
		return nil, fmt.Errorf("failed to rewrite data files: %w", err)
	}

	for _, st := range pending {
		m.logger.Info("Migrated data file",
			zap.String("file", st.File),
			zap.String("kind", st.Kind),
			zap.Int("legacy", st.Legacy),
			zap.Int("dropped", st.Malformed),
		)
	}
	return pending, nil
}
