package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesikahq/hospital-records/internal/database"
	"github.com/mesikahq/hospital-records/internal/records"
	"github.com/mesikahq/hospital-records/internal/store"
)

const legacyPatients = `[
	{"id": 1, "name": "Ram", "age": 30, "ailment": "Flu", "password": "p", "bills": ["Consultation Fee 1500.0", "Checkup"]},
	{"id": 2, "name": "Sita", "age": 25, "ailment": "Cold", "password": "p", "bills": []}
]`

func setup(t *testing.T) store.Files {
	t.Helper()
	dir := t.TempDir()
	files := store.Files{
		Patients:     filepath.Join(dir, "patients.json"),
		Doctors:      filepath.Join(dir, "doctors.json"),
		Appointments: filepath.Join(dir, "appointments.json"),
		Indent:       4,
	}
	require.NoError(t, os.WriteFile(files.Patients, []byte(legacyPatients), 0o644))
	return files
}

func TestStatus(t *testing.T) {
	files := setup(t)
	m := NewManager(files, zap.NewNop())

	statuses, err := m.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	assert.Equal(t, Status{File: files.Patients, Kind: "patient", Records: 2, Legacy: 1}, statuses[0])
	assert.True(t, statuses[0].Pending())
	assert.False(t, statuses[1].Pending())
	assert.False(t, statuses[2].Pending())
}

func TestUpRewritesLegacyFile(t *testing.T) {
	files := setup(t)
	m := NewManager(files, zap.NewNop())

	done, err := m.Up(context.Background())
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, files.Patients, done[0].File)

	backup, err := os.ReadFile(files.Patients + ".bak")
	require.NoError(t, err)
	assert.Equal(t, legacyPatients, string(backup))

	elems, err := database.ReadArray(files.Patients)
	require.NoError(t, err)
	require.Len(t, elems, 2)
	first, ok := records.AsRecord(elems[0])
	require.True(t, ok)
	assert.False(t, records.HasLegacyBills(first))

	// A second run finds nothing to do.
	done, err = m.Up(context.Background())
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestUpHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewManager(setup(t), zap.NewNop()).Up(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
