package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	files := cfg.Files()
	assert.Equal(t, "patients.json", files.Patients)
	assert.Equal(t, 4, files.Indent)
	assert.Equal(t, 1001, cfg.DefaultDoctor().ID)
}

func TestWriteDefaultThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "config.yaml")
	require.NoError(t, WriteDefault(path, false))
	assert.Error(t, WriteDefault(path, false), "existing file is kept")
	require.NoError(t, WriteDefault(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data:
  dir: /var/lib/hms
  indent: 2
security:
  hash_passwords: true
`), 0o644))
	t.Setenv("HMS_AUDIT_FILE", "/var/log/hms/audit.log")
	t.Setenv("HMS_DATA_PATIENTS_FILE", "people.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Security.HashPasswords)
	assert.Equal(t, "/var/log/hms/audit.log", cfg.AuditFile())

	files := cfg.Files()
	assert.Equal(t, "/var/lib/hms/people.json", files.Patients)
	assert.Equal(t, "/var/lib/hms/doctors.json", files.Doctors)
	assert.Equal(t, 2, files.Indent)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data:\n  indent: -1\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
