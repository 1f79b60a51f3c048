package store

import (
	"iter"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mesikahq/hospital-records/internal/database"
	"github.com/mesikahq/hospital-records/internal/records"
)

// Files names the three collection files.
type Files struct {
	Patients     string
	Doctors      string
	Appointments string
	Indent       int
}

// Store owns the three collections for the lifetime of a session. Every
// mutation is followed by Flush, which rewrites all three files.
type Store struct {
	Patients     *Collection[records.Patient]
	Doctors      *Collection[records.Doctor]
	Appointments *Collection[records.Appointment]

	files  Files
	logger *zap.Logger

	// files that held records we could not decode; they are backed up once
	// before the first rewrite drops those records.
	needsBackup map[string]bool
}

// New returns an empty store bound to files.
func New(files Files, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		Patients:     NewCollection[records.Patient](PatientCodec.Kind),
		Doctors:      NewCollection[records.Doctor](DoctorCodec.Kind),
		Appointments: NewCollection[records.Appointment](AppointmentCodec.Kind),
		files:        files,
		logger:       logger,
		needsBackup:  make(map[string]bool),
	}
}

func (s *Store) Files() Files { return s.files }

// Open loads all three files. Missing files are empty collections.
func Open(files Files, logger *zap.Logger) (*Store, error) {
	s := New(files, logger)

	patients, err := Load(files.Patients, PatientCodec)
	if err != nil {
		return nil, err
	}
	s.Patients = patients.Collection
	s.report(files.Patients, PatientCodec.Kind, patients.Collection.Len(), patients.Skipped, patients.Migrated)

	doctors, err := Load(files.Doctors, DoctorCodec)
	if err != nil {
		return nil, err
	}
	s.Doctors = doctors.Collection
	s.report(files.Doctors, DoctorCodec.Kind, doctors.Collection.Len(), doctors.Skipped, doctors.Migrated)

	appointments, err := Load(files.Appointments, AppointmentCodec)
	if err != nil {
		return nil, err
	}
	s.Appointments = appointments.Collection
	s.report(files.Appointments, AppointmentCodec.Kind, appointments.Collection.Len(), appointments.Skipped, appointments.Migrated)

	return s, nil
}

func (s *Store) report(path, kind string, n int, skipped []Skipped, migrated int) {
	for _, sk := range skipped {
		s.logger.Warn("Skipping stored record",
			zap.String("file", path),
			zap.String("kind", kind),
			zap.Int("index", sk.Index),
			zap.Error(sk.Err),
		)
	}
	if len(skipped) > 0 {
		s.needsBackup[path] = true
	}
	if migrated > 0 {
		s.logger.Info("Converted legacy bills",
			zap.String("file", path),
			zap.Int("patients", migrated),
		)
	}
	s.logger.Debug("Loaded collection",
		zap.String("file", path),
		zap.String("kind", kind),
		zap.Int("count", n),
	)
}

// Flush persists Patients, Doctors and Appointments, in that order.
func (s *Store) Flush() error {
	if err := s.backupOnce(s.files.Patients); err != nil {
		return err
	}
	if err := Save(s.files.Patients, s.Patients, PatientCodec, s.files.Indent); err != nil {
		return err
	}
	if err := s.backupOnce(s.files.Doctors); err != nil {
		return err
	}
	if err := Save(s.files.Doctors, s.Doctors, DoctorCodec, s.files.Indent); err != nil {
		return err
	}
	if err := s.backupOnce(s.files.Appointments); err != nil {
		return err
	}
	return Save(s.files.Appointments, s.Appointments, AppointmentCodec, s.files.Indent)
}

func (s *Store) backupOnce(path string) error {
	if !s.needsBackup[path] {
		return nil
	}
	target, err := database.Backup(path)
	if err != nil {
		return err
	}
	delete(s.needsBackup, path)
	if target != "" {
		s.logger.Warn("Backed up data file before dropping unreadable records",
			zap.String("file", path),
			zap.String("backup", target),
		)
	}
	return nil
}

// SearchPatients yields patients whose id, as text, or name contains query,
// ignoring case.
func (s *Store) SearchPatients(query string) iter.Seq[records.Patient] {
	needle := strings.ToLower(strings.TrimSpace(query))
	return s.Patients.Search(func(p records.Patient) bool {
		return strings.Contains(strconv.Itoa(p.ID), needle) ||
			strings.Contains(strings.ToLower(p.Name), needle)
	})
}

// FirstPatient returns the first patient SearchPatients yields.
func (s *Store) FirstPatient(query string) (records.Patient, error) {
	for p := range s.SearchPatients(query) {
		return p.Clone(), nil
	}
	return records.Patient{}, &NotFoundError{Kind: PatientCodec.Kind, Query: query}
}
