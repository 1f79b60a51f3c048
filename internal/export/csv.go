package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/mesikahq/hospital-records/internal/audit"
	"github.com/mesikahq/hospital-records/internal/records"
)

var (
	patientHeader = []string{"id", "name", "age", "ailment"}
	billHeader    = []string{"id", "amount", "description", "date", "status"}
)

// WritePatients writes the id, name, age and ailment of every patient.
func WritePatients(w io.Writer, patients []records.Patient) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(patientHeader); err != nil {
		return err
	}
	for _, p := range patients {
		if err := cw.Write([]string{strconv.Itoa(p.ID), p.Name, strconv.Itoa(p.Age), p.Ailment}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBills writes one row per bill.
func WriteBills(w io.Writer, bills []records.Bill) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(billHeader); err != nil {
		return err
	}
	for _, b := range bills {
		row := []string{
			strconv.Itoa(b.ID),
			strconv.FormatFloat(b.Amount, 'f', -1, 64),
			b.Description,
			b.Date,
			string(b.Status),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Exporter writes CSV files into a directory.
type Exporter struct {
	dir    string
	audit  audit.Service
	logger *zap.Logger
}

func NewExporter(dir string, audit audit.Service, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{dir: dir, audit: audit, logger: logger}
}

// Patients writes patients_export.csv and returns its path.
func (e *Exporter) Patients(ctx context.Context, patients []records.Patient) (string, error) {
	path, err := e.writeFile("patients_export.csv", func(w io.Writer) error {
		return WritePatients(w, patients)
	})
	if err != nil {
		return "", err
	}
	e.logEvent(ctx, "patient", "", "Patients exported to CSV")
	return path, nil
}

// Bills writes bills_<patient id>.csv and returns its path.
func (e *Exporter) Bills(ctx context.Context, p records.Patient) (string, error) {
	path, err := e.writeFile(fmt.Sprintf("bills_%d.csv", p.ID), func(w io.Writer) error {
		return WriteBills(w, p.Bills)
	})
	if err != nil {
		return "", err
	}
	e.logEvent(ctx, "patient", strconv.Itoa(p.ID), fmt.Sprintf("Bills exported for patient %d", p.ID))
	return path, nil
}

func (e *Exporter) writeFile(name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(e.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func (e *Exporter) logEvent(ctx context.Context, resource, id, msg string) {
	if err := e.audit.LogEvent(ctx, &audit.AuditEvent{
		EventType:   audit.EventExport,
		Action:      "EXPORT_CSV",
		Resource:    resource,
		ResourceID:  id,
		Status:      "success",
		Sensitivity: "PHI",
		Message:     msg,
	}); err != nil {
		e.logger.Warn("Failed to log audit event", zap.Error(err))
	}
}
