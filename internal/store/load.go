package store

import (
	"fmt"

	"github.com/mesikahq/hospital-records/internal/database"
	"github.com/mesikahq/hospital-records/internal/records"
)

// Codec ties an entity type to its record conversion.
type Codec[T records.Identified] struct {
	Kind   string
	Decode func(records.Record) (T, error)
	Encode func(T) records.Record
	// Legacy reports records that Decode upgrades from an older layout.
	Legacy func(records.Record) bool
}

var (
	PatientCodec = Codec[records.Patient]{
		Kind:   "patient",
		Decode: records.PatientFromRecord,
		Encode: records.Patient.ToRecord,
		Legacy: records.HasLegacyBills,
	}
	DoctorCodec = Codec[records.Doctor]{
		Kind:   "doctor",
		Decode: records.DoctorFromRecord,
		Encode: records.Doctor.ToRecord,
	}
	AppointmentCodec = Codec[records.Appointment]{
		Kind:   "appointment",
		Decode: records.AppointmentFromRecord,
		Encode: records.Appointment.ToRecord,
	}
)

// Skipped describes a stored record that was left out of a load.
type Skipped struct {
	Index int
	Err   error
}

// Loaded is the outcome of reading one collection file.
type Loaded[T records.Identified] struct {
	Collection *Collection[T]
	Skipped    []Skipped
	// Migrated counts records converted from a legacy layout.
	Migrated int
}

// Load reads path into a collection. A missing file gives an empty
// collection. Elements that are not objects, records that do not decode and
// records that repeat an earlier id are reported in Skipped instead of
// failing the load; an unreadable or non-array file fails with a
// *database.PersistenceError.
func Load[T records.Identified](path string, codec Codec[T]) (*Loaded[T], error) {
	elems, err := database.ReadArray(path)
	if err != nil {
		return nil, err
	}

	out := &Loaded[T]{Collection: NewCollection[T](codec.Kind)}
	for i, elem := range elems {
		rec, ok := records.AsRecord(elem)
		if !ok {
			out.Skipped = append(out.Skipped, Skipped{Index: i, Err: &records.MalformedRecordError{
				Entity: codec.Kind,
				Field:  fmt.Sprintf("[%d]", i),
				Reason: "expected an object",
			}})
			continue
		}
		item, err := codec.Decode(rec)
		if err != nil {
			out.Skipped = append(out.Skipped, Skipped{Index: i, Err: err})
			continue
		}
		if err := out.Collection.Add(item); err != nil {
			out.Skipped = append(out.Skipped, Skipped{Index: i, Err: err})
			continue
		}
		if codec.Legacy != nil && codec.Legacy(rec) {
			out.Migrated++
		}
	}
	return out, nil
}

// Save writes every member of c to path, replacing the file atomically.
func Save[T records.Identified](path string, c *Collection[T], codec Codec[T], indent int) error {
	recs := make([]records.Record, 0, c.Len())
	for item := range c.All() {
		recs = append(recs, codec.Encode(item))
	}
	if err := database.WriteRecords(path, recs, indent); err != nil {
		return fmt.Errorf("save %ss: %w", codec.Kind, err)
	}
	return nil
}
