package store

import (
	"github.com/mesikahq/hospital-records/internal/records"
)

// Transform rewrites a patient's nested list. It receives a private copy and
// returns the list that replaces the stored one. An error discards the
// result and leaves the patient untouched.
type Transform[T any] func([]T) ([]T, error)

// AppendNew appends the item built for the next free id in the list.
func AppendNew[T records.Identified](build func(id int) T) Transform[T] {
	return func(items []T) ([]T, error) {
		return append(items, build(NextID(items))), nil
	}
}

// RemoveByID drops the entry with the given id, keeping the order of the
// rest. An absent id leaves the list as it was.
func RemoveByID[T records.Identified](id int) Transform[T] {
	return func(items []T) ([]T, error) {
		out := items[:0]
		for _, item := range items {
			if item.Identity() != id {
				out = append(out, item)
			}
		}
		return out, nil
	}
}

// UpdateByID applies update to the entry with the given id only.
func UpdateByID[T records.Identified](kind string, id int, update func(*T)) Transform[T] {
	return func(items []T) ([]T, error) {
		for i := range items {
			if items[i].Identity() == id {
				update(&items[i])
				return items, nil
			}
		}
		return nil, &NotFoundError{Kind: kind, ID: id}
	}
}

// MarkBillStatus sets the status of one bill.
func MarkBillStatus(id int, status records.BillStatus) Transform[records.Bill] {
	return UpdateByID("bill", id, func(b *records.Bill) { b.Status = status })
}

// MutateBills replaces the bills of a patient with the result of fn.
func (s *Store) MutateBills(patientID int, fn Transform[records.Bill]) (records.Patient, error) {
	return s.mutatePatient(patientID, func(p *records.Patient) error {
		bills, err := fn(p.Bills)
		if err != nil {
			return err
		}
		p.Bills = bills
		return nil
	})
}

// MutatePrescriptions replaces the prescriptions of a patient with the
// result of fn.
func (s *Store) MutatePrescriptions(patientID int, fn Transform[records.Prescription]) (records.Patient, error) {
	return s.mutatePatient(patientID, func(p *records.Patient) error {
		rxs, err := fn(p.Prescriptions)
		if err != nil {
			return err
		}
		p.Prescriptions = rxs
		return nil
	})
}

func (s *Store) mutatePatient(id int, apply func(*records.Patient) error) (records.Patient, error) {
	current, err := s.Patients.Get(id)
	if err != nil {
		return records.Patient{}, err
	}

	updated := current.Clone()
	if err := apply(&updated); err != nil {
		return records.Patient{}, err
	}
	if err := s.Patients.Replace(updated); err != nil {
		return records.Patient{}, err
	}
	return updated.Clone(), nil
}
