package store

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mesikahq/hospital-records/internal/database"
	"github.com/mesikahq/hospital-records/internal/records"
)

func testFiles(t *testing.T) Files {
	t.Helper()
	dir := t.TempDir()
	return Files{
		Patients:     filepath.Join(dir, "patients.json"),
		Doctors:      filepath.Join(dir, "doctors.json"),
		Appointments: filepath.Join(dir, "appointments.json"),
		Indent:       4,
	}
}

func ids[T records.Identified](items []T) []int {
	out := make([]int, 0, len(items))
	for _, item := range items {
		out = append(out, item.Identity())
	}
	return out
}

func billsWithIDs(idList ...int) []records.Bill {
	out := make([]records.Bill, 0, len(idList))
	for _, id := range idList {
		out = append(out, records.Bill{ID: id, Amount: float64(id * 10), Description: "fee", Date: "2025-02-01", Status: records.BillPending})
	}
	return out
}

func TestNextID(t *testing.T) {
	assert.Equal(t, 1, NewCollection[records.Doctor]("doctor").NextID())

	c := NewCollection("doctor", records.Doctor{ID: 3}, records.Doctor{ID: 7}, records.Doctor{ID: 2})
	assert.Equal(t, 8, c.NextID())
}

func TestCollectionCRUD(t *testing.T) {
	c := NewCollection[records.Doctor]("doctor")
	require.NoError(t, c.Add(records.Doctor{ID: 1, Name: "A"}))
	require.NoError(t, c.Add(records.Doctor{ID: 2, Name: "B"}))
	assert.ErrorIs(t, c.Add(records.Doctor{ID: 2, Name: "C"}), ErrDuplicateID)

	require.NoError(t, c.Replace(records.Doctor{ID: 1, Name: "A2"}))
	d, ok := c.FindByID(1)
	require.True(t, ok)
	assert.Equal(t, "A2", d.Name)

	err := c.Replace(records.Doctor{ID: 9})
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, 9, nf.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.True(t, c.Delete(1))
	assert.False(t, c.Delete(1))
	assert.Equal(t, []int{2}, ids(c.Items()))

	_, ok = c.FindByID(1)
	assert.False(t, ok)
	_, err = c.Get(1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItemsIsACopy(t *testing.T) {
	c := NewCollection("doctor", records.Doctor{ID: 1, Name: "A"})
	items := c.Items()
	items[0].Name = "changed"

	d, _ := c.FindByID(1)
	assert.Equal(t, "A", d.Name)
}

func TestSearchPatients(t *testing.T) {
	s := New(testFiles(t), nil)
	for _, p := range []records.Patient{
		{ID: 7, Name: "Ram"},
		{ID: 12, Name: "Room 17"},
		{ID: 70, Name: "Sita"},
		{ID: 3, Name: "Hari"},
		{ID: 4, Name: "MARIA"},
	} {
		require.NoError(t, s.Patients.Add(p))
	}

	assert.Equal(t, []int{7, 12, 70}, ids(slices.Collect(s.SearchPatients("7"))))
	assert.Equal(t, []int{4}, ids(slices.Collect(s.SearchPatients("maria"))))
	assert.Equal(t, []int{3, 4}, ids(slices.Collect(s.SearchPatients("AR"))))

	seq := s.SearchPatients("ram")
	assert.Len(t, slices.Collect(seq), 1)
	assert.Len(t, slices.Collect(seq), 1, "sequence can be ranged again")

	first, err := s.FirstPatient("7")
	require.NoError(t, err)
	assert.Equal(t, 7, first.ID)

	_, err = s.FirstPatient("zzz")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "zzz", nf.Query)
}

func TestMutateBills(t *testing.T) {
	newStore := func(t *testing.T) *Store {
		s := New(testFiles(t), nil)
		require.NoError(t, s.Patients.Add(records.Patient{ID: 1, Name: "Ram", Bills: billsWithIDs(1, 2, 3, 4)}))
		return s
	}

	t.Run("delete keeps order", func(t *testing.T) {
		s := newStore(t)
		p, err := s.MutateBills(1, RemoveByID[records.Bill](3))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 4}, ids(p.Bills))

		stored, _ := s.Patients.FindByID(1)
		assert.Equal(t, []int{1, 2, 4}, ids(stored.Bills))
	})

	t.Run("delete missing id is a no-op", func(t *testing.T) {
		s := newStore(t)
		p, err := s.MutateBills(1, RemoveByID[records.Bill](9))
		require.NoError(t, err)
		assert.Equal(t, billsWithIDs(1, 2, 3, 4), p.Bills)
	})

	t.Run("mark paid touches one bill", func(t *testing.T) {
		s := newStore(t)
		p, err := s.MutateBills(1, MarkBillStatus(2, records.BillPaid))
		require.NoError(t, err)

		want := billsWithIDs(1, 2, 3, 4)
		want[1].Status = records.BillPaid
		assert.Equal(t, want, p.Bills)
	})

	t.Run("mark missing bill leaves patient untouched", func(t *testing.T) {
		s := newStore(t)
		_, err := s.MutateBills(1, MarkBillStatus(9, records.BillPaid))
		assert.ErrorIs(t, err, ErrNotFound)

		stored, _ := s.Patients.FindByID(1)
		assert.Equal(t, billsWithIDs(1, 2, 3, 4), stored.Bills)
	})

	t.Run("append uses next id", func(t *testing.T) {
		s := newStore(t)
		p, err := s.MutateBills(1, AppendNew(func(id int) records.Bill {
			return records.Bill{ID: id, Amount: 5, Description: "x", Date: "2025-02-02", Status: records.BillPending}
		}))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(p.Bills))
	})

	t.Run("failed transform does not apply", func(t *testing.T) {
		s := newStore(t)
		_, err := s.MutateBills(1, func(b []records.Bill) ([]records.Bill, error) {
			b[0].Amount = 999
			return nil, errors.New("boom")
		})
		require.Error(t, err)

		stored, _ := s.Patients.FindByID(1)
		assert.Equal(t, billsWithIDs(1, 2, 3, 4), stored.Bills)
	})

	t.Run("unknown patient", func(t *testing.T) {
		s := newStore(t)
		_, err := s.MutateBills(42, RemoveByID[records.Bill](1))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMutatePrescriptions(t *testing.T) {
	s := New(testFiles(t), nil)
	require.NoError(t, s.Patients.Add(records.Patient{ID: 1, Name: "Ram", Prescriptions: []records.Prescription{
		{ID: 1, Medicine: "ORS", Date: "2025-01-01"},
		{ID: 2, Medicine: "Zinc", Date: "2025-01-01"},
	}}))

	p, err := s.MutatePrescriptions(1, RemoveByID[records.Prescription](1))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids(p.Prescriptions))
}

func TestOpenMissingFilesIsEmpty(t *testing.T) {
	s, err := Open(testFiles(t), zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, s.Patients.Len())
	assert.Zero(t, s.Doctors.Len())
	assert.Zero(t, s.Appointments.Len())
}

func TestOpenRejectsNonArrayFile(t *testing.T) {
	files := testFiles(t)
	require.NoError(t, os.WriteFile(files.Doctors, []byte(`{"id": 1001}`), 0o644))

	_, err := Open(files, zap.NewNop())
	var pe *database.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, files.Doctors, pe.Path)
}

func TestSaveReloadRoundTrip(t *testing.T) {
	files := testFiles(t)
	s := New(files, zap.NewNop())

	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 1, 2}
	for id := 1; id <= 3; id++ {
		p := records.Patient{
			ID:       id,
			Name:     "Patient " + string(rune('A'+id)),
			Age:      20 + id,
			Ailment:  "Flu",
			Password: "pw",
			Reports:  []string{"r1"},
			Bills:    billsWithIDs(1, 2),
			Prescriptions: []records.Prescription{
				{ID: 1, Medicine: "ORS", Description: "after meals", Date: "2025-03-01"},
				{ID: 2, Medicine: "Zinc", Description: "", Date: "2025-03-02", Image: png},
			},
		}
		p.Bills[1].Status = records.BillPaid
		require.NoError(t, s.Patients.Add(p))
	}
	require.NoError(t, s.Doctors.Add(records.Doctor{ID: 1001, Name: "Dr. Admin", Specialization: "Administrator", Password: "admin123"}))
	require.NoError(t, s.Appointments.Add(records.Appointment{ID: 1, PatientID: 99, DoctorID: 1001, Date: "2025-04-01", Time: "09:00"}))

	require.NoError(t, s.Flush())

	reloaded, err := Open(files, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, s.Patients.Items(), reloaded.Patients.Items())
	assert.Equal(t, s.Doctors.Items(), reloaded.Doctors.Items())
	assert.Equal(t, s.Appointments.Items(), reloaded.Appointments.Items())
}

func TestOpenSkipsMalformedAndBacksUp(t *testing.T) {
	files := testFiles(t)
	content := `[
		{"id": 1, "name": "Ram", "age": 30, "ailment": "Flu", "password": "p"},
		{"id": 2, "name": "Sita", "age": "unknown", "ailment": "Flu", "password": "p"},
		42,
		{"id": 1, "name": "Dup", "age": 3, "ailment": "x", "password": "p"},
		{"id": -3, "name": "Hari", "age": 20, "ailment": "x", "password": "p"},
		{"id": 5, "name": "Gita", "age": -5, "ailment": "x", "password": "p"},
		{"id": 6, "name": "Maya", "age": 9, "ailment": "x", "password": "p"}
	]`
	require.NoError(t, os.WriteFile(files.Patients, []byte(content), 0o644))

	core, logs := observer.New(zap.WarnLevel)
	s, err := Open(files, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 6}, ids(s.Patients.Items()))

	skipped := logs.FilterMessage("Skipping stored record").All()
	require.Len(t, skipped, 5)
	var indexes []int64
	for _, entry := range skipped {
		indexes = append(indexes, entry.ContextMap()["index"].(int64))
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, indexes)

	require.NoError(t, s.Flush())
	backup, err := os.ReadFile(files.Patients + ".bak")
	require.NoError(t, err)
	assert.Equal(t, content, string(backup))

	// The backup is taken once per session.
	require.NoError(t, os.Remove(files.Patients+".bak"))
	require.NoError(t, s.Flush())
	_, err = os.Stat(files.Patients + ".bak")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadReportsNonObjectElements(t *testing.T) {
	files := testFiles(t)
	require.NoError(t, os.WriteFile(files.Patients, []byte(`[
		{"id": 1, "name": "Ram", "age": 30, "ailment": "Flu", "password": "p"},
		42,
		{"id": 2, "name": "Sita", "age": 25, "ailment": "Cold", "password": "p"}
	]`), 0o644))

	loaded, err := Load(files.Patients, PatientCodec)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids(loaded.Collection.Items()))
	require.Len(t, loaded.Skipped, 1)
	assert.Equal(t, 1, loaded.Skipped[0].Index)

	var mre *records.MalformedRecordError
	require.True(t, errors.As(loaded.Skipped[0].Err, &mre))
	assert.Equal(t, "patient", mre.Entity)
	assert.Equal(t, "[1]", mre.Field)
}

func TestOpenMigratesLegacyBills(t *testing.T) {
	files := testFiles(t)
	require.NoError(t, os.WriteFile(files.Patients, []byte(`[
		{"id": 1, "name": "Ram", "age": 30, "ailment": "Flu", "password": "p",
		 "bills": ["Consultation Fee 1500.0", "Checkup"]}
	]`), 0o644))

	core, logs := observer.New(zap.InfoLevel)
	s, err := Open(files, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Converted legacy bills").Len())

	require.NoError(t, s.Flush())
	elems, err := database.ReadArray(files.Patients)
	require.NoError(t, err)
	first, ok := records.AsRecord(elems[0])
	require.True(t, ok)
	assert.False(t, records.HasLegacyBills(first))

	again, err := Open(files, zap.NewNop())
	require.NoError(t, err)
	p, ok := again.Patients.FindByID(1)
	require.True(t, ok)
	require.Len(t, p.Bills, 2)
	assert.Equal(t, "Consultation Fee", p.Bills[0].Description)
	assert.Equal(t, 1500.0, p.Bills[0].Amount)
	assert.Equal(t, records.BillPending, p.Bills[0].Status)
	assert.Equal(t, "2025-01-01", p.Bills[1].Date)
}
