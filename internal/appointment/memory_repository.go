package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local
// development. Its mutations hold one mutex across match and write, giving
// the same all-or-nothing semantics as the conditional SQL updates.
type MemoryRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*memoryRow
	seq  int64
}

type memoryRow struct {
	appt Appointment
	seq  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[uuid.UUID]*memoryRow)}
}

func (r *MemoryRepository) CreatePending(_ context.Context, p NewAppointmentParams) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	a := Appointment{
		ID:              uuid.New(),
		PatientID:       p.PatientID,
		DoctorID:        p.DoctorID,
		PatientName:     p.PatientName,
		DoctorName:      p.DoctorName,
		AppointmentDate: p.AppointmentDate,
		AppointmentTime: p.AppointmentTime,
		Reason:          p.Reason,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	r.seq++
	r.rows[a.ID] = &memoryRow{appt: a, seq: r.seq}

	out := a
	return &out, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	out := row.appt
	return &out, nil
}

func (r *MemoryRepository) GetByIDForDoctor(_ context.Context, id uuid.UUID, doctorID string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.appt.DoctorID != doctorID {
		return nil, ErrAppointmentNotFound
	}

	out := row.appt
	return &out, nil
}

func (r *MemoryRepository) ListByPatient(_ context.Context, patientID string) ([]Appointment, error) {
	return r.listWhere(func(a *Appointment) bool { return a.PatientID == patientID }), nil
}

func (r *MemoryRepository) ListByDoctor(_ context.Context, doctorID string) ([]Appointment, error) {
	return r.listWhere(func(a *Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (r *MemoryRepository) listWhere(match func(*Appointment) bool) []Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()

	type entry struct {
		appt Appointment
		seq  int64
	}

	var entries []entry
	for _, row := range r.rows {
		if match(&row.appt) {
			entries = append(entries, entry{appt: row.appt, seq: row.seq})
		}
	}

	// Newest-created first; seq breaks ties from equal clock readings.
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].appt.CreatedAt.Equal(entries[j].appt.CreatedAt) {
			return entries[i].appt.CreatedAt.After(entries[j].appt.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})

	result := make([]Appointment, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.appt)
	}
	return result
}

func (r *MemoryRepository) UpdateStatusByDoctor(_ context.Context, id uuid.UUID, doctorID string, from, to Status, notes *string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.appt.DoctorID != doctorID || row.appt.Status != from {
		return nil, ErrAppointmentNotFound
	}

	row.appt.Status = to
	if notes != nil {
		n := *notes
		row.appt.Notes = &n
	}
	row.appt.UpdatedAt = time.Now()

	out := row.appt
	return &out, nil
}

func (r *MemoryRepository) CancelByPatient(_ context.Context, id uuid.UUID, patientID string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.appt.PatientID != patientID || row.appt.Status != StatusPending {
		return nil, ErrAppointmentNotFound
	}

	row.appt.Status = StatusCancelled
	row.appt.UpdatedAt = time.Now()

	out := row.appt
	return &out, nil
}
