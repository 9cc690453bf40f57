package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// NewAppointmentParams carries everything persisted at creation time.
// Display names are snapshotted here and never re-synced afterwards.
type NewAppointmentParams struct {
	PatientID       string
	DoctorID        string
	PatientName     string
	DoctorName      string
	AppointmentDate string
	AppointmentTime string
	Reason          string
}

// Repository contains all DB interactions needed by the service.
//
// The two status-changing methods are single conditional updates: the
// identity filter, the expected-status filter and the write are one
// statement, so concurrent requests against the same record cannot both
// succeed.
type Repository interface {
	CreatePending(ctx context.Context, p NewAppointmentParams) (*Appointment, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetByIDForDoctor filters on id and doctor identity simultaneously so
	// an unauthorized caller is indistinguishable from a missing record.
	GetByIDForDoctor(ctx context.Context, id uuid.UUID, doctorID string) (*Appointment, error)

	ListByPatient(ctx context.Context, patientID string) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]Appointment, error)

	// UpdateStatusByDoctor commits a doctor decision. A nil notes keeps the
	// stored notes. Returns ErrAppointmentNotFound when no row matches all
	// of id, doctor and expected status.
	UpdateStatusByDoctor(ctx context.Context, id uuid.UUID, doctorID string, from, to Status, notes *string) (*Appointment, error)

	// CancelByPatient cancels the patient's own pending appointment.
	// Returns ErrAppointmentNotFound when no row matches id, patient and
	// pending status.
	CancelByPatient(ctx context.Context, id uuid.UUID, patientID string) (*Appointment, error)
}
