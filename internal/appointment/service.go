package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/appointment-platform/internal/auth"
	"github.com/medbook/appointment-platform/internal/event"
	"github.com/medbook/appointment-platform/internal/identity"
)

var (
	ErrValidation        = errors.New("missing or invalid fields")
	ErrForbidden         = errors.New("caller may not act on this record")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// placeholderName is stored when identity enrichment fails. Creation must
// not abort merely because the display name could not be resolved.
const placeholderName = "Patient"

// IdentityResolver resolves the caller's identity record for display-name
// enrichment.
type IdentityResolver interface {
	Me(ctx context.Context, token string) (*identity.User, error)
}

type Service struct {
	repo      Repository
	publisher event.Publisher
	identity  IdentityResolver
	log       zerolog.Logger
}

func NewService(repo Repository, publisher event.Publisher, resolver IdentityResolver, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		identity:  resolver,
		log:       log,
	}
}

type CreateInput struct {
	DoctorID        string
	DoctorName      string
	AppointmentDate string
	AppointmentTime string
	Reason          string
}

// Create books a new pending appointment for the calling patient. The
// patient identity comes from the authenticated principal, never from the
// request body.
func (s *Service) Create(ctx context.Context, caller auth.Principal, token string, in CreateInput) (*Appointment, error) {
	if in.DoctorID == "" || in.DoctorName == "" || in.AppointmentDate == "" ||
		in.AppointmentTime == "" || in.Reason == "" {
		return nil, ErrValidation
	}

	patientName := placeholderName
	if user, err := s.identity.Me(ctx, token); err != nil {
		s.log.Warn().Err(err).Str("patient_id", caller.UserID).
			Msg("identity enrichment failed, using placeholder name")
	} else if user.FullName != "" {
		patientName = user.FullName
	}

	appt, err := s.repo.CreatePending(ctx, NewAppointmentParams{
		PatientID:       caller.UserID,
		DoctorID:        in.DoctorID,
		PatientName:     patientName,
		DoctorName:      in.DoctorName,
		AppointmentDate: in.AppointmentDate,
		AppointmentTime: in.AppointmentTime,
		Reason:          in.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.publisher.Publish(event.TypeAppointmentCreated, map[string]any{
		"appointmentId":   appt.ID.String(),
		"patientId":       appt.PatientID,
		"patientName":     appt.PatientName,
		"doctorId":        appt.DoctorID,
		"doctorName":      appt.DoctorName,
		"appointmentDate": appt.AppointmentDate,
		"appointmentTime": appt.AppointmentTime,
		"reason":          appt.Reason,
	})

	return appt, nil
}

// List returns the caller's appointments, newest first.
func (s *Service) List(ctx context.Context, caller auth.Principal) ([]Appointment, error) {
	switch caller.Role {
	case auth.RolePatient:
		return s.repo.ListByPatient(ctx, caller.UserID)
	case auth.RoleDoctor:
		return s.repo.ListByDoctor(ctx, caller.UserID)
	default:
		return nil, ErrForbidden
	}
}

// Get returns a single appointment if the caller is a party to it.
func (s *Service) Get(ctx context.Context, caller auth.Principal, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.PatientID != caller.UserID && appt.DoctorID != caller.UserID {
		return nil, ErrForbidden
	}

	return appt, nil
}

// Decide applies a doctor decision (approve, reject or complete). The
// record lookup filters on id and doctor together, so a record owned by
// another doctor reads as not found rather than forbidden. The commit is a
// single conditional update; losing the race to a concurrent decision
// surfaces as ErrInvalidTransition.
func (s *Service) Decide(ctx context.Context, caller auth.Principal, id uuid.UUID, target Status, notes *string) (*Appointment, error) {
	from, ok := DecisionTarget(target)
	if !ok {
		return nil, ErrValidation
	}

	current, err := s.repo.GetByIDForDoctor(ctx, id, caller.UserID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(current.Status, target) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateStatusByDoctor(ctx, id, caller.UserID, from, target, notes)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The record was there a moment ago: a concurrent request won.
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("commit decision: %w", err)
	}

	s.publisher.Publish("appointment."+string(updated.Status), map[string]any{
		"appointmentId": updated.ID.String(),
		"patientId":     updated.PatientID,
		"patientName":   updated.PatientName,
		"doctorId":      updated.DoctorID,
		"doctorName":    updated.DoctorName,
		"status":        string(updated.Status),
		"notes":         notesOrEmpty(updated.Notes),
	})

	return updated, nil
}

// Cancel cancels the calling patient's own pending appointment. Missing
// record, foreign record and non-cancellable record all collapse into
// ErrAppointmentNotFound so existence is never confirmed to an
// unauthorized caller.
func (s *Service) Cancel(ctx context.Context, caller auth.Principal, id uuid.UUID) (*Appointment, error) {
	updated, err := s.repo.CancelByPatient(ctx, id, caller.UserID)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(event.TypeAppointmentCancelled, map[string]any{
		"appointmentId": updated.ID.String(),
		"patientId":     updated.PatientID,
		"patientName":   updated.PatientName,
		"doctorId":      updated.DoctorID,
		"doctorName":    updated.DoctorName,
	})

	return updated, nil
}

func notesOrEmpty(notes *string) string {
	if notes == nil {
		return ""
	}
	return *notes
}
