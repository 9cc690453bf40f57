package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/appointment-platform/internal/auth"
	"github.com/medbook/appointment-platform/internal/event"
	"github.com/medbook/appointment-platform/internal/identity"
)

type capturedEvent struct {
	eventType string
	data      map[string]any
}

type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *capturePublisher) Publish(eventType string, data map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{eventType: eventType, data: data})
}

func (p *capturePublisher) all() []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]capturedEvent{}, p.events...)
}

type stubResolver struct {
	user *identity.User
	err  error
}

func (r *stubResolver) Me(context.Context, string) (*identity.User, error) {
	return r.user, r.err
}

func newTestService(resolver IdentityResolver) (*Service, *MemoryRepository, *capturePublisher) {
	repo := NewMemoryRepository()
	pub := &capturePublisher{}
	if resolver == nil {
		resolver = &stubResolver{user: &identity.User{FullName: "Alice Kim"}}
	}
	svc := NewService(repo, pub, resolver, zerolog.Nop())
	return svc, repo, pub
}

var (
	patient  = auth.Principal{UserID: "patient-1", Role: auth.RolePatient}
	doctor   = auth.Principal{UserID: "doctor-1", Role: auth.RoleDoctor}
	stranger = auth.Principal{UserID: "doctor-2", Role: auth.RoleDoctor}
)

func validInput() CreateInput {
	return CreateInput{
		DoctorID:        "doctor-1",
		DoctorName:      "Dr. House",
		AppointmentDate: "2025-03-01",
		AppointmentTime: "10:00",
		Reason:          "checkup",
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, pub := newTestService(nil)

	cases := []func(*CreateInput){
		func(in *CreateInput) { in.DoctorID = "" },
		func(in *CreateInput) { in.DoctorName = "" },
		func(in *CreateInput) { in.AppointmentDate = "" },
		func(in *CreateInput) { in.AppointmentTime = "" },
		func(in *CreateInput) { in.Reason = "" },
	}

	for _, mutate := range cases {
		in := validInput()
		mutate(&in)
		_, err := svc.Create(context.Background(), patient, "tok", in)
		assert.ErrorIs(t, err, ErrValidation)
	}

	assert.Empty(t, pub.all(), "no event may be emitted for a failed create")
}

func TestCreateSuccess(t *testing.T) {
	svc, _, pub := newTestService(nil)

	appt, err := svc.Create(context.Background(), patient, "tok", validInput())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, "patient-1", appt.PatientID, "patient identity must come from the principal")
	assert.Equal(t, "Alice Kim", appt.PatientName)
	assert.Nil(t, appt.Notes)

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeAppointmentCreated, events[0].eventType)
	assert.Equal(t, "doctor-1", events[0].data["doctorId"])
	assert.Equal(t, "Alice Kim", events[0].data["patientName"])
	assert.Equal(t, "2025-03-01", events[0].data["appointmentDate"])
	assert.Equal(t, "10:00", events[0].data["appointmentTime"])
}

func TestCreateFallsBackToPlaceholderName(t *testing.T) {
	svc, _, _ := newTestService(&stubResolver{err: errors.New("identity provider down")})

	appt, err := svc.Create(context.Background(), patient, "tok", validInput())
	require.NoError(t, err, "creation must not fail because enrichment failed")
	assert.Equal(t, "Patient", appt.PatientName)
}

func TestListFiltersByRole(t *testing.T) {
	svc, _, _ := newTestService(nil)

	_, err := svc.Create(context.Background(), patient, "tok", validInput())
	require.NoError(t, err)

	other := validInput()
	other.DoctorID = "doctor-2"
	_, err = svc.Create(context.Background(), auth.Principal{UserID: "patient-2", Role: auth.RolePatient}, "tok", other)
	require.NoError(t, err)

	mine, err := svc.List(context.Background(), patient)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "patient-1", mine[0].PatientID)

	docs, err := svc.List(context.Background(), doctor)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doctor-1", docs[0].DoctorID)

	_, err = svc.List(context.Background(), auth.Principal{UserID: "x", Role: "admin"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListNewestFirst(t *testing.T) {
	svc, _, _ := newTestService(nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), patient, "tok", validInput())
		require.NoError(t, err)
	}

	appts, err := svc.List(context.Background(), patient)
	require.NoError(t, err)
	require.Len(t, appts, 3)
	for i := 1; i < len(appts); i++ {
		assert.False(t, appts[i].CreatedAt.After(appts[i-1].CreatedAt))
	}
}

func TestGet(t *testing.T) {
	svc, _, _ := newTestService(nil)

	created, err := svc.Create(context.Background(), patient, "tok", validInput())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), patient, uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	got, err := svc.Get(context.Background(), patient, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	got, err = svc.Get(context.Background(), doctor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.Get(context.Background(), auth.Principal{UserID: "patient-2", Role: auth.RolePatient}, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDecideApproveStoresNotesAndEmits(t *testing.T) {
	svc, _, pub := newTestService(nil)

	created, err := svc.Create(context.Background(), patient, "tok", validInput())
	require.NoError(t, err)

	notes := "bring ID"
	updated, err := svc.Decide(context.Background(), doctor, created.ID, StatusApproved, &notes)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, updated.Status)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "bring ID", *updated.Notes)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))

	events := pub.all()
	require.Len(t, events, 2)
	assert.Equal(t, "appointment.approved", events[1].eventType)
	assert.Equal(t, "patient-1", events[1].data["patientId"])
	assert.Equal(t, "bring ID", events[1].data["notes"])
}

func TestDecideRetainsPriorNotesWhenOmitted(t *testing.T) {
	svc, _, _ := newTestService(nil)

	created, err := svc.Create(context.Background(), patient, "tok", validInput())
	require.NoError(t, err)

	notes := "initial"
	_, err = svc.Decide(context.Background(), doctor, created.ID, StatusApproved, &notes)
	require.NoError(t, err)

	updated, err := svc.Decide(context.Background(), doctor, created.ID, StatusCompleted, nil)
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "initial", *updated.Notes)
}

func TestDecideRejectsInvalidTarget(t *testing.T) {
	svc, _, _ := newTestService(nil)

	created, err := svc.Create(context.Background(), patient, "tok", validInput())
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), doctor, created.ID, StatusPending, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Decide(context.Background(), doctor, created.ID, StatusCancelled, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Decide(context.Background(), doctor, created.ID, Status("bogus"), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDecideMasksForeignRecordAsNotFound(t *testing.T) {
	svc, _, _ := newTestService(nil)

	created, err := svc.Create(context.Background(), patient, "tok", validInput())
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), stranger, created.ID, StatusApproved, nil)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestDecideIllegalTransitions(t *testing.T) {
	svc, _, _ := newTestService(nil)

	created, err := svc.Create(context.Background(), patient, "tok", validInput())
	require.NoError(t, err)

	// completed requires approved
	_, err = svc.Decide(context.Background(), doctor, created.ID, StatusCompleted, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Decide(context.Background(), doctor, created.ID, StatusRejected, nil)
	require.NoError(t, err)

	// rejected is terminal
	_, err = svc.Decide(context.Background(), doctor, created.ID, StatusApproved, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Decide(context.Background(), doctor, created.ID, StatusCompleted, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDecideAfterApprovalOnlyCompletes(t *testing.T) {
	svc, _, _ := newTestService(nil)

	created, err := svc.Create(context.Background(), patient, "tok", validInput())
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), doctor, created.ID, StatusApproved, nil)
	require.NoError(t, err)

	// a late reject against the approved record must lose
	_, err = svc.Decide(context.Background(), doctor, created.ID, StatusRejected, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := svc.Decide(context.Background(), doctor, created.ID, StatusCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
}

func TestConcurrentDecisionsExactlyOneWins(t *testing.T) {
	for i := 0; i < 50; i++ {
		svc, _, pub := newTestService(nil)

		created, err := svc.Create(context.Background(), patient, "tok", validInput())
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make([]error, 2)

		wg.Add(2)
		go func() {
			defer wg.Done()
			_, results[0] = svc.Decide(context.Background(), doctor, created.ID, StatusApproved, nil)
		}()
		go func() {
			defer wg.Done()
			_, results[1] = svc.Decide(context.Background(), doctor, created.ID, StatusRejected, nil)
		}()
		wg.Wait()

		var wins, losses int
		for _, err := range results {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrAppointmentNotFound):
				losses++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}

		assert.Equal(t, 1, wins, "exactly one concurrent decision may succeed")
		assert.Equal(t, 1, losses)
		// created + exactly one decision event
		assert.Len(t, pub.all(), 2)
	}
}

func TestCancel(t *testing.T) {
	svc, _, pub := newTestService(nil)

	created, err := svc.Create(context.Background(), patient, "tok", validInput())
	require.NoError(t, err)

	updated, err := svc.Cancel(context.Background(), patient, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, updated.Status)

	events := pub.all()
	require.Len(t, events, 2)
	assert.Equal(t, event.TypeAppointmentCancelled, events[1].eventType)
	assert.Equal(t, "doctor-1", events[1].data["doctorId"])

	// retrying the cancel fails instead of double-cancelling
	_, err = svc.Cancel(context.Background(), patient, created.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.Len(t, pub.all(), 2)
}

func TestCancelRequiresPendingAndOwnership(t *testing.T) {
	svc, _, _ := newTestService(nil)

	created, err := svc.Create(context.Background(), patient, "tok", validInput())
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), auth.Principal{UserID: "patient-2", Role: auth.RolePatient}, created.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = svc.Decide(context.Background(), doctor, created.ID, StatusApproved, nil)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), patient, created.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound, "approved appointments are no longer cancellable")
}
