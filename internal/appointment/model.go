package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// transitions is the full state table. Statuses absent as keys are terminal.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCompleted},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the status.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// DecisionTarget reports whether s is a status a doctor may move an
// appointment to, and if so which current status the record must hold.
func DecisionTarget(s Status) (from Status, ok bool) {
	switch s {
	case StatusApproved, StatusRejected:
		return StatusPending, true
	case StatusCompleted:
		return StatusApproved, true
	default:
		return "", false
	}
}

type Appointment struct {
	ID              uuid.UUID
	PatientID       string
	DoctorID        string
	PatientName     string
	DoctorName      string
	AppointmentDate string
	AppointmentTime string
	Reason          string
	Status          Status
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
