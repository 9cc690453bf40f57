package notification

import (
	"errors"
	"fmt"
	"strings"

	"github.com/medbook/appointment-platform/internal/event"
)

var ErrUnknownEventType = errors.New("unknown event type")

// Classify derives the human-readable message and the recipient from an
// event. The mapping is a fixed table; anything outside it is rejected
// with ErrUnknownEventType so the caller can discard it.
func Classify(eventType string, data map[string]any) (message string, recipientType RecipientType, recipientID string, err error) {
	switch eventType {
	case event.TypeAppointmentCreated:
		message = fmt.Sprintf("New appointment request from %s on %s at %s",
			stringField(data, "patientName"),
			stringField(data, "appointmentDate"),
			stringField(data, "appointmentTime"))
		return message, RecipientDoctor, stringField(data, "doctorId"), nil

	case event.TypeAppointmentApproved:
		message = fmt.Sprintf("Your appointment with Dr. %s has been approved!",
			stringField(data, "doctorName"))
		return message, RecipientPatient, stringField(data, "patientId"), nil

	case event.TypeAppointmentRejected:
		message = strings.TrimSpace(fmt.Sprintf("Your appointment with Dr. %s has been rejected. %s",
			stringField(data, "doctorName"),
			stringField(data, "notes")))
		return message, RecipientPatient, stringField(data, "patientId"), nil

	case event.TypeAppointmentCompleted:
		message = fmt.Sprintf("Your appointment with Dr. %s has been marked as completed.",
			stringField(data, "doctorName"))
		return message, RecipientPatient, stringField(data, "patientId"), nil

	case event.TypeAppointmentCancelled:
		message = fmt.Sprintf("Appointment with %s has been cancelled.",
			stringField(data, "patientName"))
		return message, RecipientDoctor, stringField(data, "doctorId"), nil

	default:
		return "", "", "", ErrUnknownEventType
	}
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
