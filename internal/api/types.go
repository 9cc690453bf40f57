package api

import (
	"time"

	"github.com/medbook/appointment-platform/internal/appointment"
)

type CreateAppointmentRequest struct {
	DoctorID        string `json:"doctorId"`
	DoctorName      string `json:"doctorName"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	Reason          string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patientId"`
	DoctorID        string    `json:"doctorId"`
	PatientName     string    `json:"patientName"`
	DoctorName      string    `json:"doctorName"`
	AppointmentDate string    `json:"appointmentDate"`
	AppointmentTime string    `json:"appointmentTime"`
	Reason          string    `json:"reason"`
	Status          string    `json:"status"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type SingleAppointmentResponse struct {
	Message     string              `json:"message,omitempty"`
	Appointment AppointmentResponse `json:"appointment"`
}

type ListAppointmentsResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID.String(),
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		PatientName:     a.PatientName,
		DoctorName:      a.DoctorName,
		AppointmentDate: a.AppointmentDate,
		AppointmentTime: a.AppointmentTime,
		Reason:          a.Reason,
		Status:          string(a.Status),
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}
