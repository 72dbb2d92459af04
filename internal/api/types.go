package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/serenbook/booking-service/internal/schedule"
)

type BookAppointmentRequest struct {
	PractitionerID  string `json:"practitioner_id"`
	PatientID       string `json:"patient_id"`
	Date            string `json:"date"` // YYYY-MM-DD
	Time            string `json:"time"` // HH:MM
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status,omitempty"` // pending (default) or confirmed
}

type RescheduleAppointmentRequest struct {
	Date        string `json:"date"` // YYYY-MM-DD
	Time        string `json:"time"` // HH:MM
	InitiatedBy string `json:"initiated_by"` // patient or practitioner
	Reason      string `json:"reason,omitempty"`
}

type NoShowRequest struct {
	Party string `json:"party"` // patient or practitioner
}

type AppointmentResponse struct {
	ID               uuid.UUID `json:"id"`
	PractitionerID   uuid.UUID `json:"practitioner_id"`
	PatientID        uuid.UUID `json:"patient_id"`
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	DurationMinutes  int       `json:"duration_minutes"`
	Status           string    `json:"status"`
	RescheduledBy    *string   `json:"rescheduled_by,omitempty"`
	RescheduleReason *string   `json:"reschedule_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *schedule.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:               a.ID,
		PractitionerID:   a.PractitionerID,
		PatientID:        a.PatientID,
		Date:             a.Date.Format("2006-01-02"),
		Time:             a.StartTime(),
		DurationMinutes:  a.DurationMinutes,
		Status:           string(a.Status),
		RescheduleReason: a.RescheduleReason,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
	if a.RescheduledBy != nil {
		by := string(*a.RescheduledBy)
		resp.RescheduledBy = &by
	}
	return resp
}

type SlotListResponse struct {
	PractitionerID string              `json:"practitioner_id"`
	Date           string              `json:"date"`
	Slots          []schedule.TimeSlot `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
