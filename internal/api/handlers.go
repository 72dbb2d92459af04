package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/serenbook/booking-service/internal/booking"
	"github.com/serenbook/booking-service/internal/calendar"
	redisclient "github.com/serenbook/booking-service/internal/redis"
	"github.com/serenbook/booking-service/internal/schedule"
)

// listSlotsHandler serves the shared slot query: the same endpoint backs the
// patient booking screen, the practitioner calendar, and both reschedule
// flows.
func listSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "id must be a valid UUID")
			return
		}

		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required (YYYY-MM-DD)")
			return
		}

		duration := schedule.SlotStepMinutes
		if raw := r.URL.Query().Get("duration"); raw != "" {
			duration, err = strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be an integer number of minutes")
				return
			}
		}

		slots, err := svc.TimeSlotsForDate(r.Context(), practitionerID, date, duration)
		if err != nil {
			handleSlotError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotListResponse{
			PractitionerID: practitionerID.String(),
			Date:           date,
			Slots:          slots,
		})
	}
}

func bookAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		practitionerID, err := uuid.Parse(req.PractitionerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		appt, err := svc.Book(r.Context(), booking.BookingRequest{
			PractitionerID:  practitionerID,
			PatientID:       patientID,
			Date:            req.Date,
			Time:            req.Time,
			DurationMinutes: req.DurationMinutes,
			InitialStatus:   schedule.AppointmentStatus(req.Status),
		})
		if err != nil {
			handleBookError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, booking.RescheduleRequest{
			Date:      req.Date,
			Time:      req.Time,
			Initiator: schedule.Initiator(req.InitiatedBy),
			Reason:    req.Reason,
		})
		if err != nil {
			handleBookError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleStatusError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// statusTransitionHandler builds the confirm/cancel/complete endpoints, which
// differ only in the service call.
func statusTransitionHandler(fn func(r *http.Request, id uuid.UUID) (*schedule.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := fn(r, id)
		if err != nil {
			handleStatusError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func noShowHandler(svc *booking.Service) http.HandlerFunc {
	return statusTransitionHandler(func(r *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		var req NoShowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, booking.ErrInvalidInitiator
		}
		return svc.MarkNoShow(r.Context(), id, schedule.Initiator(req.Party))
	})
}

func handleSlotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calendar.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	case errors.Is(err, booking.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, "invalid_duration", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleBookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calendar.ErrInvalidDate),
		errors.Is(err, calendar.ErrInvalidTime):
		writeError(w, http.StatusBadRequest, "invalid_date_time", err.Error())
	case errors.Is(err, booking.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, "invalid_duration", err.Error())
	case errors.Is(err, booking.ErrInvalidInitiator):
		writeError(w, http.StatusBadRequest, "invalid_initiator", err.Error())
	case errors.Is(err, booking.ErrInvalidInitialStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, booking.ErrPractitionerNotFound):
		writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotNoLongerAvailable):
		writeError(w, http.StatusConflict, "slot_no_longer_available", "slot is no longer available, please pick another")
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrBookingInProgress),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "booking_in_progress", "this schedule is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleStatusError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrInvalidInitiator):
		writeError(w, http.StatusBadRequest, "invalid_party", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
