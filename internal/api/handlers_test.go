package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serenbook/booking-service/internal/booking"
	"github.com/serenbook/booking-service/internal/config"
	"github.com/serenbook/booking-service/internal/schedule"
)

type inlineLocker struct{}

func (inlineLocker) WithScheduleLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type testServer struct {
	handler        http.Handler
	practitionerID uuid.UUID
	patientID      uuid.UUID
}

// newTestServer wires the router against the in-memory repository with one
// practitioner working Mon-Fri 09:00-18:00 and one patient.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := booking.NewMemoryRepository()
	practitionerID := uuid.New()
	patientID := uuid.New()

	repo.AddPractitioner(booking.Practitioner{ID: practitionerID, Name: "Dana Reeve"})
	repo.AddPatient(booking.Patient{ID: patientID, Name: "Sam Okafor"})
	repo.SetWorkingHours(schedule.WorkingHours{
		PractitionerID: practitionerID,
		StartTime:      "09:00",
		EndTime:        "18:00",
	})

	svc := booking.NewService(repo, inlineLocker{}, config.Config{PendingTTL: 15 * time.Minute}, zerolog.Nop())

	return &testServer{
		handler: NewRouter(RouterConfig{
			Service: svc,
			Logger:  zerolog.Nop(),
			Env:     "test",
			Version: "test",
		}),
		practitionerID: practitionerID,
		patientID:      patientID,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// A Wednesday with standard working hours in the fixtures.
const slotDate = "2025-09-03"

func (ts *testServer) book(t *testing.T, at string) AppointmentResponse {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PractitionerID:  ts.practitionerID.String(),
		PatientID:       ts.patientID.String(),
		Date:            slotDate,
		Time:            at,
		DurationMinutes: 50,
		Status:          string(schedule.StatusConfirmed),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[AppointmentResponse](t, rec)
}

func TestListSlots(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/practitioners/%s/slots?date=%s&duration=50", ts.practitionerID, slotDate), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[SlotListResponse](t, rec)
	assert.Equal(t, slotDate, resp.Date)
	require.Len(t, resp.Slots, 18)
	assert.Equal(t, "09:00", resp.Slots[0].Time)
	assert.Equal(t, schedule.SlotAvailable, resp.Slots[0].Status)
}

func TestListSlotsValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/practitioners/%s/slots", ts.practitionerID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_date", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/practitioners/%s/slots?date=03-09-2025", ts.practitionerID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/practitioners/%s/slots?date=%s&duration=abc", ts.practitionerID, slotDate), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/practitioners/not-a-uuid/slots?date="+slotDate, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookAppointment(t *testing.T) {
	ts := newTestServer(t)

	appt := ts.book(t, "10:00")
	assert.Equal(t, "10:00", appt.Time)
	assert.Equal(t, slotDate, appt.Date)
	assert.Equal(t, string(schedule.StatusConfirmed), appt.Status)

	// The booked slot now shows as occupied.
	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/practitioners/%s/slots?date=%s&duration=50", ts.practitionerID, slotDate), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, s := range decode[SlotListResponse](t, rec).Slots {
		if s.Time == "10:00" {
			assert.Equal(t, schedule.SlotOccupied, s.Status)
		}
	}
}

func TestBookAppointmentConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.book(t, "10:00")

	rec := ts.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PractitionerID:  ts.practitionerID.String(),
		PatientID:       ts.patientID.String(),
		Date:            slotDate,
		Time:            "10:00",
		DurationMinutes: 50,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_no_longer_available", decode[ErrorResponse](t, rec).Error)
}

func TestBookAppointmentValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PractitionerID:  "nope",
		PatientID:       ts.patientID.String(),
		Date:            slotDate,
		Time:            "10:00",
		DurationMinutes: 50,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PractitionerID:  uuid.NewString(),
		PatientID:       ts.patientID.String(),
		Date:            slotDate,
		Time:            "10:00",
		DurationMinutes: 50,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "practitioner_not_found", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PractitionerID:  ts.practitionerID.String(),
		PatientID:       ts.patientID.String(),
		Date:            slotDate,
		Time:            "10:00",
		DurationMinutes: 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_duration", decode[ErrorResponse](t, rec).Error)
}

func TestGetAppointment(t *testing.T) {
	ts := newTestServer(t)
	appt := ts.book(t, "10:00")

	rec := ts.do(t, http.MethodGet, "/appointments/"+appt.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appt.ID, decode[AppointmentResponse](t, rec).ID)

	rec = ts.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRescheduleAppointment(t *testing.T) {
	ts := newTestServer(t)
	appt := ts.book(t, "10:00")

	rec := ts.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/reschedule", RescheduleAppointmentRequest{
		Date:        slotDate,
		Time:        "14:00",
		InitiatedBy: "patient",
		Reason:      "clash with work",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	moved := decode[AppointmentResponse](t, rec)
	assert.Equal(t, "14:00", moved.Time)
	assert.Equal(t, string(schedule.StatusConfirmed), moved.Status)
	require.NotNil(t, moved.RescheduledBy)
	assert.Equal(t, "patient", *moved.RescheduledBy)
}

func TestRescheduleAppointmentErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.book(t, "14:00")
	appt := ts.book(t, "10:00")

	// Onto an occupied slot.
	rec := ts.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/reschedule", RescheduleAppointmentRequest{
		Date:        slotDate,
		Time:        "14:00",
		InitiatedBy: "patient",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown initiator.
	rec = ts.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/reschedule", RescheduleAppointmentRequest{
		Date:        slotDate,
		Time:        "11:00",
		InitiatedBy: "admin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_initiator", decode[ErrorResponse](t, rec).Error)
}

func TestStatusTransitionEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PractitionerID:  ts.practitionerID.String(),
		PatientID:       ts.patientID.String(),
		Date:            slotDate,
		Time:            "10:00",
		DurationMinutes: 50,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	appt := decode[AppointmentResponse](t, rec)
	assert.Equal(t, string(schedule.StatusPending), appt.Status)

	rec = ts.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(schedule.StatusConfirmed), decode[AppointmentResponse](t, rec).Status)

	rec = ts.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Completed is terminal.
	rec = ts.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_status_transition", decode[ErrorResponse](t, rec).Error)
}

func TestNoShowEndpoint(t *testing.T) {
	ts := newTestServer(t)
	appt := ts.book(t, "10:00")

	rec := ts.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/no-show", NoShowRequest{Party: "practitioner"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(schedule.StatusProfessionalNoShow), decode[AppointmentResponse](t, rec).Status)

	rec = ts.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/no-show", NoShowRequest{Party: "someone"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
