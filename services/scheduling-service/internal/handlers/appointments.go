package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/booking"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

type appointmentResponse struct {
	ID           string `json:"id"`
	DoctorID     string `json:"doctorId"`
	PatientID    string `json:"patientId"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	StartsAt     string `json:"startsAt"`
	Status       string `json:"status"`
	Type         string `json:"type"`
	MeetLink     string `json:"meetLink,omitempty"`
	Notes        string `json:"notes,omitempty"`
	CancelReason string `json:"cancelReason,omitempty"`
	CanceledAt   string `json:"canceledAt,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

type listAppointmentsResponse struct {
	From         string                `json:"from"`
	To           string                `json:"to"`
	Appointments []appointmentResponse `json:"appointments"`
}

type cancelRequest struct {
	AppointmentID string `json:"appointmentId"`
	Reason        string `json:"reason"`
}

func (h *Handler) toResponse(a model.Appointment) appointmentResponse {
	local := a.StartsAt.In(h.cfg.Location)
	out := appointmentResponse{
		ID:           a.ID,
		DoctorID:     a.DoctorID,
		PatientID:    a.PatientID,
		Date:         model.DateOf(local, h.cfg.Location).String(),
		Time:         model.ClockOf(local, h.cfg.Location).String(),
		StartsAt:     local.Format(time.RFC3339),
		Status:       string(a.EffectiveStatus(h.cfg.Now())),
		Type:         string(a.Type),
		MeetLink:     a.MeetLink,
		Notes:        a.Notes,
		CancelReason: a.CancelReason,
	}
	if a.CanceledAt != nil {
		out.CanceledAt = a.CanceledAt.In(h.cfg.Location).Format(time.RFC3339)
	}
	if !a.CreatedAt.IsZero() {
		out.CreatedAt = a.CreatedAt.In(h.cfg.Location).Format(time.RFC3339)
	}
	return out
}

// Appointments serves GET (list) and POST (book).
func (h *Handler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listAppointments(w, r)
	case http.MethodPost:
		h.createAppointment(w, r)
	default:
		writeMessage(w, r, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	var req booking.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	appt, err := h.bookings.Create(r.Context(), caller, req)
	if err != nil {
		h.writeError(w, r, "create appointment", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toResponse(appt))
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())
	q := r.URL.Query()

	from := model.DateOf(h.cfg.Now(), h.cfg.Location)
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		d, err := model.ParseCalendarDate(raw)
		if err != nil {
			h.writeError(w, r, "list appointments", model.Invalid("from", "must be a date in YYYY-MM-DD format"))
			return
		}
		from = d
	}
	to := from.AddDays(h.cfg.DefaultListDays)
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		d, err := model.ParseCalendarDate(raw)
		if err != nil {
			h.writeError(w, r, "list appointments", model.Invalid("to", "must be a date in YYYY-MM-DD format"))
			return
		}
		to = d
	}

	appts, err := h.bookings.List(r.Context(), caller, from, to)
	if err != nil {
		h.writeError(w, r, "list appointments", err)
		return
	}
	resp := listAppointmentsResponse{From: from.String(), To: to.String(), Appointments: make([]appointmentResponse, 0, len(appts))}
	for _, a := range appts {
		resp.Appointments = append(resp.Appointments, h.toResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMessage(w, r, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	caller, _ := IdentityFromContext(r.Context())

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	appt, err := h.bookings.Cancel(r.Context(), caller, req.AppointmentID, req.Reason)
	if err != nil {
		h.writeError(w, r, "cancel appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(appt))
}
