package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/validation"
)

// windowDTO times may be empty on a disabled day.
type windowDTO struct {
	DayOfWeek int    `json:"dayOfWeek" validate:"min=0,max=6"`
	StartTime string `json:"startTime" validate:"required_if=Enabled true,omitempty,clock"`
	EndTime   string `json:"endTime" validate:"required_if=Enabled true,omitempty,clock"`
	Enabled   bool   `json:"enabled"`
}

type scheduleDTO struct {
	DoctorID string      `json:"doctorId,omitempty"`
	Days     []windowDTO `json:"days" validate:"dive"`
}

// Schedule serves GET (read the week) and PUT (replace the week).
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getSchedule(w, r)
	case http.MethodPut:
		h.putSchedule(w, r)
	default:
		writeMessage(w, r, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

func (h *Handler) getSchedule(w http.ResponseWriter, r *http.Request) {
	doctorID, err := h.doctors.ResolveDoctor(r.Context(), strings.TrimSpace(r.URL.Query().Get("doctor_id")))
	if err != nil {
		h.writeError(w, r, "get schedule", err)
		return
	}
	week, err := h.schedules.Week(r.Context(), doctorID)
	if err != nil {
		h.writeError(w, r, "get schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, weekToDTO(doctorID, week))
}

func (h *Handler) putSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	windows, err := windowsFromDTO(req)
	if err != nil {
		h.writeError(w, r, "replace schedule", err)
		return
	}
	doctorID, err := h.doctors.ResolveDoctor(r.Context(), strings.TrimSpace(req.DoctorID))
	if err != nil {
		h.writeError(w, r, "replace schedule", err)
		return
	}
	if err := h.schedules.ReplaceWeek(r.Context(), doctorID, windows); err != nil {
		h.writeError(w, r, "replace schedule", err)
		return
	}
	week, err := h.schedules.Week(r.Context(), doctorID)
	if err != nil {
		h.writeError(w, r, "get schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, weekToDTO(doctorID, week))
}

func windowsFromDTO(req scheduleDTO) ([]model.ScheduleWindow, error) {
	for i := range req.Days {
		req.Days[i].StartTime = strings.TrimSpace(req.Days[i].StartTime)
		req.Days[i].EndTime = strings.TrimSpace(req.Days[i].EndTime)
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	out := make([]model.ScheduleWindow, 0, len(req.Days))
	for _, d := range req.Days {
		out = append(out, model.ScheduleWindow{
			DayOfWeek: time.Weekday(d.DayOfWeek),
			Start:     clockOrMidnight(d.StartTime),
			End:       clockOrMidnight(d.EndTime),
			Enabled:   d.Enabled,
		})
	}
	return out, nil
}

// clockOrMidnight parses an already validated HH:MM; empty means 00:00.
func clockOrMidnight(raw string) model.TimeOfDay {
	t, _ := model.ParseTimeOfDay(raw)
	return t
}

func weekToDTO(doctorID string, week model.Week) scheduleDTO {
	out := scheduleDTO{DoctorID: doctorID, Days: make([]windowDTO, 0, len(week))}
	for _, w := range week {
		out.Days = append(out.Days, windowDTO{
			DayOfWeek: int(w.DayOfWeek),
			StartTime: w.Start.String(),
			EndTime:   w.End.String(),
			Enabled:   w.Enabled,
		})
	}
	return out
}
