package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

type slotsResponse struct {
	Date     string   `json:"date"`
	DoctorID string   `json:"doctorId,omitempty"`
	Slots    []string `json:"slots"`
	Message  string   `json:"message,omitempty"`
}

func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMessage(w, r, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	res, err := h.slots.AvailableSlots(r.Context(), strings.TrimSpace(q.Get("doctor_id")), date)
	if err != nil {
		if errors.Is(err, model.ErrScheduleNotConfigured) {
			h.logger.Warn("slots requested without a configured doctor", "err", err)
			writeJSON(w, http.StatusOK, slotsResponse{Date: date, Slots: []string{}, Message: msgUnavailableToday})
			return
		}
		h.writeError(w, r, "list slots", err)
		return
	}

	writeJSON(w, http.StatusOK, slotsResponse{
		Date:     res.Date.String(),
		DoctorID: res.DoctorID,
		Slots:    res.SlotStrings(),
		Message:  res.Message,
	})
}
