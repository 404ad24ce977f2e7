package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fitoclin/fitoclin/libs/httpx"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

const (
	msgUnauthenticated  = "access denied"
	msgForbidden        = "forbidden"
	msgInvalid          = "invalid input"
	msgUnavailableToday = "service unavailable this day"
	msgUnavailable      = "service unavailable"
	msgSlotTaken        = "that time was just taken, please choose another"
	msgNotFound         = "appointment not found"
	msgRetry            = "please try again"
	msgMethodNotAllowed = "method not allowed"
	msgInvalidJSON      = "invalid json body"
)

type errorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: httpx.RequestIDFromContext(r.Context())})
}

// statusFor maps a domain error to its HTTP status and user-facing message.
func statusFor(err error) (int, errorResponse) {
	var verr *model.ValidationError
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{Error: msgUnauthenticated}
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: msgForbidden}
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field}
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, errorResponse{Error: msgInvalid}
	case errors.Is(err, model.ErrSlotUnavailable):
		return http.StatusConflict, errorResponse{Error: msgSlotTaken}
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: msgNotFound}
	case errors.Is(err, model.ErrDoctorNotFound), errors.Is(err, model.ErrScheduleNotConfigured):
		return http.StatusServiceUnavailable, errorResponse{Error: msgUnavailable}
	default:
		return http.StatusInternalServerError, errorResponse{Error: msgRetry}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, body := statusFor(err)
	body.RequestID = httpx.RequestIDFromContext(r.Context())

	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, op+" failed",
		"err", err,
		"status", status,
		"request_id", body.RequestID,
	)
	writeJSON(w, status, body)
}
