package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fitoclin/fitoclin/libs/auth"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/availability"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/booking"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

type SlotLister interface {
	AvailableSlots(ctx context.Context, doctorID string, date string) (availability.Result, error)
}

type Booker interface {
	Create(ctx context.Context, caller model.Identity, req booking.Request) (model.Appointment, error)
	Cancel(ctx context.Context, caller model.Identity, appointmentID, reason string) (model.Appointment, error)
	List(ctx context.Context, caller model.Identity, from, to model.CalendarDate) ([]model.Appointment, error)
}

type ScheduleEditor interface {
	ReplaceWeek(ctx context.Context, doctorID string, windows []model.ScheduleWindow) error
	Week(ctx context.Context, doctorID string) (model.Week, error)
}

type DoctorResolver interface {
	ResolveDoctor(ctx context.Context, doctorID string) (string, error)
}

type Config struct {
	Location *time.Location
	// DefaultListDays is the span of GET /api/v1/appointments without a "to" parameter.
	DefaultListDays int
	Now             func() time.Time
}

type Handler struct {
	slots     SlotLister
	bookings  Booker
	schedules ScheduleEditor
	doctors   DoctorResolver
	logger    *slog.Logger
	cfg       Config
}

func New(slots SlotLister, bookings Booker, schedules ScheduleEditor, doctors DoctorResolver, logger *slog.Logger, cfg Config) *Handler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DefaultListDays <= 0 {
		cfg.DefaultListDays = 30
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		slots:     slots,
		bookings:  bookings,
		schedules: schedules,
		doctors:   doctors,
		logger:    logger,
		cfg:       cfg,
	}
}

// Register mounts the API on mux. Every route requires a verified bearer token; the
// schedule is ADMIN only.
func (h *Handler) Register(mux *http.ServeMux, verifier *auth.Verifier) {
	authed := RequireIdentity(verifier)
	mux.Handle("/api/v1/slots", authed(http.HandlerFunc(h.Slots)))
	mux.Handle("/api/v1/appointments", authed(http.HandlerFunc(h.Appointments)))
	mux.Handle("/api/v1/appointments/cancel", authed(http.HandlerFunc(h.CancelAppointment)))
	mux.Handle("/api/v1/schedule", authed(RequireRole(http.HandlerFunc(h.Schedule), model.RoleAdmin)))
}
