package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

const (
	MessageClosed = "no service this day"
	MessagePast   = "date is in the past"
)

// DefaultSlotDuration is used when Config.SlotDuration is zero.
const DefaultSlotDuration = 60 * time.Minute

type ScheduleReader interface {
	Week(ctx context.Context, doctorID string) (model.Week, error)
}

type AppointmentReader interface {
	// ListBlocking returns non-canceled appointments of doctorID with from <= StartsAt < to.
	ListBlocking(ctx context.Context, doctorID string, from, to time.Time) ([]model.Appointment, error)
}

type DoctorResolver interface {
	ResolveDoctor(ctx context.Context, doctorID string) (string, error)
}

type Config struct {
	Location     *time.Location
	SlotDuration time.Duration
	Now          func() time.Time
}

type Calculator struct {
	schedules    ScheduleReader
	appointments AppointmentReader
	doctors      DoctorResolver
	loc          *time.Location
	slotDuration time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

func NewCalculator(schedules ScheduleReader, appointments AppointmentReader, doctors DoctorResolver, logger *slog.Logger, cfg Config) *Calculator {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = DefaultSlotDuration
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Calculator{
		schedules:    schedules,
		appointments: appointments,
		doctors:      doctors,
		loc:          cfg.Location,
		slotDuration: cfg.SlotDuration,
		now:          cfg.Now,
		logger:       logger,
	}
}

// Result is the outcome of an availability query. An empty Slots with a Message is a
// normal answer, not an error.
type Result struct {
	DoctorID string
	Date     model.CalendarDate
	Slots    []model.TimeOfDay
	Message  string
}

// SlotStrings formats Slots as HH:MM.
func (r Result) SlotStrings() []string {
	out := make([]string, 0, len(r.Slots))
	for _, s := range r.Slots {
		out = append(out, s.String())
	}
	return out
}

// AvailableSlots lists the bookable times for doctorID on date (YYYY-MM-DD, clinic-local).
// An empty doctorID means the clinic's doctor.
func (c *Calculator) AvailableSlots(ctx context.Context, doctorID string, date string) (Result, error) {
	day, err := model.ParseCalendarDate(date)
	if err != nil {
		return Result{}, err
	}
	return c.SlotsOn(ctx, doctorID, day)
}

// SlotsOn is AvailableSlots for an already parsed date.
func (c *Calculator) SlotsOn(ctx context.Context, doctorID string, day model.CalendarDate) (Result, error) {
	resolved, err := c.doctors.ResolveDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, model.ErrDoctorNotFound) {
			return Result{}, fmt.Errorf("%w: %v", model.ErrScheduleNotConfigured, err)
		}
		return Result{}, err
	}
	res := Result{DoctorID: resolved, Date: day}

	now := c.now().In(c.loc)
	today := model.DateOf(now, c.loc)
	if day.Before(today) {
		res.Message = MessagePast
		return res, nil
	}

	week, err := c.schedules.Week(ctx, resolved)
	if err != nil {
		return Result{}, model.Persistence("load schedule", err)
	}
	window := week[day.Weekday()]
	if !window.Enabled {
		res.Message = MessageClosed
		return res, nil
	}

	from := day.Start(c.loc)
	to := day.AddDays(1).Start(c.loc)
	appts, err := c.appointments.ListBlocking(ctx, resolved, from, to)
	if err != nil {
		return Result{}, model.Persistence("load appointments", err)
	}

	cutoff := NoCutoff
	if day == today {
		cutoff = model.ClockOf(now, c.loc)
	}

	res.Slots = AvailableSlots(window.Start, window.End, c.slotDuration, BusySet(appts, c.loc), cutoff)
	if len(res.Slots) == 0 && window.Start >= window.End {
		c.logger.Warn("schedule window is degenerate; treating day as closed",
			"doctor_id", resolved,
			"day_of_week", int(day.Weekday()),
			"start", window.Start.String(),
			"end", window.End.String(),
		)
		res.Message = MessageClosed
	}
	return res, nil
}

// Offers reports whether t is currently a bookable slot for doctorID on day.
func (c *Calculator) Offers(ctx context.Context, doctorID string, day model.CalendarDate, t model.TimeOfDay) (bool, error) {
	res, err := c.SlotsOn(ctx, doctorID, day)
	if err != nil {
		return false, err
	}
	for _, s := range res.Slots {
		if s == t {
			return true, nil
		}
	}
	return false, nil
}
