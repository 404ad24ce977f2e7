package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitoclin/fitoclin/libs/httpx"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/locker"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/validation"
)

// Request is a booking attempt. Date and Time are clinic-local.
type Request struct {
	PatientID string                `json:"patientId"`
	DoctorID  string                `json:"doctorId"`
	Date      string                `json:"date" validate:"required,calendar_date"`
	Time      string                `json:"time" validate:"required,clock"`
	Notes     string                `json:"notes" validate:"max=2000"`
	MeetLink  string                `json:"meetLink" validate:"omitempty,url,max=500"`
	Type      model.AppointmentType `json:"type" validate:"omitempty,oneof=ONLINE IN_PERSON"`
}

type Store interface {
	Create(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	Cancel(ctx context.Context, id, reason string, authorize func(model.Appointment) error) (model.Appointment, error)
	List(ctx context.Context, doctorID, patientID string, from, to time.Time) ([]model.Appointment, error)
}

type SlotChecker interface {
	Offers(ctx context.Context, doctorID string, day model.CalendarDate, t model.TimeOfDay) (bool, error)
}

type DoctorResolver interface {
	ResolveDoctor(ctx context.Context, doctorID string) (string, error)
}

type ContactBook interface {
	Contact(ctx context.Context, userID string) (model.User, error)
}

type SlotLocker interface {
	TryLock(ctx context.Context, key string) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
}

type Notifier interface {
	AppointmentBooked(ctx context.Context, appt model.Appointment, patient model.User) error
}

type Config struct {
	Location      *time.Location
	NotifyTimeout time.Duration
	// MaxListDays bounds the range accepted by List.
	MaxListDays int
	NewID       func() string
}

type Committer struct {
	store    Store
	slots    SlotChecker
	doctors  DoctorResolver
	contacts ContactBook
	locks    SlotLocker
	notifier Notifier
	logger   *slog.Logger
	cfg      Config

	notifications sync.WaitGroup
}

// NewCommitter wires the booking path. locks and notifier may be nil.
func NewCommitter(store Store, slots SlotChecker, doctors DoctorResolver, contacts ContactBook, locks SlotLocker, notifier Notifier, logger *slog.Logger, cfg Config) *Committer {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 15 * time.Second
	}
	if cfg.MaxListDays <= 0 {
		cfg.MaxListDays = 366
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Committer{
		store:    store,
		slots:    slots,
		doctors:  doctors,
		contacts: contacts,
		locks:    locks,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
	}
}

// Create books req on behalf of caller. Patients book for themselves; only an ADMIN may name
// another patient or set a meet link.
func (c *Committer) Create(ctx context.Context, caller model.Identity, req Request) (model.Appointment, error) {
	req, err := authorizeRequest(caller, req)
	if err != nil {
		return model.Appointment{}, err
	}
	req.Notes = strings.TrimSpace(req.Notes)
	req.MeetLink = strings.TrimSpace(req.MeetLink)
	if req.PatientID == "" {
		return model.Appointment{}, model.Invalid("patientId", "is required")
	}
	if err := validation.Struct(req); err != nil {
		return model.Appointment{}, err
	}
	if caller.IsAdmin() {
		if err := c.checkPatient(ctx, req.PatientID); err != nil {
			return model.Appointment{}, err
		}
	}
	day, err := model.ParseCalendarDate(req.Date)
	if err != nil {
		return model.Appointment{}, err
	}
	clock, err := model.ParseTimeOfDay(req.Time)
	if err != nil {
		return model.Appointment{}, err
	}
	if req.Type == "" {
		req.Type = model.TypeOnline
	}

	doctorID, err := c.doctors.ResolveDoctor(ctx, req.DoctorID)
	if err != nil {
		return model.Appointment{}, err
	}

	offered, err := c.slots.Offers(ctx, doctorID, day, clock)
	if err != nil {
		if errors.Is(err, model.ErrScheduleNotConfigured) {
			return model.Appointment{}, fmt.Errorf("%w: %v", model.ErrDoctorNotFound, err)
		}
		return model.Appointment{}, err
	}
	if !offered {
		return model.Appointment{}, fmt.Errorf("%w: %s %s is not offered", model.ErrSlotUnavailable, day, clock)
	}

	startsAt := day.At(clock, c.cfg.Location)
	release, err := c.lockSlot(ctx, doctorID, startsAt)
	if err != nil {
		return model.Appointment{}, err
	}
	defer release()

	appt, err := c.store.Create(ctx, model.Appointment{
		ID:        c.cfg.NewID(),
		DoctorID:  doctorID,
		PatientID: req.PatientID,
		StartsAt:  startsAt,
		Status:    model.StatusScheduled,
		Type:      req.Type,
		MeetLink:  req.MeetLink,
		Notes:     req.Notes,
	})
	if err != nil {
		return model.Appointment{}, err
	}

	c.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"patient_id", appt.PatientID,
		"starts_at", appt.StartsAt.Format(time.RFC3339),
		"request_id", httpx.RequestIDFromContext(ctx),
	)
	c.notifyBooked(ctx, appt)
	return appt, nil
}

// Cancel moves an appointment to CANCELED. Repeating it is a no-op.
func (c *Committer) Cancel(ctx context.Context, caller model.Identity, appointmentID, reason string) (model.Appointment, error) {
	if caller.UserID == "" {
		return model.Appointment{}, model.ErrUnauthenticated
	}
	appointmentID = strings.TrimSpace(appointmentID)
	if appointmentID == "" {
		return model.Appointment{}, model.Invalid("appointmentId", "is required")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > 500 {
		return model.Appointment{}, model.Invalid("reason", "is too long")
	}

	appt, err := c.store.Cancel(ctx, appointmentID, reason, func(a model.Appointment) error {
		if !caller.IsAdmin() && a.PatientID != caller.UserID {
			return model.ErrForbidden
		}
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	c.logger.Info("appointment canceled", "appointment_id", appt.ID, "by", caller.UserID)
	return appt, nil
}

// List returns the appointments between from and to inclusive. Patients only see their own.
func (c *Committer) List(ctx context.Context, caller model.Identity, from, to model.CalendarDate) ([]model.Appointment, error) {
	if caller.UserID == "" {
		return nil, model.ErrUnauthenticated
	}
	if to.Before(from) {
		return nil, model.Invalid("to", "must not be before from")
	}
	if from.AddDays(c.cfg.MaxListDays).Before(to) {
		return nil, model.Invalid("to", fmt.Sprintf("range must not exceed %d days", c.cfg.MaxListDays))
	}

	doctorID, err := c.doctors.ResolveDoctor(ctx, "")
	if err != nil {
		return nil, err
	}
	patientID := ""
	if !caller.IsAdmin() {
		patientID = caller.UserID
	}
	return c.store.List(ctx, doctorID, patientID, from.Start(c.cfg.Location), to.AddDays(1).Start(c.cfg.Location))
}

// Wait blocks until in-flight confirmation e-mails finish.
func (c *Committer) Wait() {
	c.notifications.Wait()
}

func authorizeRequest(caller model.Identity, req Request) (Request, error) {
	if caller.UserID == "" {
		return Request{}, model.ErrUnauthenticated
	}
	req.PatientID = strings.TrimSpace(req.PatientID)
	if caller.IsAdmin() {
		return req, nil
	}
	if req.PatientID != "" && req.PatientID != caller.UserID {
		return Request{}, fmt.Errorf("%w: patients book for themselves", model.ErrForbidden)
	}
	if strings.TrimSpace(req.MeetLink) != "" {
		return Request{}, fmt.Errorf("%w: meet link is set by the clinic", model.ErrForbidden)
	}
	req.PatientID = caller.UserID
	return req, nil
}

// checkPatient rejects an admin-supplied patient id that is malformed or does not belong to
// a PATIENT.
func (c *Committer) checkPatient(ctx context.Context, id string) error {
	if err := validation.Var("patientId", id, "uuid"); err != nil {
		return err
	}
	if c.contacts == nil {
		return nil
	}
	u, err := c.contacts.Contact(ctx, id)
	if errors.Is(err, model.ErrNotFound) || (err == nil && u.Role != model.RolePatient) {
		return model.Invalid("patientId", "is not a known patient")
	}
	return err
}

// lockSlot takes the fast-path slot lock. A Redis failure is logged and the insert proceeds;
// the unique index still decides.
func (c *Committer) lockSlot(ctx context.Context, doctorID string, startsAt time.Time) (func(), error) {
	if c.locks == nil {
		return func() {}, nil
	}
	key := locker.SlotKey(doctorID, startsAt)
	token, ok, err := c.locks.TryLock(ctx, key)
	if err != nil {
		c.logger.Warn("slot lock unavailable", "err", err, "key", key)
		return func() {}, nil
	}
	if !ok {
		return nil, fmt.Errorf("%w: slot is being booked", model.ErrSlotUnavailable)
	}
	return func() {
		if err := c.locks.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			c.logger.Warn("slot unlock failed", "err", err, "key", key)
		}
	}, nil
}

func (c *Committer) notifyBooked(ctx context.Context, appt model.Appointment) {
	if c.notifier == nil || c.contacts == nil {
		return
	}
	c.notifications.Add(1)
	go func() {
		defer c.notifications.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.NotifyTimeout)
		defer cancel()

		patient, err := c.contacts.Contact(nctx, appt.PatientID)
		if err != nil {
			c.logger.Warn("confirmation skipped: patient lookup failed", "err", err, "appointment_id", appt.ID)
			return
		}
		if err := c.notifier.AppointmentBooked(nctx, appt, patient); err != nil {
			c.logger.Warn("confirmation e-mail failed", "err", err, "appointment_id", appt.ID)
		}
	}()
}
