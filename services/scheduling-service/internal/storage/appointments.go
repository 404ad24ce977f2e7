package storage

import (
	"context"
	"time"

	"github.com/fitoclin/fitoclin/libs/db"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/outbox"
	"github.com/jackc/pgx/v5"
)

type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	now    func() time.Time
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo, now: time.Now}
}

const appointmentColumns = `
	id::text, doctor_id::text, patient_id::text, starts_at, status, type,
	COALESCE(meet_link, ''), COALESCE(notes, ''), COALESCE(cancel_reason, ''), canceled_at, created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.StartsAt,
		&a.Status,
		&a.Type,
		&a.MeetLink,
		&a.Notes,
		&a.CancelReason,
		&a.CanceledAt,
		&a.CreatedAt,
	)
	return a, err
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AppointmentRepository) ListBlocking(ctx context.Context, doctorID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
			AND status <> 'CANCELED'
			AND starts_at >= $2
			AND starts_at < $3
		ORDER BY starts_at ASC
	`, doctorID, from, to)
	if err != nil {
		return nil, model.Persistence("list booked appointments", err)
	}
	appts, err := collectAppointments(rows)
	if err != nil {
		return nil, model.Persistence("list booked appointments", err)
	}
	return appts, nil
}

// List returns appointments with from <= StartsAt < to, canceled ones included. Empty ids
// match every doctor or patient.
func (r *AppointmentRepository) List(ctx context.Context, doctorID, patientID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1 = '' OR doctor_id::text = $1)
			AND ($2 = '' OR patient_id::text = $2)
			AND starts_at >= $3
			AND starts_at < $4
		ORDER BY starts_at ASC
	`, doctorID, patientID, from, to)
	if err != nil {
		return nil, model.Persistence("list appointments", err)
	}
	appts, err := collectAppointments(rows)
	if err != nil {
		return nil, model.Persistence("list appointments", err)
	}
	return appts, nil
}

// Create inserts a SCHEDULED appointment together with its booked event. A live appointment
// already holding the slot yields model.ErrSlotUnavailable.
func (r *AppointmentRepository) Create(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	appt.Status = model.StatusScheduled
	ev, err := outbox.AppointmentEvent(outbox.TopicAppointmentBooked, appt, r.now())
	if err != nil {
		return model.Appointment{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, model.Persistence("begin booking tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, starts_at, status, type, meet_link, notes)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))
		RETURNING created_at
	`, appt.ID, appt.DoctorID, appt.PatientID, appt.StartsAt, appt.Status, appt.Type, appt.MeetLink, appt.Notes).Scan(&appt.CreatedAt)
	if err != nil {
		if IsConflict(err, slotIndexName) {
			return model.Appointment{}, model.ErrSlotUnavailable
		}
		if field, ok := invalidReference(err); ok {
			return model.Appointment{}, model.Invalid(field, "is not a known user")
		}
		return model.Appointment{}, model.Persistence("insert appointment", err)
	}
	if err := r.outbox.Insert(ctx, tx, ev); err != nil {
		return model.Appointment{}, model.Persistence("insert outbox event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		if IsConflict(err, slotIndexName) {
			return model.Appointment{}, model.ErrSlotUnavailable
		}
		return model.Appointment{}, model.Persistence("commit booking", err)
	}
	return appt, nil
}

// Cancel locks the appointment, lets authorize veto, and marks it CANCELED with a canceled
// event. Canceling twice returns the stored row without a second event.
func (r *AppointmentRepository) Cancel(ctx context.Context, id, reason string, authorize func(model.Appointment) error) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, model.Persistence("begin cancel tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if IsNotFound(err) || isBadUUID(err) {
			return model.Appointment{}, model.ErrNotFound
		}
		return model.Appointment{}, model.Persistence("lock appointment", err)
	}
	if authorize != nil {
		if err := authorize(appt); err != nil {
			return model.Appointment{}, err
		}
	}
	if appt.Status == model.StatusCanceled {
		return appt, nil
	}

	var canceledAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'CANCELED',
			canceled_at = now(),
			cancel_reason = NULLIF($2, '')
		WHERE id = $1
		RETURNING canceled_at
	`, id, reason).Scan(&canceledAt)
	if err != nil {
		return model.Appointment{}, model.Persistence("cancel appointment", err)
	}
	appt.Status = model.StatusCanceled
	appt.CancelReason = reason
	appt.CanceledAt = &canceledAt

	ev, err := outbox.AppointmentEvent(outbox.TopicAppointmentCanceled, appt, canceledAt)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := r.outbox.Insert(ctx, tx, ev); err != nil {
		return model.Appointment{}, model.Persistence("insert outbox event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, model.Persistence("commit cancel", err)
	}
	return appt, nil
}
