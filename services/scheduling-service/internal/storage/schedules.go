package storage

import (
	"context"
	"time"

	"github.com/fitoclin/fitoclin/libs/db"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/outbox"
)

type ScheduleRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	now    func() time.Time
}

func NewScheduleRepository(pool *db.Pool, outboxRepo *outbox.Repository) *ScheduleRepository {
	return &ScheduleRepository{pool: pool, outbox: outboxRepo, now: time.Now}
}

// LoadWeek returns the stored windows of doctorID ordered by weekday. Days never saved are
// absent.
func (r *ScheduleRepository) LoadWeek(ctx context.Context, doctorID string) ([]model.ScheduleWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doctor_id::text, day_of_week, start_minute, end_minute, enabled
		FROM schedule_windows
		WHERE doctor_id = $1
		ORDER BY day_of_week ASC
	`, doctorID)
	if err != nil {
		if isBadUUID(err) {
			return nil, nil
		}
		return nil, model.Persistence("load schedule", err)
	}
	defer rows.Close()

	var out []model.ScheduleWindow
	for rows.Next() {
		var (
			w          model.ScheduleWindow
			day        int16
			start, end int16
		)
		if err := rows.Scan(&w.DoctorID, &day, &start, &end, &w.Enabled); err != nil {
			return nil, model.Persistence("scan schedule", err)
		}
		w.DayOfWeek = time.Weekday(day)
		w.Start = model.TimeOfDay(start)
		w.End = model.TimeOfDay(end)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		if isBadUUID(err) {
			return nil, nil
		}
		return nil, model.Persistence("load schedule", err)
	}
	return out, nil
}

// SaveWeek upserts every window of doctorID and records a schedule change event in one
// transaction.
func (r *ScheduleRepository) SaveWeek(ctx context.Context, doctorID string, windows []model.ScheduleWindow) error {
	ev, err := outbox.ScheduleChangedEvent(doctorID, r.now())
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Persistence("begin schedule tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, w := range windows {
		_, err := tx.Exec(ctx, `
			INSERT INTO schedule_windows (doctor_id, day_of_week, start_minute, end_minute, enabled)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (doctor_id, day_of_week)
			DO UPDATE SET start_minute = EXCLUDED.start_minute,
			              end_minute = EXCLUDED.end_minute,
			              enabled = EXCLUDED.enabled,
			              updated_at = now()
		`, doctorID, int16(w.DayOfWeek), int16(w.Start), int16(w.End), w.Enabled)
		if err != nil {
			return model.Persistence("upsert schedule window", err)
		}
	}
	if err := r.outbox.Insert(ctx, tx, ev); err != nil {
		return model.Persistence("insert outbox event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Persistence("commit schedule", err)
	}
	return nil
}
