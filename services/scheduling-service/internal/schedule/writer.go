package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/validation"
)

type Writer struct {
	store  Store
	cache  *Cache
	logger *slog.Logger
}

func NewWriter(store Store, cache *Cache, logger *slog.Logger) *Writer {
	return &Writer{store: store, cache: cache, logger: logger}
}

// ReplaceWeek stores all seven windows of doctorID atomically. windows must hold exactly one
// entry per weekday, in any order.
func (w *Writer) ReplaceWeek(ctx context.Context, doctorID string, windows []model.ScheduleWindow) error {
	week, err := validateWeek(doctorID, windows)
	if err != nil {
		return err
	}
	if err := w.store.SaveWeek(ctx, doctorID, week[:]); err != nil {
		return err
	}
	if w.cache != nil {
		w.cache.Invalidate(doctorID)
	}
	w.logger.Info("schedule replaced", "doctor_id", doctorID, "enabled_days", enabledDays(week))
	return nil
}

// Week reads the stored windows back, bypassing the cache. Days never saved are reported
// disabled.
func (w *Writer) Week(ctx context.Context, doctorID string) (model.Week, error) {
	return loadWeek(ctx, w.store, doctorID)
}

func validateWeek(doctorID string, windows []model.ScheduleWindow) (model.Week, error) {
	if len(windows) != model.DaysPerWeek {
		return model.Week{}, model.Invalid("schedule", fmt.Sprintf("must contain %d days, got %d", model.DaysPerWeek, len(windows)))
	}
	var (
		week model.Week
		seen [model.DaysPerWeek]bool
	)
	for _, win := range windows {
		if err := validation.Struct(win); err != nil {
			return model.Week{}, err
		}
		if err := win.Validate(); err != nil {
			return model.Week{}, err
		}
		if seen[win.DayOfWeek] {
			return model.Week{}, model.Invalid("dayOfWeek", fmt.Sprintf("%d appears more than once", int(win.DayOfWeek)))
		}
		seen[win.DayOfWeek] = true
		win.DoctorID = doctorID
		week[win.DayOfWeek] = win
	}
	return week, nil
}

func enabledDays(week model.Week) int {
	n := 0
	for _, w := range week {
		if w.Enabled {
			n++
		}
	}
	return n
}
