package schedule

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

const DefaultCacheSize = 64

// Store persists ScheduleWindow rows.
type Store interface {
	LoadWeek(ctx context.Context, doctorID string) ([]model.ScheduleWindow, error)
	SaveWeek(ctx context.Context, doctorID string, windows []model.ScheduleWindow) error
}

// Cache keeps the assembled Week of recently queried doctors. Entries live until
// Invalidate; writers and the change-event consumer call it.
type Cache struct {
	store Store
	weeks *lru.Cache[string, model.Week]
}

func NewCache(store Store, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	weeks, err := lru.New[string, model.Week](size)
	if err != nil {
		return nil, fmt.Errorf("schedule cache: %w", err)
	}
	return &Cache{store: store, weeks: weeks}, nil
}

func (c *Cache) Week(ctx context.Context, doctorID string) (model.Week, error) {
	if w, ok := c.weeks.Get(doctorID); ok {
		return w, nil
	}
	w, err := loadWeek(ctx, c.store, doctorID)
	if err != nil {
		return model.Week{}, err
	}
	c.weeks.Add(doctorID, w)
	return w, nil
}

func (c *Cache) Invalidate(doctorID string) {
	c.weeks.Remove(doctorID)
}

func (c *Cache) Len() int { return c.weeks.Len() }

// loadWeek overlays the stored rows on a closed week so missing days read as disabled.
func loadWeek(ctx context.Context, store Store, doctorID string) (model.Week, error) {
	rows, err := store.LoadWeek(ctx, doctorID)
	if err != nil {
		return model.Week{}, err
	}
	week := model.ClosedWeek(doctorID)
	for _, w := range rows {
		if w.DayOfWeek < 0 || int(w.DayOfWeek) >= model.DaysPerWeek {
			continue
		}
		week[w.DayOfWeek] = w
	}
	return week, nil
}
