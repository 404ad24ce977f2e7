package availability

import (
	"time"

	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

// NoCutoff disables the "later than now" filter of AvailableSlots.
const NoCutoff model.TimeOfDay = -1

// AvailableSlots returns slot starts from start, stepping by step, that begin strictly before
// end, are not in busy and are strictly later than cutoff. start >= end yields no slots.
//
// The result is ascending.
func AvailableSlots(start, end model.TimeOfDay, step time.Duration, busy map[model.TimeOfDay]struct{}, cutoff model.TimeOfDay) []model.TimeOfDay {
	stepMins := model.TimeOfDay(step / time.Minute)
	if stepMins <= 0 {
		return nil
	}
	if start >= end {
		return nil
	}

	var slots []model.TimeOfDay
	for t := start; t < end; t += stepMins {
		if cutoff != NoCutoff && t <= cutoff {
			continue
		}
		if _, taken := busy[t]; taken {
			continue
		}
		slots = append(slots, t)
	}
	return slots
}

// BusySet collects the wall-clock start of every appointment that still holds its slot.
func BusySet(appts []model.Appointment, loc *time.Location) map[model.TimeOfDay]struct{} {
	busy := make(map[model.TimeOfDay]struct{}, len(appts))
	for _, a := range appts {
		if !a.Blocks() {
			continue
		}
		busy[model.ClockOf(a.StartsAt, loc)] = struct{}{}
	}
	return busy
}
