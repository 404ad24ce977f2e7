package model

import "time"

// DaysPerWeek is the number of ScheduleWindow rows a doctor has after the first save.
const DaysPerWeek = 7

// ScheduleWindow is the recurring availability for one weekday. Field ranges are checked by
// the validate tags; Validate covers the rule between Start and End.
type ScheduleWindow struct {
	DoctorID  string       `json:"doctorId"`
	DayOfWeek time.Weekday `json:"dayOfWeek" validate:"min=0,max=6"`
	Start     TimeOfDay    `json:"startTime" validate:"min=0,max=1439"`
	End       TimeOfDay    `json:"endTime" validate:"min=0,max=1439"`
	Enabled   bool         `json:"enabled"`
}

// Validate applies the write-time ordering rule. The read path tolerates windows that fail it.
func (w ScheduleWindow) Validate() error {
	if w.Enabled && w.Start >= w.End {
		return Invalid("endTime", "must be after startTime")
	}
	return nil
}

// Week is the 7 windows of one doctor indexed by weekday.
type Week [DaysPerWeek]ScheduleWindow

// ClosedWeek returns a week with every day disabled.
func ClosedWeek(doctorID string) Week {
	var w Week
	for d := range w {
		w[d] = ScheduleWindow{DoctorID: doctorID, DayOfWeek: time.Weekday(d)}
	}
	return w
}
