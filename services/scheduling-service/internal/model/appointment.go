package model

import "time"

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusCanceled  AppointmentStatus = "CANCELED"
	StatusCompleted AppointmentStatus = "COMPLETED"
)

type AppointmentType string

const (
	TypeOnline   AppointmentType = "ONLINE"
	TypeInPerson AppointmentType = "IN_PERSON"
)

type Appointment struct {
	ID           string
	DoctorID     string
	PatientID    string
	StartsAt     time.Time
	Status       AppointmentStatus
	Type         AppointmentType
	MeetLink     string
	Notes        string
	CancelReason string
	CanceledAt   *time.Time
	CreatedAt    time.Time
}

// Blocks reports whether the appointment occupies its slot.
func (a Appointment) Blocks() bool {
	return a.Status != StatusCanceled
}

// EffectiveStatus reports COMPLETED for scheduled appointments already in the past.
func (a Appointment) EffectiveStatus(now time.Time) AppointmentStatus {
	if a.Status == StatusScheduled && a.StartsAt.Before(now) {
		return StatusCompleted
	}
	return a.Status
}
