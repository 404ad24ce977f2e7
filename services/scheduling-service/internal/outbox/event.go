package outbox

import (
	"encoding/json"
	"time"

	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

// Topics. The Kafka topic name equals the event type.
const (
	TopicAppointmentBooked   = "fitoclin.appointment.booked.v1"
	TopicAppointmentCanceled = "fitoclin.appointment.canceled.v1"
	TopicScheduleChanged     = "fitoclin.schedule.changed.v1"
)

const (
	AggregateAppointment = "appointment"
	AggregateSchedule    = "schedule"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type AppointmentPayload struct {
	AppointmentID string    `json:"appointment_id"`
	DoctorID      string    `json:"doctor_id"`
	PatientID     string    `json:"patient_id"`
	StartsAt      time.Time `json:"starts_at"`
	Status        string    `json:"status"`
	Type          string    `json:"type"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type SchedulePayload struct {
	DoctorID   string    `json:"doctor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func AppointmentEvent(eventType string, a model.Appointment, at time.Time) (Event, error) {
	payload, err := json.Marshal(AppointmentPayload{
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		StartsAt:      a.StartsAt.UTC(),
		Status:        string(a.Status),
		Type:          string(a.Type),
		Reason:        a.CancelReason,
		OccurredAt:    at.UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   a.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}

// ScheduleChangedEvent is keyed by doctor so all changes of one schedule land on one partition.
func ScheduleChangedEvent(doctorID string, at time.Time) (Event, error) {
	payload, err := json.Marshal(SchedulePayload{DoctorID: doctorID, OccurredAt: at.UTC()})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateSchedule,
		AggregateID:   doctorID,
		EventType:     TopicScheduleChanged,
		Payload:       payload,
	}, nil
}
