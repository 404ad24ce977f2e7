package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

// Confirmations e-mails the patient after a booking.
type Confirmations struct {
	sender Sender
	loc    *time.Location
}

func NewConfirmations(sender Sender, loc *time.Location) *Confirmations {
	if loc == nil {
		loc = time.UTC
	}
	return &Confirmations{sender: sender, loc: loc}
}

// AppointmentBooked sends the confirmation. A patient without an address is skipped.
// Failures are wrapped in model.ErrNotification.
func (c *Confirmations) AppointmentBooked(ctx context.Context, appt model.Appointment, patient model.User) error {
	if strings.TrimSpace(patient.Email) == "" {
		return nil
	}
	subject, body := confirmationMessage(appt, patient, c.loc)

	if err := c.sender.Send(ctx, Message{To: patient.Email, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("send confirmation: %w", errors.Join(model.ErrNotification, err))
	}
	return nil
}

func confirmationMessage(appt model.Appointment, patient model.User, loc *time.Location) (string, string) {
	local := appt.StartsAt.In(loc)
	day := model.DateOf(local, loc)
	clock := model.ClockOf(local, loc)

	subject := fmt.Sprintf("Appointment confirmed for %s at %s", day, clock)

	var b strings.Builder
	name := patient.Name
	if name == "" {
		name = "patient"
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Your appointment is confirmed for %s at %s.\n", day, clock)
	switch {
	case appt.Type == model.TypeInPerson:
		b.WriteString("The consultation will take place at the clinic.\n")
	case appt.MeetLink != "":
		fmt.Fprintf(&b, "Join online: %s\n", appt.MeetLink)
	default:
		b.WriteString("The online meeting link will be sent before the consultation.\n")
	}
	b.WriteString("\nTo cancel, use the appointments page.\n")
	return subject, b.String()
}
