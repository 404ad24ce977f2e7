package notify

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

type recordingSender struct {
	msgs []Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.msgs = append(s.msgs, msg)
	return s.err
}

var bookedAppt = model.Appointment{
	ID:       "appt-1",
	StartsAt: time.Date(2025, 3, 14, 13, 0, 0, 0, time.UTC),
	Type:     model.TypeOnline,
	MeetLink: "https://meet.example.com/abc",
}

func TestAppointmentBookedFormatsClinicTime(t *testing.T) {
	s := &recordingSender{}
	c := NewConfirmations(s, time.FixedZone("BRT", -3*60*60))

	err := c.AppointmentBooked(context.Background(), bookedAppt, model.User{Name: "Ana", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("AppointmentBooked failed: %v", err)
	}
	if len(s.msgs) != 1 || s.msgs[0].To != "ana@example.com" {
		t.Fatalf("unexpected messages %+v", s.msgs)
	}
	if !strings.Contains(s.msgs[0].Subject, "2025-03-14 at 10:00") {
		t.Fatalf("expected clinic-local time in subject, got %q", s.msgs[0].Subject)
	}
	if !strings.Contains(s.msgs[0].Body, bookedAppt.MeetLink) {
		t.Fatalf("expected meet link in body, got %q", s.msgs[0].Body)
	}
}

func TestAppointmentBookedSkipsMissingAddress(t *testing.T) {
	s := &recordingSender{}
	c := NewConfirmations(s, nil)
	if err := c.AppointmentBooked(context.Background(), bookedAppt, model.User{Name: "Ana"}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(s.msgs) != 0 {
		t.Fatal("nothing should be sent without an address")
	}
}

func TestAppointmentBookedWrapsFailures(t *testing.T) {
	c := NewConfirmations(&recordingSender{err: errors.New("connection refused")}, nil)
	err := c.AppointmentBooked(context.Background(), bookedAppt, model.User{Email: "ana@example.com"})
	if !errors.Is(err, model.ErrNotification) {
		t.Fatalf("expected ErrNotification, got %v", err)
	}
}

func TestSMTPSenderRejectsHeaderInjection(t *testing.T) {
	s := NewSMTPSender("localhost", "1025", "")
	err := s.Send(context.Background(), Message{To: "a@example.com\r\nBcc: x@example.com", Subject: "hi"})
	if !errors.Is(err, errHeaderInjection) {
		t.Fatalf("expected header injection to be rejected, got %v", err)
	}
	if s.from != "no-reply@fitoclin.local" {
		t.Fatalf("expected default sender address, got %q", s.from)
	}
}

// fakeSMTP accepts one message and returns the DATA section.
func fakeSMTP(t *testing.T) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	data := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		reply("220 fake ESMTP")
		var body strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					data <- body.String()
					reply("250 queued")
					continue
				}
				body.WriteString(line)
				continue
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 fake")
			case strings.HasPrefix(cmd, "DATA"):
				inData = true
				reply("354 go ahead")
			case strings.HasPrefix(cmd, "QUIT"):
				reply("221 bye")
				return
			default:
				reply("250 ok")
			}
		}
	}()
	return ln.Addr().String(), data
}

func TestSMTPSenderDelivers(t *testing.T) {
	addr, data := fakeSMTP(t)
	host, port, _ := net.SplitHostPort(addr)
	s := NewSMTPSender(host, port, "clinic@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Send(ctx, Message{To: "ana@example.com", Subject: "Confirmed", Body: "line one\nline two"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case got := <-data:
		if !strings.Contains(got, "Subject: Confirmed\r\n") || !strings.Contains(got, "line one\r\nline two") {
			t.Fatalf("unexpected message %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
