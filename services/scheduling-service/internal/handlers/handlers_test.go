package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fitoclin/fitoclin/libs/auth"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/availability"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/booking"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

const secret = "test-secret"

type fakeSlots struct {
	res availability.Result
	err error
}

func (f *fakeSlots) AvailableSlots(_ context.Context, _ string, date string) (availability.Result, error) {
	if _, err := model.ParseCalendarDate(date); err != nil {
		return availability.Result{}, err
	}
	return f.res, f.err
}

type fakeBooker struct {
	created model.Appointment
	err     error
	caller  model.Identity
	req     booking.Request
	from    model.CalendarDate
	to      model.CalendarDate
}

func (f *fakeBooker) Create(_ context.Context, caller model.Identity, req booking.Request) (model.Appointment, error) {
	f.caller, f.req = caller, req
	return f.created, f.err
}

func (f *fakeBooker) Cancel(_ context.Context, caller model.Identity, id, _ string) (model.Appointment, error) {
	f.caller = caller
	if f.err != nil {
		return model.Appointment{}, f.err
	}
	a := f.created
	a.ID, a.Status = id, model.StatusCanceled
	return a, nil
}

func (f *fakeBooker) List(_ context.Context, caller model.Identity, from, to model.CalendarDate) ([]model.Appointment, error) {
	f.caller, f.from, f.to = caller, from, to
	return []model.Appointment{f.created}, f.err
}

type fakeSchedules struct {
	week  model.Week
	saved []model.ScheduleWindow
	saves int
	err   error
}

func (f *fakeSchedules) ReplaceWeek(_ context.Context, doctorID string, windows []model.ScheduleWindow) error {
	if f.err != nil {
		return f.err
	}
	f.saved = windows
	f.saves++
	f.week = model.ClosedWeek(doctorID)
	for _, w := range windows {
		w.DoctorID = doctorID
		f.week[w.DayOfWeek] = w
	}
	return nil
}

func (f *fakeSchedules) Week(_ context.Context, doctorID string) (model.Week, error) {
	if f.week[0].DoctorID == "" {
		return model.ClosedWeek(doctorID), nil
	}
	return f.week, nil
}

type fakeDoctors struct{ err error }

func (f fakeDoctors) ResolveDoctor(_ context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if id != "" {
		return id, nil
	}
	return "doc-1", nil
}

type testServer struct {
	mux       *http.ServeMux
	slots     *fakeSlots
	bookings  *fakeBooker
	schedules *fakeSchedules
	doctors   *fakeDoctors
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		mux:       http.NewServeMux(),
		slots:     &fakeSlots{},
		bookings:  &fakeBooker{},
		schedules: &fakeSchedules{},
		doctors:   &fakeDoctors{},
	}
	h := New(ts.slots, ts.bookings, ts.schedules, ts.doctors, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) },
	})
	h.Register(ts.mux, auth.NewVerifier(secret, ""))
	return ts
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	tok, err := auth.Sign(auth.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func (ts *testServer) do(t *testing.T, method, target, tok, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	for _, target := range []string{"/api/v1/slots?date=2025-03-14", "/api/v1/appointments", "/api/v1/schedule"} {
		rec := ts.do(t, http.MethodGet, target, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", target, rec.Code)
		}
		if got := decode[errorResponse](t, rec); got.Error != msgUnauthenticated {
			t.Fatalf("unexpected body %+v", got)
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/slots?date=2025-03-14", "not-a-jwt", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a malformed token, got %d", rec.Code)
	}
	wrong, _ := auth.Sign(auth.Claims{Role: auth.RolePatient, RegisteredClaims: jwt.RegisteredClaims{
		Subject: "pat-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, "other-secret")
	if rec := ts.do(t, http.MethodGet, "/api/v1/slots?date=2025-03-14", wrong, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a foreign signature, got %d", rec.Code)
	}
}

func TestScheduleIsAdminOnly(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/v1/schedule", token(t, "pat-1", auth.RolePatient), "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/v1/schedule", token(t, "doc-1", auth.RoleAdmin), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[scheduleDTO](t, rec)
	if got.DoctorID != "doc-1" || len(got.Days) != model.DaysPerWeek {
		t.Fatalf("unexpected schedule %+v", got)
	}
}

func TestSlots(t *testing.T) {
	ts := newTestServer(t)
	day, _ := model.ParseCalendarDate("2025-03-14")
	ts.slots.res = availability.Result{DoctorID: "doc-1", Date: day, Slots: []model.TimeOfDay{9 * 60, 11 * 60}}
	tok := token(t, "pat-1", auth.RolePatient)

	rec := ts.do(t, http.MethodGet, "/api/v1/slots?date=2025-03-14", tok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[slotsResponse](t, rec)
	if strings.Join(got.Slots, ",") != "09:00,11:00" || got.Date != "2025-03-14" {
		t.Fatalf("unexpected slots %+v", got)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/slots?date=2025-13-40", tok, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Field != "date" {
		t.Fatalf("expected field-level error on date, got %+v", got)
	}

	ts.slots.err = model.ErrScheduleNotConfigured
	rec = ts.do(t, http.MethodGet, "/api/v1/slots?date=2025-03-14", tok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fallback, got %d", rec.Code)
	}
	got = decode[slotsResponse](t, rec)
	if got.Slots == nil || len(got.Slots) != 0 || got.Message != msgUnavailableToday {
		t.Fatalf("expected empty slots with message, got %+v", got)
	}

	ts.slots.err = model.Persistence("load schedule", errors.New("connection reset"))
	rec = ts.do(t, http.MethodGet, "/api/v1/slots?date=2025-03-14", tok, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := rec.Body.String(); strings.Contains(body, "connection reset") {
		t.Fatalf("storage detail leaked to the client: %s", body)
	}
}

func TestCreateAppointmentStatusMapping(t *testing.T) {
	ts := newTestServer(t)
	tok := token(t, "pat-1", auth.RolePatient)
	body := `{"date":"2025-03-14","time":"10:00","notes":"first visit"}`

	ts.bookings.created = model.Appointment{
		ID: "appt-1", DoctorID: "doc-1", PatientID: "pat-1",
		StartsAt: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC), Status: model.StatusScheduled, Type: model.TypeOnline,
	}
	rec := ts.do(t, http.MethodPost, "/api/v1/appointments", tok, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[appointmentResponse](t, rec)
	if got.ID != "appt-1" || got.Date != "2025-03-14" || got.Time != "10:00" || got.Status != "SCHEDULED" {
		t.Fatalf("unexpected response %+v", got)
	}
	if ts.bookings.caller.UserID != "pat-1" || ts.bookings.req.Notes != "first visit" {
		t.Fatalf("caller or request not passed through: %+v %+v", ts.bookings.caller, ts.bookings.req)
	}

	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{model.ErrSlotUnavailable, http.StatusConflict, msgSlotTaken},
		{model.ErrForbidden, http.StatusForbidden, msgForbidden},
		{model.ErrDoctorNotFound, http.StatusServiceUnavailable, msgUnavailable},
		{model.Invalid("time", "must be a time in HH:MM format"), http.StatusBadRequest, "time must be a time in HH:MM format"},
		{model.Persistence("insert appointment", errors.New("disk full")), http.StatusInternalServerError, msgRetry},
	}
	for _, tc := range cases {
		ts.bookings.err = tc.err
		rec := ts.do(t, http.MethodPost, "/api/v1/appointments", tok, body)
		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
		if got := decode[errorResponse](t, rec); got.Error != tc.msg {
			t.Fatalf("%v: expected message %q, got %q", tc.err, tc.msg, got.Error)
		}
	}

	if rec := ts.do(t, http.MethodPost, "/api/v1/appointments", tok, "{"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, "/api/v1/appointments", tok, ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestListAppointmentsDefaultsAndEffectiveStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.bookings.created = model.Appointment{
		ID: "appt-old", StartsAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), Status: model.StatusScheduled,
	}
	rec := ts.do(t, http.MethodGet, "/api/v1/appointments", token(t, "doc-1", auth.RoleAdmin), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[listAppointmentsResponse](t, rec)
	if got.From != "2025-03-10" || got.To != "2025-04-09" {
		t.Fatalf("unexpected default range %s..%s", got.From, got.To)
	}
	if len(got.Appointments) != 1 || got.Appointments[0].Status != "COMPLETED" {
		t.Fatalf("past scheduled appointment must read as completed, got %+v", got.Appointments)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/appointments?from=yesterday", token(t, "doc-1", auth.RoleAdmin), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Field != "from" {
		t.Fatalf("expected error on from, got %+v", got)
	}
}

func TestCancelAppointment(t *testing.T) {
	ts := newTestServer(t)
	tok := token(t, "pat-1", auth.RolePatient)

	rec := ts.do(t, http.MethodPost, "/api/v1/appointments/cancel", tok, `{"appointmentId":"appt-9","reason":"sick"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[appointmentResponse](t, rec); got.ID != "appt-9" || got.Status != "CANCELED" {
		t.Fatalf("unexpected response %+v", got)
	}

	ts.bookings.err = model.ErrNotFound
	rec = ts.do(t, http.MethodPost, "/api/v1/appointments/cancel", tok, `{"appointmentId":"nope"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/v1/appointments/cancel", tok, ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestPutSchedule(t *testing.T) {
	ts := newTestServer(t)
	tok := token(t, "doc-1", auth.RoleAdmin)

	body := `{"days":[
		{"dayOfWeek":0,"enabled":false},
		{"dayOfWeek":1,"startTime":"09:00","endTime":"17:00","enabled":true},
		{"dayOfWeek":2,"startTime":"09:00","endTime":"17:00","enabled":true},
		{"dayOfWeek":3,"startTime":"09:00","endTime":"12:00","enabled":true},
		{"dayOfWeek":4,"startTime":"09:00","endTime":"17:00","enabled":true},
		{"dayOfWeek":5,"startTime":"09:00","endTime":"17:00","enabled":true},
		{"dayOfWeek":6,"enabled":false}
	]}`
	rec := ts.do(t, http.MethodPut, "/api/v1/schedule", tok, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[scheduleDTO](t, rec)
	if got.Days[3].EndTime != "12:00" || !got.Days[3].Enabled || got.Days[0].Enabled {
		t.Fatalf("unexpected schedule %+v", got.Days)
	}
	if len(ts.schedules.saved) != 7 {
		t.Fatalf("expected 7 windows passed to the writer, got %d", len(ts.schedules.saved))
	}

	rec = ts.do(t, http.MethodPut, "/api/v1/schedule", tok, `{"days":[{"dayOfWeek":1,"startTime":"9am","endTime":"17:00","enabled":true}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Field != "startTime" {
		t.Fatalf("expected error on startTime, got %+v", got)
	}

	saves := ts.schedules.saves
	rejected := map[string]string{
		`{"days":[{"dayOfWeek":7,"enabled":false}]}`:                    "dayOfWeek",
		`{"days":[{"dayOfWeek":1,"endTime":"17:00","enabled":true}]}`:   "startTime",
		`{"days":[{"dayOfWeek":1,"startTime":"09:00","enabled":true}]}`: "endTime",
	}
	for payload, field := range rejected {
		rec = ts.do(t, http.MethodPut, "/api/v1/schedule", tok, payload)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", payload, rec.Code)
		}
		if got := decode[errorResponse](t, rec); got.Field != field {
			t.Fatalf("%s: expected error on %s, got %+v", payload, field, got)
		}
	}
	if ts.schedules.saves != saves {
		t.Fatal("rejected schedules must not reach the writer")
	}

	ts.doctors.err = model.ErrDoctorNotFound
	rec = ts.do(t, http.MethodPut, "/api/v1/schedule", tok, body)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
