package storage

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsConflict(t *testing.T) {
	slot := &pgconn.PgError{Code: "23505", ConstraintName: slotIndexName}
	email := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	check := &pgconn.PgError{Code: "23514"}

	if !IsConflict(fmt.Errorf("insert: %w", slot), slotIndexName) {
		t.Fatal("expected wrapped slot violation to be a conflict")
	}
	if IsConflict(email, slotIndexName) {
		t.Fatal("a different unique index must not count as a slot conflict")
	}
	if !IsConflict(email, "") {
		t.Fatal("expected any unique violation to match an empty constraint")
	}
	if IsConflict(check, "") || IsConflict(errors.New("boom"), "") {
		t.Fatal("non unique violations are not conflicts")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("get: %w", pgx.ErrNoRows)) {
		t.Fatal("expected wrapped ErrNoRows to be not found")
	}
	if !isBadUUID(&pgconn.PgError{Code: "22P02"}) {
		t.Fatal("expected 22P02 to be a malformed id")
	}
}

func TestInvalidReference(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		field string
		ok    bool
	}{
		{"unknown patient", &pgconn.PgError{Code: "23503", ConstraintName: patientForeignKeyName}, "patientId", true},
		{"unknown doctor", &pgconn.PgError{Code: "23503", ConstraintName: "appointments_doctor_id_fkey"}, "doctorId", true},
		{"malformed id", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "22P02"}), "patientId", true},
		{"slot taken", &pgconn.PgError{Code: "23505", ConstraintName: slotIndexName}, "", false},
		{"driver error", errors.New("conn reset"), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			field, ok := invalidReference(tc.err)
			if ok != tc.ok || field != tc.field {
				t.Fatalf("expected (%q, %v), got (%q, %v)", tc.field, tc.ok, field, ok)
			}
		})
	}
}

func TestMigrationsParse(t *testing.T) {
	ms, err := Migrations().FindMigrations()
	if err != nil {
		t.Fatalf("FindMigrations failed: %v", err)
	}
	if len(ms) == 0 || ms[0].Id != "001_init.sql" {
		t.Fatalf("unexpected migrations %+v", ms)
	}
	if len(ms[0].Up) == 0 || len(ms[0].Down) == 0 {
		t.Fatalf("expected Up and Down statements, got %d/%d", len(ms[0].Up), len(ms[0].Down))
	}
	var slotIndex bool
	for _, stmt := range ms[0].Up {
		if strings.Contains(stmt, slotIndexName) {
			slotIndex = true
		}
	}
	if !slotIndex {
		t.Fatalf("expected %s in the Up statements", slotIndexName)
	}
}
