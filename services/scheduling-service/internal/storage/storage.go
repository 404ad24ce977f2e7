package storage

import (
	"embed"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the embedded schema files for db.Migrate.
func Migrations() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{FileSystem: migrations, Root: "migrations"}
}

const (
	sqlstateUniqueViolation     = "23505"
	sqlstateForeignKeyViolation = "23503"
	sqlstateInvalidText         = "22P02"
	slotIndexName               = "appointments_doctor_slot_uniq"
	patientForeignKeyName       = "appointments_patient_id_fkey"
)

// IsConflict reports a unique violation. With constraint set, only that index matches.
func IsConflict(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != sqlstateUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isBadUUID reports a malformed id; callers treat it as not found.
func isBadUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlstateInvalidText
}

// invalidReference maps a rejected user reference on an appointment insert to the request
// field that carried it.
func invalidReference(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	switch pgErr.Code {
	case sqlstateInvalidText:
		return "patientId", true
	case sqlstateForeignKeyViolation:
		if pgErr.ConstraintName == patientForeignKeyName {
			return "patientId", true
		}
		return "doctorId", true
	}
	return "", false
}
