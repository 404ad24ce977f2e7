package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

// MigrationTable records applied migrations.
const MigrationTable = "schema_migrations"

// migrationLockID serializes concurrent Migrate calls across replicas.
const migrationLockID = 7_340_221

// Migrate applies pending Up migrations from source and returns how many ran.
func Migrate(ctx context.Context, pool *Pool, source migrate.MigrationSource, logger *slog.Logger) (int, error) {
	lock, err := pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer lock.Release()

	if _, err := lock.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return 0, fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() { _, _ = lock.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID) }()

	migrate.SetTable(MigrationTable)
	sqlDB := stdlib.OpenDBFromPool(pool.Pool)
	defer sqlDB.Close()

	n, err := migrate.Exec(sqlDB, "postgres", source, migrate.Up)
	if err != nil {
		return n, fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("migrations applied", "count", n, "table", MigrationTable)
	return n, nil
}
