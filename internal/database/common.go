package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
)

// openDB opens a single-connection pool for driverName and verifies it with a
// ping. label is the human readable database name used in errors.
func openDB(ctx context.Context, driverName, dsn, label string) (*sql.DB, error) {
	if !slices.Contains(sql.Drivers(), driverName) {
		return nil, fmt.Errorf("%w: %s driver %q is not registered", ErrDriverUnavailable, label, driverName)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", label, err)
	}
	slog.Debug("connected to database", "driver", driverName)
	return db, nil
}

// execScript runs script as a single update-style statement. The script is
// prepared first so drivers that would otherwise accept several statements in
// one simple query reject them. Drivers that cannot report affected rows
// yield -1.
func execScript(ctx context.Context, db *sql.DB, script string) (int64, error) {
	stmt, err := db.PrepareContext(ctx, script)
	if err != nil {
		return 0, fmt.Errorf("failed to execute script: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to execute script: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return -1, nil
	}
	return n, nil
}

func closeDB(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
