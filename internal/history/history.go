// Package history keeps a local SQLite record of script step executions.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Execution is one recorded run. The password and the script body are never
// stored; the script is identified by its SHA-256.
type Execution struct {
	ID           string    `db:"id" json:"id"`
	Driver       string    `db:"driver" json:"driver"`
	Username     string    `db:"username" json:"username"`
	Target       string    `db:"target" json:"target"`
	ScriptSHA256 string    `db:"script_sha256" json:"script_sha256"`
	Status       string    `db:"status" json:"status"`
	Message      string    `db:"message" json:"message"`
	RowsAffected int64     `db:"rows_affected" json:"rows_affected"`
	StartedAt    time.Time `db:"started_at" json:"started_at"`
	FinishedAt   time.Time `db:"finished_at" json:"finished_at"`
}

// ScriptHash returns the hex SHA-256 of script.
func ScriptHash(script string) string {
	sum := sha256.Sum256([]byte(script))
	return hex.EncodeToString(sum[:])
}

// Store is the SQLite backed execution history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database %s: %w", path, err)
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate history database: %w", err)
	}
	return nil
}

// Record inserts e, assigning an ID when it has none, and returns the stored copy.
func (s *Store) Record(ctx context.Context, e Execution) (Execution, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `insert into executions (
		id,
		driver,
		username,
		target,
		script_sha256,
		status,
		message,
		rows_affected,
		started_at,
		finished_at
	)
	values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Driver,
		e.Username,
		e.Target,
		e.ScriptSHA256,
		e.Status,
		e.Message,
		e.RowsAffected,
		e.StartedAt.UTC(),
		e.FinishedAt.UTC(),
	)
	if err != nil {
		return Execution{}, fmt.Errorf("failed to record execution %s: %w", e.ID, err)
	}
	return e, nil
}

// List returns up to limit executions, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = -1
	}
	var executions []Execution
	query := `select * from executions order by started_at desc, id limit $1`
	if err := sqlscan.Select(ctx, s.db, &executions, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	return executions, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
