package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresDB implements the DBClient interface for PostgreSQL.
type PostgresDB struct {
	db *sql.DB
}

// NewPostgresDB creates a new PostgresDB instance.
func NewPostgresDB(ctx context.Context, target Target) (*PostgresDB, error) {
	db, err := openDB(ctx, "postgres", BuildPostgresDSN(target), "PostgreSQL")
	if err != nil {
		return nil, err
	}
	return &PostgresDB{db: db}, nil
}

// BuildPostgresDSN creates a lib/pq key/value connection string.
func BuildPostgresDSN(target Target) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pqValue(target.Host),
		pqValue(target.Port),
		pqValue(target.Username),
		pqValue(target.Password),
		pqValue(target.Database),
	)
}

func pqValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// ExecScript executes the script as one statement.
func (p *PostgresDB) ExecScript(ctx context.Context, script string) (int64, error) {
	return execScript(ctx, p.db, script)
}

// Close closes the database connection.
func (p *PostgresDB) Close() error {
	return closeDB(p.db)
}
