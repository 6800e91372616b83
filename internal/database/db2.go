package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const db2DriverName = "go_ibm_db"

// DB2DB implements the DBClient interface for DB2.
type DB2DB struct {
	db *sql.DB
}

// NewDB2DB connects to DB2 through the go_ibm_db driver.
func NewDB2DB(ctx context.Context, target Target) (*DB2DB, error) {
	if !db2Compiled {
		return nil, fmt.Errorf("%w: DB2 support not compiled. Build with -tags ibm_db to enable", ErrDriverUnavailable)
	}
	db, err := openDB(ctx, db2DriverName, BuildDB2DSN(target), "DB2")
	if err != nil {
		return nil, err
	}
	return &DB2DB{db: db}, nil
}

// BuildDB2DSN creates a CLI/ODBC style DB2 connection string.
func BuildDB2DSN(target Target) string {
	return fmt.Sprintf("HOSTNAME=%s;PORT=%s;DATABASE=%s;PROTOCOL=TCPIP;UID=%s;PWD=%s",
		odbcValue(target.Host),
		odbcValue(target.Port),
		odbcValue(target.Database),
		odbcValue(target.Username),
		odbcValue(target.Password),
	)
}

// odbcValue braces values that would otherwise break the keyword list.
func odbcValue(v string) string {
	if !strings.ContainsAny(v, ";{}") && strings.TrimSpace(v) == v {
		return v
	}
	return "{" + strings.ReplaceAll(v, "}", "}}") + "}"
}

// ExecScript executes the script as one statement.
func (d *DB2DB) ExecScript(ctx context.Context, script string) (int64, error) {
	return execScript(ctx, d.db, script)
}

// Close closes the database connection.
func (d *DB2DB) Close() error {
	return closeDB(d.db)
}
