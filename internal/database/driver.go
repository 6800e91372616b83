package database

import (
	"context"
	"errors"
	"fmt"
)

// ErrDriverUnavailable is returned when the client library for a database
// type is not compiled in or not registered with database/sql.
var ErrDriverUnavailable = errors.New("database driver unavailable")

// DBClient defines the interface for database operations.
type DBClient interface {
	ExecScript(ctx context.Context, script string) (int64, error)
	Close() error
}

// Target identifies the server, database and credentials for one connection.
type Target struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
}

// URI renders the target as scheme://host:port/database. Credentials are never
// part of it, so it is safe to print.
func (t Target) URI(scheme string) string {
	return fmt.Sprintf("%s://%s:%s/%s", scheme, t.Host, t.Port, t.Database)
}

// Supported reports whether dbType is one NewDBClient knows how to open.
func Supported(dbType string) bool {
	switch dbType {
	case "db2", "postgres", "mysql":
		return true
	default:
		return false
	}
}

// Scheme returns the URI scheme printed for dbType.
func Scheme(dbType string) string {
	if dbType == "" {
		return "db2"
	}
	return dbType
}

// NewDBClient creates a new DBClient based on the database type. The returned
// client holds exactly one live connection.
func NewDBClient(ctx context.Context, dbType string, target Target) (DBClient, error) {
	switch dbType {
	case "postgres":
		return asClient(NewPostgresDB(ctx, target))
	case "db2", "":
		return asClient(NewDB2DB(ctx, target))
	case "mysql":
		return asClient(NewMySQLDB(ctx, target))
	default:
		return nil, fmt.Errorf("%w: unsupported database type: %s", ErrDriverUnavailable, dbType)
	}
}

// asClient keeps a nil *T from turning into a non-nil DBClient.
func asClient[T DBClient](client T, err error) (DBClient, error) {
	if err != nil {
		return nil, err
	}
	return client, nil
}
