package database

import (
	"context"
	"database/sql"
	"net"

	"github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLDB implements the DBClient interface for MySQL.
type MySQLDB struct {
	db *sql.DB
}

// NewMySQLDB creates a new MySQLDB instance.
func NewMySQLDB(ctx context.Context, target Target) (*MySQLDB, error) {
	db, err := openDB(ctx, "mysql", BuildMySQLDSN(target), "MySQL")
	if err != nil {
		return nil, err
	}
	return &MySQLDB{db: db}, nil
}

// BuildMySQLDSN creates a go-sql-driver/mysql DSN. Multi-statements stay
// disabled so a script is always exactly one statement.
func BuildMySQLDSN(target Target) string {
	cfg := mysql.NewConfig()
	cfg.User = target.Username
	cfg.Passwd = target.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(target.Host, target.Port)
	cfg.DBName = target.Database
	return cfg.FormatDSN()
}

// ExecScript executes the script as one statement.
func (m *MySQLDB) ExecScript(ctx context.Context, script string) (int64, error) {
	return execScript(ctx, m.db, script)
}

// Close closes the database connection.
func (m *MySQLDB) Close() error {
	return closeDB(m.db)
}
