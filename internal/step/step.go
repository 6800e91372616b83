// Package step runs a single SQL script against a database and writes the
// build log report for it.
package step

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"db2-script-step/internal/database"
)

// Status classifies the outcome of one execution.
type Status int

const (
	StatusSuccess Status = iota
	StatusDriverUnavailable
	StatusDatabaseError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusDriverUnavailable:
		return "DRIVER_UNAVAILABLE"
	case StatusDatabaseError:
		return "DATABASE_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Report lines written to the build log.
const (
	LineConnectionSuccess = "Connection Success!"
	LineExecuteSuccess    = "Script Execute Success!"
	LineNotExecuted       = "Script Not Executed!"

	driverNotFoundPrefix = "DriverNotFound: "
	exceptionPrefix      = "Exception: "
)

// Request is everything needed to run one script. All fields must already be
// macro-resolved.
type Request struct {
	Username string
	Password string
	Host     string
	Port     string
	Database string
	Script   string
}

// Target returns the connection target of the request.
func (r Request) Target() database.Target {
	return database.Target{
		Host:     r.Host,
		Port:     r.Port,
		Database: r.Database,
		Username: r.Username,
		Password: r.Password,
	}
}

// Result is the outcome of Execute.
type Result struct {
	Status Status
	// Message is the status line written to the build log. It never contains
	// the password.
	Message      string
	RowsAffected int64
	// Err is the underlying error. Its text comes straight from the driver;
	// print Message instead.
	Err error
}

// OK reports whether the script ran successfully.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// OpenFunc opens one database connection.
type OpenFunc func(ctx context.Context, dbType string, target database.Target) (database.DBClient, error)

// Executor connects, executes and reports.
type Executor struct {
	DBType  string
	Open    OpenFunc
	Timeout time.Duration // zero means no timeout
	Logger  *slog.Logger
}

// NewExecutor returns an Executor for dbType backed by database.NewDBClient.
func NewExecutor(dbType string) *Executor {
	return &Executor{
		DBType: dbType,
		Open:   database.NewDBClient,
		Logger: slog.Default(),
	}
}

// Execute runs req.Script as one statement and writes the report to out.
// Failures are returned in the Result, never as a panic or error, so the
// caller decides whether they are fatal.
func (e *Executor) Execute(ctx context.Context, req Request, out io.Writer) Result {
	target := req.Target()
	uri := target.URI(database.Scheme(e.DBType))
	logger := e.logger().With("driver", database.Scheme(e.DBType), "uri", uri)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Username: %s\n", req.Username)
	fmt.Fprintln(out, uri)
	fmt.Fprintf(out, "Script: %s\n", req.Script)
	defer fmt.Fprintln(out)

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	client, err := e.open(ctx, target)
	if err != nil {
		// The connection slot carries the failure and the execution slot says
		// the script never ran. Neither slot may read as success when no
		// connection exists, even for a plain database error.
		res := failure(err, req.Password)
		logger.Warn("connection failed", "status", res.Status)
		fmt.Fprintln(out, res.Message)
		fmt.Fprintln(out, LineNotExecuted)
		return res
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close connection", "error", redact(err.Error(), req.Password))
		}
	}()
	fmt.Fprintln(out, LineConnectionSuccess)

	rows, err := client.ExecScript(ctx, req.Script)
	if err != nil {
		res := failure(err, req.Password)
		logger.Warn("script execution failed", "status", res.Status)
		fmt.Fprintln(out, res.Message)
		return res
	}
	fmt.Fprintln(out, LineExecuteSuccess)
	logger.Debug("script executed", "rows_affected", rows)

	return Result{
		Status:       StatusSuccess,
		Message:      LineExecuteSuccess,
		RowsAffected: rows,
	}
}

func (e *Executor) open(ctx context.Context, target database.Target) (database.DBClient, error) {
	open := e.Open
	if open == nil {
		open = database.NewDBClient
	}
	return open(ctx, e.DBType, target)
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func failure(err error, password string) Result {
	if errors.Is(err, database.ErrDriverUnavailable) {
		return Result{
			Status:  StatusDriverUnavailable,
			Message: driverNotFoundPrefix + redact(err.Error(), password),
			Err:     err,
		}
	}
	return Result{
		Status:  StatusDatabaseError,
		Message: exceptionPrefix + redact(err.Error(), password),
		Err:     err,
	}
}

// redact masks every occurrence of password in msg.
func redact(msg, password string) string {
	if password == "" {
		return msg
	}
	return strings.ReplaceAll(msg, password, "******")
}
