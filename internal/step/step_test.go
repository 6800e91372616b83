package step

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db2-script-step/internal/database"
)

type fakeClient struct {
	execErr  error
	rows     int64
	scripts  []string
	closed   bool
	closeErr error
}

func (f *fakeClient) ExecScript(ctx context.Context, script string) (int64, error) {
	f.scripts = append(f.scripts, script)
	if f.execErr != nil {
		return 0, f.execErr
	}
	return f.rows, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return f.closeErr
}

// fakeOpener records connection attempts and hands out client.
type fakeOpener struct {
	client   *fakeClient
	err      error
	attempts int
	dbType   string
	target   database.Target
	deadline bool
}

func (o *fakeOpener) open(ctx context.Context, dbType string, target database.Target) (database.DBClient, error) {
	o.attempts++
	o.dbType = dbType
	o.target = target
	_, o.deadline = ctx.Deadline()
	if o.err != nil {
		return nil, o.err
	}
	return o.client, nil
}

var scenarioRequest = Request{
	Username: "u1",
	Password: "p1",
	Host:     "10.0.0.1",
	Port:     "50000",
	Database: "SAMPLE",
	Script:   "UPDATE T SET X=1",
}

func newTestExecutor(opener *fakeOpener) *Executor {
	return &Executor{
		DBType: "db2",
		Open:   opener.open,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func run(t *testing.T, e *Executor, req Request) (Result, []string) {
	t.Helper()
	var out bytes.Buffer
	res := e.Execute(context.Background(), req, &out)
	require.True(t, strings.HasSuffix(out.String(), "\n"))
	return res, strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
}

func TestExecute_Success(t *testing.T) {
	client := &fakeClient{rows: 3}
	opener := &fakeOpener{client: client}

	res, lines := run(t, newTestExecutor(opener), scenarioRequest)

	want := []string{
		"",
		"Username: u1",
		"db2://10.0.0.1:50000/SAMPLE",
		"Script: UPDATE T SET X=1",
		"Connection Success!",
		"Script Execute Success!",
		"",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("diff: -want, +got:\n%s", diff)
	}
	assert.Equal(t, StatusSuccess, res.Status)
	assert.True(t, res.OK())
	assert.Equal(t, int64(3), res.RowsAffected)
	assert.NoError(t, res.Err)

	assert.Equal(t, 1, opener.attempts)
	assert.Equal(t, "db2", opener.dbType)
	assert.Equal(t, scenarioRequest.Target(), opener.target)
	assert.Equal(t, []string{"UPDATE T SET X=1"}, client.scripts)
	assert.True(t, client.closed, "connection must be released")
}

func TestExecute_DriverUnavailable(t *testing.T) {
	opener := &fakeOpener{
		err: fmt.Errorf("%w: DB2 support not compiled. Build with -tags ibm_db to enable", database.ErrDriverUnavailable),
	}

	res, lines := run(t, newTestExecutor(opener), scenarioRequest)

	require.Len(t, lines, 7)
	assert.Equal(t, []string{"", "Username: u1", "db2://10.0.0.1:50000/SAMPLE", "Script: UPDATE T SET X=1"}, lines[:4])
	assert.True(t, strings.HasPrefix(lines[4], "DriverNotFound: "), lines[4])
	assert.Equal(t, LineNotExecuted, lines[5])
	assert.Equal(t, "", lines[6])
	assert.NotContains(t, lines, LineConnectionSuccess)
	assert.NotContains(t, lines, LineExecuteSuccess)
	for _, line := range lines {
		assert.False(t, strings.HasPrefix(line, "Exception: "), "must not be reported as a database error")
	}

	assert.Equal(t, StatusDriverUnavailable, res.Status)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, database.ErrDriverUnavailable)
	assert.Equal(t, lines[4], res.Message)
}

func TestExecute_ConnectFailure(t *testing.T) {
	opener := &fakeOpener{err: errors.New("failed to connect to DB2 database: SQL30082N Security processing failed")}

	res, lines := run(t, newTestExecutor(opener), scenarioRequest)

	want := []string{
		"",
		"Username: u1",
		"db2://10.0.0.1:50000/SAMPLE",
		"Script: UPDATE T SET X=1",
		"Exception: failed to connect to DB2 database: SQL30082N Security processing failed",
		"Script Not Executed!",
		"",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("diff: -want, +got:\n%s", diff)
	}
	assert.Equal(t, StatusDatabaseError, res.Status)
}

func TestExecute_ScriptFailure(t *testing.T) {
	client := &fakeClient{execErr: errors.New(`failed to execute script: SQL0104N An unexpected token "UPDAT" was found`)}
	opener := &fakeOpener{client: client}
	req := scenarioRequest
	req.Script = "UPDAT T SET X=1"

	res, lines := run(t, newTestExecutor(opener), req)

	want := []string{
		"",
		"Username: u1",
		"db2://10.0.0.1:50000/SAMPLE",
		"Script: UPDAT T SET X=1",
		"Connection Success!",
		`Exception: failed to execute script: SQL0104N An unexpected token "UPDAT" was found`,
		"",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("diff: -want, +got:\n%s", diff)
	}
	assert.Equal(t, StatusDatabaseError, res.Status)
	assert.NotContains(t, lines, LineExecuteSuccess)
	assert.True(t, client.closed, "connection must be released on failure")
}

func TestExecute_PasswordNeverLogged(t *testing.T) {
	const password = "s3cr3t-pw"
	req := scenarioRequest
	req.Password = password

	cases := map[string]*fakeOpener{
		"success":            {client: &fakeClient{}},
		"driver unavailable": {err: fmt.Errorf("%w: missing driver for %s", database.ErrDriverUnavailable, password)},
		"connect failure":    {err: fmt.Errorf("login failed for PWD=%s", password)},
		"script failure":     {client: &fakeClient{execErr: fmt.Errorf("bad statement near %s", password), closeErr: errors.New("close " + password)}},
	}
	for name, opener := range cases {
		t.Run(name, func(t *testing.T) {
			var out, logs bytes.Buffer
			e := newTestExecutor(opener)
			e.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

			res := e.Execute(context.Background(), req, &out)

			assert.NotContains(t, out.String(), password)
			assert.NotContains(t, logs.String(), password)
			assert.NotContains(t, res.Message, password)
		})
	}
}

func TestExecute_Timeout(t *testing.T) {
	opener := &fakeOpener{client: &fakeClient{}}
	e := newTestExecutor(opener)

	e.Execute(context.Background(), scenarioRequest, io.Discard)
	assert.False(t, opener.deadline)

	e.Timeout = time.Minute
	e.Execute(context.Background(), scenarioRequest, io.Discard)
	assert.True(t, opener.deadline)
}

func TestExecute_SchemeFollowsDriver(t *testing.T) {
	opener := &fakeOpener{client: &fakeClient{}}
	e := newTestExecutor(opener)
	e.DBType = "postgres"

	_, lines := run(t, e, scenarioRequest)
	assert.Equal(t, "postgres://10.0.0.1:50000/SAMPLE", lines[2])
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "SUCCESS", StatusSuccess.String())
	assert.Equal(t, "DRIVER_UNAVAILABLE", StatusDriverUnavailable.String())
	assert.Equal(t, "DATABASE_ERROR", StatusDatabaseError.String())
	assert.Equal(t, "UNKNOWN", Status(42).String())
}
