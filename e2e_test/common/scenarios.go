package common

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db2-script-step/internal/app"
	"db2-script-step/internal/config"
	"db2-script-step/internal/database"
	"db2-script-step/internal/step"
)

// RunScenarios drives the script step end to end against a live database.
// base must point at a database initialised with initdb.d; db is used to
// check what the step wrote.
func RunScenarios(t *testing.T, base config.Config, db *sql.DB) {
	base.Timeout = 30 * time.Second
	uri := database.Target{Host: base.Host, Port: base.Port, Database: base.Database}.URI(database.Scheme(base.Driver))
	resolvedInsert := "INSERT INTO builds (build_number, job) VALUES (153, 'deploy-schema')"

	t.Run("スクリプトが実行されレポートが出力されること", func(t *testing.T) {
		cfg := base
		cfg.Script = InsertBuildScript
		var out bytes.Buffer

		res, err := app.RunApp(context.Background(), &cfg, BuildEnv, &out)
		require.NoError(t, err)

		assert.Equal(t, step.StatusSuccess, res.Status)
		assert.Equal(t, int64(1), res.RowsAffected)
		want := ExpectedReport(base.Username, uri, resolvedInsert, step.LineConnectionSuccess, step.LineExecuteSuccess)
		if diff := cmp.Diff(want, out.String()); diff != "" {
			t.Errorf("diff: -want, +got:\n%s", diff)
		}
		if diff := cmp.Diff(ExpectedBuilds, SelectBuilds(t, db)); diff != "" {
			t.Errorf("diff: -want, +got:\n%s", diff)
		}
	})

	t.Run("制約違反はExceptionとして報告されること", func(t *testing.T) {
		cfg := base
		cfg.Script = InsertBuildScript
		var out bytes.Buffer

		res, err := app.RunApp(context.Background(), &cfg, BuildEnv, &out)
		require.NoError(t, err)

		assert.Equal(t, step.StatusDatabaseError, res.Status)
		lines := ReportLines(out.String())
		require.Len(t, lines, 7)
		assert.Equal(t, step.LineConnectionSuccess, lines[4])
		assert.True(t, strings.HasPrefix(lines[5], "Exception: "), lines[5])
		assert.Empty(t, lines[6])
		if diff := cmp.Diff(ExpectedBuilds, SelectBuilds(t, db)); diff != "" {
			t.Errorf("diff: -want, +got:\n%s", diff)
		}
	})

	t.Run("構文エラーはExceptionとして報告されること", func(t *testing.T) {
		cfg := base
		cfg.Script = "INSERTT INTO builds VALUES (1, 'x')"
		var out bytes.Buffer

		res, err := app.RunApp(context.Background(), &cfg, BuildEnv, &out)
		require.NoError(t, err)

		assert.Equal(t, step.StatusDatabaseError, res.Status)
		assert.Equal(t, res.Message, ReportLines(out.String())[5])
		assert.True(t, strings.HasPrefix(res.Message, "Exception: "), res.Message)
	})

	t.Run("複数文のスクリプトは実行されないこと", func(t *testing.T) {
		cfg := base
		cfg.Script = "UPDATE builds SET job = 'hijacked' WHERE build_number = $BUILD_NUMBER; DELETE FROM builds"
		var out bytes.Buffer

		res, err := app.RunApp(context.Background(), &cfg, BuildEnv, &out)
		require.NoError(t, err)

		assert.Equal(t, step.StatusDatabaseError, res.Status)
		lines := ReportLines(out.String())
		require.Len(t, lines, 7)
		assert.Equal(t, step.LineConnectionSuccess, lines[4])
		assert.True(t, strings.HasPrefix(lines[5], "Exception: "), lines[5])
		if diff := cmp.Diff(ExpectedBuilds, SelectBuilds(t, db)); diff != "" {
			t.Errorf("diff: -want, +got:\n%s", diff)
		}
	})

	t.Run("認証エラーではスクリプトが実行されないこと", func(t *testing.T) {
		cfg := base
		cfg.Password = "wrong-password-e2e"
		cfg.Script = "DELETE FROM builds"
		var out bytes.Buffer

		res, err := app.RunApp(context.Background(), &cfg, BuildEnv, &out)
		require.NoError(t, err)

		assert.Equal(t, step.StatusDatabaseError, res.Status)
		lines := ReportLines(out.String())
		require.Len(t, lines, 7)
		assert.True(t, strings.HasPrefix(lines[4], "Exception: "), lines[4])
		assert.Equal(t, step.LineNotExecuted, lines[5])
		assert.NotContains(t, out.String(), cfg.Password)
		assert.NotContains(t, res.Message, cfg.Password)
		assert.Len(t, SelectBuilds(t, db), 1)
	})

	t.Run("実行履歴が記録されること", func(t *testing.T) {
		cfg := base
		cfg.Script = "UPDATE builds SET job = 'redeploy' WHERE build_number = $BUILD_NUMBER"
		cfg.HistoryDB = filepath.Join(t.TempDir(), "history.db")
		var out bytes.Buffer

		res, err := app.RunApp(context.Background(), &cfg, BuildEnv, &out)
		require.NoError(t, err)
		require.True(t, res.OK(), out.String())

		executions, err := app.History(context.Background(), cfg.HistoryDB, 0)
		require.NoError(t, err)
		require.Len(t, executions, 1)
		assert.Equal(t, "SUCCESS", executions[0].Status)
		assert.Equal(t, uri, executions[0].Target)
		assert.Equal(t, int64(1), executions[0].RowsAffected)
		assert.Equal(t, []Build{{BuildNumber: 153, Job: "redeploy"}}, SelectBuilds(t, db))
	})
}
