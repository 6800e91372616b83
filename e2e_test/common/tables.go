package common

import (
	"context"
	"database/sql"
	"testing"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/stretchr/testify/require"
)

type Build struct {
	BuildNumber int    `db:"build_number"`
	Job         string `db:"job"`
}

// SelectBuilds returns every row of the builds table ordered by build number.
func SelectBuilds(t *testing.T, db *sql.DB) []Build {
	t.Helper()
	var builds []Build
	err := sqlscan.Select(context.Background(), db, &builds, "SELECT build_number, job FROM builds ORDER BY build_number")
	require.NoError(t, err)
	return builds
}
