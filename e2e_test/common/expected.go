package common

import (
	"strings"

	"db2-script-step/internal/macro"
)

// BuildEnv is the build variable set shared by the e2e scenarios.
var BuildEnv = macro.Env{
	"BUILD_NUMBER": "153",
	"JOB_NAME":     "deploy-schema",
}

const InsertBuildScript = "INSERT INTO builds (build_number, job) VALUES ($BUILD_NUMBER, '${JOB_NAME}')"

var ExpectedBuilds = []Build{
	{BuildNumber: 153, Job: "deploy-schema"},
}

// ExpectedReport renders the seven line build log report.
func ExpectedReport(username, uri, script, connection, execution string) string {
	return strings.Join([]string{
		"",
		"Username: " + username,
		uri,
		"Script: " + script,
		connection,
		execution,
		"",
	}, "\n") + "\n"
}

// ReportLines splits a build log report into its lines without the final
// newline.
func ReportLines(report string) []string {
	return strings.Split(strings.TrimSuffix(report, "\n"), "\n")
}
