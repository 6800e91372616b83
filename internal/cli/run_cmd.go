package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"db2-script-step/internal/app"
	"db2-script-step/internal/config"
	"db2-script-step/internal/macro"
)

// newApp is replaced in tests to avoid real database connections.
var newApp = app.New

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		configPath string
		envPairs   []string
		noOSEnv    bool
		flagCfg    config.Config
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the configured SQL script",
		Long: `Execute the configured SQL script once.

Values are taken from flags, then DB2STEP_* environment variables, then the
--config YAML file. $VAR and ${VAR} references in any value are resolved
against the process environment and --env pairs just before execution.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, &flagCfg)

			env, err := buildEnv(envPairs, !noOSEnv)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			slog.SetDefault(logger)
			res, err := newApp(logger, stdout).Run(cmd.Context(), cfg, env)
			if err != nil {
				return err
			}
			if !res.OK() && cfg.FailOnError {
				return fmt.Errorf("script step failed: %s", res.Status)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML job configuration file")
	f.StringArrayVarP(&envPairs, "env", "e", nil, "Build variable KEY=VALUE for macro resolution (repeatable)")
	f.BoolVar(&noOSEnv, "no-os-env", false, "Do not resolve macros against the process environment")
	f.StringVar(&flagCfg.Driver, "driver", "db2", "Database driver: db2, postgres or mysql")
	f.StringVarP(&flagCfg.Username, "username", "u", "", "Database user")
	f.StringVarP(&flagCfg.Password, "password", "p", "", "Database password (prefer DB2STEP_PASSWORD)")
	f.StringVar(&flagCfg.Host, "host", "", "Database server address")
	f.StringVar(&flagCfg.Port, "port", "", "Database server port")
	f.StringVarP(&flagCfg.Database, "database", "d", "", "Database name")
	f.StringVarP(&flagCfg.Script, "script", "s", "", "SQL script to execute as one statement")
	f.StringVar(&flagCfg.ScriptFile, "script-file", "", "File containing the SQL script")
	f.DurationVar(&flagCfg.Timeout, "timeout", 0, "Connect and execute timeout (0 for none)")
	f.BoolVar(&flagCfg.FailOnError, "fail-on-error", false, "Exit non-zero when the script step fails")
	f.StringVar(&flagCfg.HistoryDB, "history-db", "", "SQLite file recording each execution")
	f.StringVar(&flagCfg.LogLevel, "log-level", "warn", "Diagnostic log level: debug, info, warn, error")

	return cmd
}

// applyFlags copies explicitly set flags over cfg, giving flags the highest
// precedence.
func applyFlags(cmd *cobra.Command, cfg, flags *config.Config) {
	changed := cmd.Flags().Changed
	if changed("driver") {
		cfg.Driver = flags.Driver
	}
	if changed("username") {
		cfg.Username = flags.Username
	}
	if changed("password") {
		cfg.Password = flags.Password
	}
	if changed("host") {
		cfg.Host = flags.Host
	}
	if changed("port") {
		cfg.Port = flags.Port
	}
	if changed("database") {
		cfg.Database = flags.Database
	}
	if changed("script") {
		cfg.Script = flags.Script
		cfg.ScriptFile = ""
	}
	if changed("script-file") {
		cfg.ScriptFile = flags.ScriptFile
		if !changed("script") {
			cfg.Script = ""
		}
	}
	if changed("timeout") {
		cfg.Timeout = flags.Timeout
	}
	if changed("fail-on-error") {
		cfg.FailOnError = flags.FailOnError
	}
	if changed("history-db") {
		cfg.HistoryDB = flags.HistoryDB
	}
	if changed("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
}

func buildEnv(pairs []string, includeOS bool) (macro.Env, error) {
	overrides, err := macro.Parse(pairs)
	if err != nil {
		return nil, err
	}
	if !includeOS {
		return overrides, nil
	}
	base, err := macro.Parse(os.Environ())
	if err != nil {
		return nil, fmt.Errorf("failed to read process environment: %w", err)
	}
	return macro.Merge(base, overrides), nil
}
