package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"db2-script-step/internal/app"
	"db2-script-step/internal/history"
)

func newHistoryCmd(stdout io.Writer) *cobra.Command {
	var (
		path     string
		limit    int
		output   string
		envPairs []string
		noOSEnv  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded executions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				return fmt.Errorf("--history-db is required")
			}
			if output != "table" && output != "json" {
				return fmt.Errorf("unsupported output format: %s", output)
			}

			env, err := buildEnv(envPairs, !noOSEnv)
			if err != nil {
				return err
			}

			executions, err := app.History(cmd.Context(), env.Replace(path), limit)
			if err != nil {
				return err
			}
			if output == "json" {
				return printJSON(stdout, executions)
			}
			return printTable(stdout, executions)
		},
	}

	cmd.Flags().StringVar(&path, "history-db", "", "SQLite file written by run --history-db; macros are resolved as in run")
	cmd.Flags().StringArrayVarP(&envPairs, "env", "e", nil, "Build variable KEY=VALUE for resolving --history-db (repeatable)")
	cmd.Flags().BoolVar(&noOSEnv, "no-os-env", false, "Do not resolve --history-db against the process environment")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of executions (0 for all)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or json")
	return cmd
}

func printJSON(w io.Writer, executions []history.Execution) error {
	if executions == nil {
		executions = []history.Execution{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(executions)
}

func printTable(w io.Writer, executions []history.Execution) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tTARGET\tUSER\tROWS\tDURATION")
	for _, e := range executions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.StartedAt.Local().Format(time.DateTime),
			e.Status,
			e.Target,
			e.Username,
			e.RowsAffected,
			e.FinishedAt.Sub(e.StartedAt).Round(time.Millisecond),
		)
	}
	return tw.Flush()
}
