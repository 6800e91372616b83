package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"db2-script-step/internal/config"
	"db2-script-step/internal/database"
	"db2-script-step/internal/history"
	"db2-script-step/internal/macro"
	"db2-script-step/internal/step"
)

// App wires configuration, macro resolution, execution and history.
type App struct {
	Logger *slog.Logger
	Out    io.Writer     // build log
	Open   step.OpenFunc // nil means database.NewDBClient
	Now    func() time.Time
}

// New returns an App writing the build log to out.
func New(logger *slog.Logger, out io.Writer) *App {
	return &App{
		Logger: logger,
		Out:    out,
		Open:   database.NewDBClient,
		Now:    time.Now,
	}
}

// RunApp executes the step described by cfg with the default wiring.
func RunApp(ctx context.Context, cfg *config.Config, env macro.Env, out io.Writer) (step.Result, error) {
	return New(slog.Default(), out).Run(ctx, cfg, env)
}

// Run resolves cfg against env, executes the script once and records the
// outcome when a history database is configured. The returned error covers
// configuration problems only; database failures are reported in the Result.
func (a *App) Run(ctx context.Context, cfg *config.Config, env macro.Env) (step.Result, error) {
	if err := cfg.Validate(); err != nil {
		return step.Result{}, fmt.Errorf("invalid configuration: %w", err)
	}

	req, err := ResolveRequest(cfg, env)
	if err != nil {
		return step.Result{}, err
	}

	executor := step.NewExecutor(cfg.Driver)
	executor.Open = a.Open
	executor.Timeout = cfg.Timeout
	executor.Logger = a.Logger

	started := a.Now()
	res := executor.Execute(ctx, req, a.Out)
	finished := a.Now()

	if cfg.HistoryDB != "" {
		a.record(ctx, env.Replace(cfg.HistoryDB), history.Execution{
			Driver:       database.Scheme(cfg.Driver),
			Username:     req.Username,
			Target:       req.Target().URI(database.Scheme(cfg.Driver)),
			ScriptSHA256: history.ScriptHash(req.Script),
			Status:       res.Status.String(),
			Message:      res.Message,
			RowsAffected: res.RowsAffected,
			StartedAt:    started,
			FinishedAt:   finished,
		})
	}
	return res, nil
}

// ResolveRequest substitutes env into every request field. A script file is
// located with its resolved path and its contents are resolved as well.
func ResolveRequest(cfg *config.Config, env macro.Env) (step.Request, error) {
	script := cfg.Script
	if cfg.ScriptFile != "" {
		path := env.Replace(cfg.ScriptFile)
		b, err := os.ReadFile(path)
		if err != nil {
			return step.Request{}, fmt.Errorf("failed to read script file %s: %w", path, err)
		}
		script = strings.TrimRight(string(b), "\r\n")
	}

	return step.Request{
		Username: env.Replace(cfg.Username),
		Password: env.Replace(cfg.Password),
		Host:     env.Replace(cfg.Host),
		Port:     env.Replace(cfg.Port),
		Database: env.Replace(cfg.Database),
		Script:   env.Replace(script),
	}, nil
}

// record stores e. History is best effort and never changes the step outcome.
func (a *App) record(ctx context.Context, path string, e history.Execution) {
	store, err := history.Open(ctx, path)
	if err != nil {
		a.Logger.Warn("execution history unavailable", "path", path, "error", err)
		return
	}
	defer store.Close()

	stored, err := store.Record(ctx, e)
	if err != nil {
		a.Logger.Warn("failed to record execution", "path", path, "error", err)
		return
	}
	a.Logger.Debug("execution recorded", "id", stored.ID, "status", stored.Status)
}

// History lists recorded executions from the database at path.
func History(ctx context.Context, path string, limit int) ([]history.Execution, error) {
	store, err := history.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.List(ctx, limit)
}
