// Package config loads the script step job configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"db2-script-step/internal/database"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DB2STEP_"

// Config holds one job's step configuration. String fields may contain
// $VAR / ${VAR} references; they are resolved at execution time, never here.
type Config struct {
	Driver     string        `yaml:"driver"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	Host       string        `yaml:"host"`
	Port       string        `yaml:"port"`
	Database   string        `yaml:"database"`
	Script     string        `yaml:"script"`
	ScriptFile string        `yaml:"script_file"`
	Timeout    time.Duration `yaml:"timeout"`

	FailOnError bool   `yaml:"fail_on_error"` // non-zero exit when the script step fails
	HistoryDB   string `yaml:"history_db"`    // path to SQLite execution history (optional)
	LogLevel    string `yaml:"log_level"`     // debug, info, warn, error (default "warn")
}

// Default returns a Config with defaults applied.
func Default() *Config {
	return &Config{
		Driver:   "db2",
		LogLevel: "warn",
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from DB2STEP_* environment variables that are set
// and non-empty.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"DRIVER":      &c.Driver,
		"USERNAME":    &c.Username,
		"PASSWORD":    &c.Password,
		"HOST":        &c.Host,
		"PORT":        &c.Port,
		"DATABASE":    &c.Database,
		"SCRIPT":      &c.Script,
		"SCRIPT_FILE": &c.ScriptFile,
		"HISTORY_DB":  &c.HistoryDB,
		"LOG_LEVEL":   &c.LogLevel,
	}
	for name, field := range strs {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*field = v
		}
	}

	// A script source from the environment replaces the file's, whichever
	// form the file used.
	envScript := os.Getenv(EnvPrefix + "SCRIPT")
	envScriptFile := os.Getenv(EnvPrefix + "SCRIPT_FILE")
	if envScript != "" && envScriptFile == "" {
		c.ScriptFile = ""
	}
	if envScriptFile != "" && envScript == "" {
		c.Script = ""
	}

	if v := os.Getenv(EnvPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv(EnvPrefix + "FAIL_ON_ERROR"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sFAIL_ON_ERROR: %w", EnvPrefix, err)
		}
		c.FailOnError = b
	}
	return nil
}

// Validate checks that the configuration can describe a single execution.
func (c *Config) Validate() error {
	if !database.Supported(c.Driver) {
		return fmt.Errorf("unsupported driver %q: use db2, postgres or mysql", c.Driver)
	}
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Script == "" && c.ScriptFile == "" {
		return fmt.Errorf("one of script or script_file is required")
	}
	if c.Script != "" && c.ScriptFile != "" {
		return fmt.Errorf("script and script_file are mutually exclusive")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
