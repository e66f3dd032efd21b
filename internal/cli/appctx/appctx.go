// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logger construction and store opening
// to reduce boilerplate across commands.
package appctx

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lherron/wbmerge/internal/config"
	"github.com/lherron/wbmerge/internal/logging"
	"github.com/lherron/wbmerge/internal/store"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration, with flag overrides applied
	Config *config.Config

	// Logger writes to the command's stderr
	Logger *logrus.Logger

	// Store is the opened workbook store (nil until OpenStore is called)
	Store *store.Store
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
		a.Store = nil
	}
}

// OpenStore opens the workbook store at the configured path. It refuses a
// database with pending migrations.
func (a *App) OpenStore() (*store.Store, error) {
	if a.Store != nil {
		return a.Store, nil
	}
	if a.Config.DBPath == "" {
		return nil, fmt.Errorf("database path not specified (use --db flag or set WBMERGE_DB_PATH)")
	}
	s, err := store.Open(a.Config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := s.DB().RequiresMigrationError(); err != nil {
		s.Close()
		return nil, err
	}
	a.Store = s
	return s, nil
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsStore indicates whether to open the workbook store up front.
	NeedsStore bool
}

// DefaultOptions returns default options (no store).
func DefaultOptions() Options {
	return Options{}
}

// WithStore returns options that open the store.
func WithStore() Options {
	return Options{NeedsStore: true}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The store is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger}
	if opts.NeedsStore {
		if _, err := app.OpenStore(); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// applyFlags overrides config values with any flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := map[string]*string{
		"db":          &cfg.DBPath,
		"log-level":   &cfg.LogLevel,
		"log-format":  &cfg.LogFormat,
		"format":      &cfg.Output,
		"on-mismatch": &cfg.OnMismatch,
	}
	for name, dst := range overrides {
		if f := cmd.Flag(name); f != nil {
			if v := f.Value.String(); v != "" {
				*dst = v
			}
		}
	}
}
