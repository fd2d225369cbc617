package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/dcmindex/internal/config"
	"github.com/roach88/dcmindex/internal/store"
)

// session is an open catalog with the configuration it was opened with.
type session struct {
	cfg      *config.Config
	store    *store.Store
	registry *prometheus.Registry
}

// loadConfig reads the configuration file, if any, and applies the
// global flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.Database != "" {
		cfg.Database.DSN = opts.Database
	}
	if opts.Driver != "" {
		cfg.Database.Driver = opts.Driver
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging installs the slog handler on w. --verbose forces debug.
func setupLogging(cfg *config.Config, verbose bool, w io.Writer) {
	level, _ := config.ParseLevel(cfg.Logging.Level)
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

// openSession loads the configuration, configures logging and opens the
// catalog. Callers close the session.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	setupLogging(cfg, opts.Verbose, cmd.ErrOrStderr())

	storeCfg, err := cfg.StoreConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	s := &session{cfg: cfg}
	if cfg.Telemetry.Metrics {
		s.registry = prometheus.NewRegistry()
		storeCfg.Registerer = s.registry
	}

	slog.Debug("opening catalog", "driver", cfg.Database.Driver, "dsn", cfg.Database.DSN)
	s.store, err = store.Open(ctx, storeCfg)
	if err != nil {
		return nil, WrapStoreError("failed to open catalog", err)
	}
	return s, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		slog.Error("error closing catalog", "error", err)
	}
}

// commandContext returns the command's context, cancelled on SIGINT or
// SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
