package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roach88/redislist/internal/collection"
	"github.com/roach88/redislist/internal/config"
	"github.com/roach88/redislist/internal/journal"
	"github.com/roach88/redislist/internal/telemetry"
)

// runtime bundles what a command needs to talk to Redis: the resolved
// configuration, a connected client, metrics, and the journal if one is
// configured.
type runtime struct {
	cfg       config.Config
	client    *redis.Client
	journal   *journal.Store
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	formatter *OutputFormatter
}

// loadConfig resolves the configuration: file (or defaults), then
// environment, then flags.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(o.ConfigPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if o.Addr != "" {
		cfg.Redis.Addr = o.Addr
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// newLogger configures the default logger on w at the configured level.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// openRuntime connects to Redis and, if configured, opens the journal.
// Metrics are registered on reg when it is non-nil.
func (o *RootOptions) openRuntime(ctx context.Context, cmd *cobra.Command, reg prometheus.Registerer) (*runtime, error) {
	f := o.formatter(cmd)

	cfg, err := o.loadConfig()
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	rt := &runtime{
		cfg:       cfg,
		logger:    newLogger(cmd.ErrOrStderr(), cfg.Log.Level),
		formatter: f,
	}
	if reg != nil {
		rt.metrics = telemetry.NewMetrics(reg)
	}

	f.VerboseLog("Connecting to %s (db %d)", cfg.Redis.Addr, cfg.Redis.DB)
	rt.client = cfg.NewClient()
	if err := rt.client.Ping(ctx).Err(); err != nil {
		rt.client.Close()
		_ = f.Error(ErrCodeConnect, err.Error(), map[string]string{"addr": cfg.Redis.Addr})
		return nil, WrapExitError(ExitCommandError, "failed to connect to redis", err)
	}

	if cfg.Journal.Path != "" {
		f.VerboseLog("Opening journal %s", cfg.Journal.Path)
		rt.journal, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			rt.client.Close()
			_ = f.Error(ErrCodeJournal, err.Error(), nil)
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
	}
	return rt, nil
}

// adapterOptions returns the options every adapter of this run shares.
func (rt *runtime) adapterOptions() []collection.Option {
	opts := append(rt.cfg.AdapterOptions(),
		collection.WithLogger(rt.logger),
		collection.WithMetrics(rt.metrics),
	)
	if rt.journal != nil {
		opts = append(opts, collection.WithObserver(rt.journal))
	}
	return opts
}

// Close releases the client and the journal.
func (rt *runtime) Close() error {
	var jerr error
	if rt.journal != nil {
		jerr = rt.journal.Close()
	}
	if err := rt.client.Close(); err != nil {
		return err
	}
	return jerr
}
