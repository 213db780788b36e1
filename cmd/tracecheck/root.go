package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"tracecheck/internal/config"
	"tracecheck/internal/logging"
	"tracecheck/internal/waiter"
)

// app carries what every subcommand needs once the root command has
// resolved configuration
type app struct {
	cfg    *config.Config
	logger *logging.Logger

	endpoint     string
	pollInterval time.Duration
	timeout      time.Duration
	debug        bool
	logLevel     string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	defaults := config.Default()

	root := &cobra.Command{
		Use:   "tracecheck",
		Short: "Collect OTLP traces and verify what was exported",
		Long: `tracecheck runs an in-memory OTLP collector, waits until an instrumented
process has exported the expected number of traces, and checks span, attribute
and event counts over the collected batch.

Settings come from TRACECHECK_* environment variables; flags take precedence.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.endpoint, "endpoint", defaults.Wait.CollectorEndpoint, "Collector base URL")
	flags.DurationVar(&a.pollInterval, "poll-interval", defaults.Wait.PollInterval, "Delay between collector polls")
	flags.DurationVar(&a.timeout, "timeout", defaults.Wait.Timeout, "How long to wait for traces")
	flags.BoolVar(&a.debug, "debug", false, "Log at debug level")
	flags.StringVar(&a.logLevel, "log-level", defaults.Logging.Level, "Log level (debug, info, warn, error)")

	root.AddCommand(
		newCollectorCmd(a),
		newWaitCmd(a),
		newVerifyCmd(a),
		newEmitCmd(a),
		newClearCmd(a),
		newSnapshotsCmd(a),
	)
	return root
}

// setup loads the environment configuration, applies explicitly set flags
// on top and builds the logger
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		logging.ReportStartupFailure(os.Stderr, err)
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Wait.CollectorEndpoint = a.endpoint
	}
	if flags.Changed("poll-interval") {
		cfg.Wait.PollInterval = a.pollInterval
	}
	if flags.Changed("timeout") {
		cfg.Wait.Timeout = a.timeout
	}
	if flags.Changed("debug") {
		cfg.Debug = a.debug
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Debug:       cfg.Debug,
	})
	if err != nil {
		logging.ReportStartupFailure(os.Stderr, err)
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) source() *waiter.HTTPSource {
	return waiter.NewHTTPSource(a.cfg.Wait.CollectorEndpoint)
}

func (a *app) newWaiter(src waiter.Source) *waiter.Waiter {
	return waiter.New(src,
		waiter.WithConfig(a.cfg.Wait),
		waiter.WithLogger(a.logger.Named("waiter")),
	)
}
