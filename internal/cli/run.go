package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/settle/internal/clock"
	"github.com/roach88/settle/internal/config"
	"github.com/roach88/settle/internal/ingest"
	"github.com/roach88/settle/internal/parser"
	"github.com/roach88/settle/internal/report"
	"github.com/roach88/settle/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath  string
	EnvFile     string
	Database    string
	JitterMinMs int64
	JitterMaxMs int64
	NoJitter    bool
	Seed        uint64

	// Lookup overrides environment lookup (for testing).
	// If nil, defaults to os.LookupEnv.
	Lookup config.LookupFunc

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs ingest.RunIDGenerator
}

// RunOutput is the JSON payload of a completed run.
type RunOutput struct {
	Input   string `json:"input"`
	Journal string `json:"journal,omitempty"`
	*ingest.Result
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [batch-file]",
		Short: "Reconcile a batch of account updates",
		Long: `Load a JSON or YAML batch of account updates, dispatch each one after a
random jitter, wait for every accepted update to settle, and print the
heaviest account per category.

The batch location comes from the argument, the --config file's "input"
key, or INPUT_PATH (also read from .env), in that order of precedence.

Examples:
  settle run ./updates.json
  settle run --db ./settle.db --no-jitter ./updates.yaml
  INPUT_PATH=./updates.json settle run --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return runSettle(opts, input, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "path to dotenv file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (disabled if empty)")
	cmd.Flags().Int64Var(&opts.JitterMinMs, "jitter-min-ms", 0, "minimum dispatch jitter in milliseconds")
	cmd.Flags().Int64Var(&opts.JitterMaxMs, "jitter-max-ms", 1000, "maximum dispatch jitter in milliseconds")
	cmd.Flags().BoolVar(&opts.NoJitter, "no-jitter", false, "dispatch every update immediately")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed the jitter source for a reproducible dispatch order")

	return cmd
}

// resolveConfig layers defaults, config file, environment and flags.
func (o *RunOptions) resolveConfig(input string, cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotenv(o.EnvFile); err != nil {
		return config.Config{}, err
	}
	lookup := o.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg, err := config.Load(o.ConfigPath, lookup)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if input != "" {
		cfg.Input = input
	}
	if flags.Changed("db") {
		cfg.Journal = o.Database
	}
	if flags.Changed("jitter-min-ms") {
		cfg.JitterMinMs = o.JitterMinMs
	}
	if flags.Changed("jitter-max-ms") {
		cfg.JitterMaxMs = o.JitterMaxMs
	}
	if o.NoJitter {
		cfg.JitterMinMs, cfg.JitterMaxMs = 0, 0
	}
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func runSettle(opts *RunOptions, input string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := opts.resolveConfig(input, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	logger.Debug("configuration resolved",
		"input", cfg.Input,
		"journal", cfg.Journal,
		"jitter_min_ms", cfg.JitterMinMs,
		"jitter_max_ms", cfg.JitterMaxMs,
	)

	reporters := report.Fanout{report.NewLogger(logger)}
	var console *report.Console
	if !formatter.JSON() {
		console = report.NewConsole(formatter.Writer)
		defer console.Close()
		reporters = append(reporters, console)
	}

	var journal *report.Journal
	if cfg.Journal != "" {
		st, err := store.Open(cfg.Journal)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
		}
		defer st.Close()
		journal = report.NewJournal(st, cfg.Input, logger)
		reporters = append(reporters, journal)
	}

	random := ingest.NewUniformRandom()
	if cmd.Flags().Changed("seed") {
		random = ingest.NewSeededRandom(opts.Seed)
	}
	jitterMin, jitterMax := cfg.Jitter()

	coordOpts := []ingest.Option{
		ingest.WithRandom(random),
		ingest.WithJitter(jitterMin, jitterMax),
		ingest.WithReporter(reporters),
		ingest.WithLogger(logger),
	}
	if opts.RunIDs != nil {
		coordOpts = append(coordOpts, ingest.WithRunIDGenerator(opts.RunIDs))
	}
	coord := ingest.New(parser.FileSource{Path: cfg.Input}, clock.NewRealScheduler(), coordOpts...)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, cancelling run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	res, runErr := coord.Run(ctx)

	// Flush event lines before the summary or error is printed.
	if console != nil {
		console.Close()
	}
	if journal != nil {
		if err := journal.Close(runErr); err != nil {
			logger.Warn("journal incomplete", "path", cfg.Journal, "failures", journal.Failures(), "error", err)
		}
	}

	if runErr != nil {
		code, exit := classify(runErr)
		return formatter.Fail(exit, code, "run failed", runErr)
	}

	formatter.VerboseLog("run %s: %d accounts, %d categories in %s",
		res.RunID, len(res.Accounts), len(res.Top), res.Elapsed)
	if formatter.JSON() {
		return formatter.Success(RunOutput{Input: cfg.Input, Journal: cfg.Journal, Result: res})
	}
	return nil
}
