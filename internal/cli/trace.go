package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/ledger"
	"github.com/roach88/settle/internal/report"
	"github.com/roach88/settle/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // empty selects the latest run
	Account  string // optional filter on account id
	Kind     string // optional filter on event kind
	List     bool
}

// TraceEvent is one journaled event in the trace timeline.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Version string `json:"version"`
	AtMs    int64  `json:"at_ms"`
	Hash    string `json:"update_hash"`
}

// TraceResult is the full trace of one run.
type TraceResult struct {
	Run      store.RunRecord  `json:"run"`
	Timeline []TraceEvent     `json:"timeline"`
	Top      []account.Update `json:"top"`
	Replay   store.RunState   `json:"replay"`

	events []ledger.Event
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect a journaled run",
		Long: `Read a run back from the SQLite journal written by "settle run --db".

The output includes:
- Run: input, final state and event counters
- Timeline: every ledger event in sequence order
- Top: the heaviest account per category (completed runs only)
- Replay: the ledger state implied by the events, useful for failed runs

Examples:
  settle trace --db ./settle.db
  settle trace --db ./settle.db --run 0190d6c4-... --account A
  settle trace --db ./settle.db --list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace (default: latest)")
	cmd.Flags().StringVar(&opts.Account, "account", "", "filter timeline to one account id")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter timeline to one event kind (indexed|ignored|superseded|settled)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list journaled runs instead of tracing one")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Kind != "" {
		if _, err := ledger.ParseEventKind(opts.Kind); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid --kind", err)
		}
	}

	// store.Open would create a missing file.
	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "journal not found: "+opts.Database, err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
	}
	defer st.Close()

	if opts.List {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to list runs", err)
		}
		return outputRuns(formatter, runs)
	}

	run, err := selectRun(ctx, st, opts.RunID)
	if errors.Is(err, store.ErrNoRuns) || errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "run not found", err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to read run", err)
	}
	formatter.VerboseLog("Tracing run %s", run.ID)

	result, err := buildTrace(ctx, st, run, opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to read trace", err)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	writeTraceText(formatter, result, opts)
	return nil
}

func selectRun(ctx context.Context, st *store.Store, runID string) (store.RunRecord, error) {
	if runID == "" {
		return st.LatestRun(ctx)
	}
	return st.GetRun(ctx, runID)
}

func buildTrace(ctx context.Context, st *store.Store, run store.RunRecord, opts *TraceOptions) (*TraceResult, error) {
	events, err := st.ReadEvents(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	top, err := st.ReadTop(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	replay, err := st.ReplayRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	result := &TraceResult{
		Run:      run,
		Timeline: []TraceEvent{},
		Top:      make([]account.Update, 0, len(top)),
		Replay:   replay,
	}
	for _, e := range events {
		if opts.Account != "" && e.Update.ID != opts.Account {
			continue
		}
		if opts.Kind != "" && e.Kind.String() != opts.Kind {
			continue
		}
		result.events = append(result.events, ledger.Event{Seq: e.Seq, Kind: e.Kind, Update: e.Update, At: e.At})
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:     e.Seq,
			Kind:    e.Kind.String(),
			ID:      e.Update.ID,
			Version: e.Update.Version.String(),
			AtMs:    e.At.Milliseconds(),
			Hash:    e.Hash,
		})
	}
	for _, r := range top {
		result.Top = append(result.Top, r.Update)
	}
	return result, nil
}

func writeTraceText(formatter *OutputFormatter, result *TraceResult, opts *TraceOptions) {
	w := formatter.Writer
	run := result.Run

	fmt.Fprintf(w, "Run %s (%s)\n", run.ID, run.State)
	fmt.Fprintf(w, "  input: %s (%d updates)\n", run.Input, run.Updates)
	if run.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", run.Error)
	}
	fmt.Fprintf(w, "  indexed=%d ignored=%d superseded=%d settled=%d\n",
		run.Stats.Indexed, run.Stats.Ignored, run.Stats.Superseded, run.Stats.Settled)

	fmt.Fprintln(w, "\nTimeline:")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, e := range result.events {
		fmt.Fprintf(w, "  [%3d] %s\n", e.Seq, report.FormatEvent(e))
	}

	fmt.Fprintf(w, "\nReplay: %d accounts, %d pending, complete=%v\n",
		len(result.Replay.Accounts), result.Replay.PendingCount, result.Replay.IsComplete)
	if opts.Verbose {
		for _, a := range result.Replay.Accounts {
			fmt.Fprintf(w, "  %s %s settled=%v superseded=%d ignored=%d\n",
				a.ID, a.Version, a.Settled, a.Superseded, a.Ignored)
		}
	}

	if len(result.Top) > 0 {
		report.WriteSummary(w, result.Top)
	}
}

func outputRuns(formatter *OutputFormatter, runs []store.RunRecord) error {
	if formatter.JSON() {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs journaled")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %-8s %4d updates  %s\n", r.ID, r.State, r.Updates, r.Input)
	}
	return nil
}
