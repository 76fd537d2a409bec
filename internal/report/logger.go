package report

import (
	"context"
	"log/slog"

	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/ingest"
	"github.com/roach88/settle/internal/ledger"
)

// Logger emits structured records: events at debug, bookends at info.
type Logger struct {
	logger *slog.Logger
}

// NewLogger returns a reporter writing to logger.
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

// Observe logs the event at debug level.
func (l *Logger) Observe(e ledger.Event) {
	if !l.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	l.logger.Debug("ledger event",
		"seq", e.Seq,
		"kind", e.Kind.String(),
		"id", e.Update.ID,
		"version", e.Update.Version.String(),
		"at", e.At,
	)
}

// Begin logs the batch size.
func (l *Logger) Begin(runID string, batch []account.Update) {
	l.logger.Info("run started", "run_id", runID, "updates", len(batch))
}

// Complete logs the outcome counters.
func (l *Logger) Complete(res *ingest.Result) {
	l.logger.Info("run complete",
		"run_id", res.RunID,
		"accounts", len(res.Accounts),
		"categories", len(res.Top),
		"indexed", res.Stats.Indexed,
		"ignored", res.Stats.Ignored,
		"superseded", res.Stats.Superseded,
		"settled", res.Stats.Settled,
	)
}

var _ ingest.Reporter = (*Logger)(nil)
