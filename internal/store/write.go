package store

import (
	"context"
	"fmt"

	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/ledger"
)

// Run states as journaled.
const (
	RunRunning = "running"
	RunDone    = "done"
	RunFailed  = "failed"
)

// BeginRun records the start of a run.
// Uses ON CONFLICT(id) DO NOTHING; beginning a run twice is a no-op.
func (s *Store) BeginRun(ctx context.Context, runID, input string, updates int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, input, updates, state)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, runID, input, updates, RunRunning)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// WriteEvent appends one ledger event to a run's journal.
// Uses ON CONFLICT DO NOTHING: the (run, seq) pair identifies an event.
//
// Note: the run must exist (foreign key constraint).
func (s *Store) WriteEvent(ctx context.Context, runID string, e ledger.Event) error {
	payload, hash, err := marshalUpdate(e.Update)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(run_id, seq, kind, account_id, version, at_ms, update_hash, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		e.Seq,
		e.Kind.String(),
		e.Update.ID,
		versionArg(e.Update.Version),
		e.At.Milliseconds(),
		hash,
		payload,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// WriteResults stores a run's final entries in one transaction. Entries
// whose identity appears in top are flagged as their category's winner.
func (s *Store) WriteResults(ctx context.Context, runID string, accounts, top []account.Update) error {
	winners := make(map[string]bool, len(top))
	for _, u := range top {
		winners[u.ID] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write results: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (run_id, account_id, account_type, top, update_hash, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, account_id) DO UPDATE SET
			account_type = excluded.account_type,
			top = excluded.top,
			update_hash = excluded.update_hash,
			payload = excluded.payload
	`)
	if err != nil {
		return fmt.Errorf("write results: prepare: %w", err)
	}
	defer stmt.Close()

	for _, u := range accounts {
		payload, hash, err := marshalUpdate(u)
		if err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, u.ID, u.Type, winners[u.ID], hash, payload); err != nil {
			return fmt.Errorf("write results: insert %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write results: commit: %w", err)
	}
	return nil
}

// FinishRun records a run's terminal state and counters.
// A nil runErr marks the run done; otherwise failed with the error text.
func (s *Store) FinishRun(ctx context.Context, runID string, stats ledger.Stats, runErr error) error {
	state, msg := RunDone, ""
	if runErr != nil {
		state, msg = RunFailed, runErr.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET state = ?, error = ?, indexed = ?, ignored = ?, superseded = ?, settled = ?
		WHERE id = ?
	`, state, msg, stats.Indexed, stats.Ignored, stats.Superseded, stats.Settled, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: unknown run %q", runID)
	}
	return nil
}
