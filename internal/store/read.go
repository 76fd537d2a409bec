package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/ledger"
)

// ErrNoRuns is returned by LatestRun on an empty journal.
var ErrNoRuns = errors.New("journal has no runs")

// RunRecord is a journaled run.
type RunRecord struct {
	ID      string       `json:"id"`
	Input   string       `json:"input"`
	Updates int          `json:"updates"`
	State   string       `json:"state"`
	Error   string       `json:"error,omitempty"`
	Stats   ledger.Stats `json:"stats"`
}

// EventRecord is a journaled ledger event.
type EventRecord struct {
	RunID  string           `json:"run_id"`
	Seq    int64            `json:"seq"`
	Kind   ledger.EventKind `json:"-"`
	At     time.Duration    `json:"-"`
	Hash   string           `json:"update_hash"`
	Update account.Update   `json:"update"`
}

// ResultRecord is a journaled final entry.
type ResultRecord struct {
	RunID  string         `json:"run_id"`
	Top    bool           `json:"top"`
	Hash   string         `json:"update_hash"`
	Update account.Update `json:"update"`
}

const runColumns = `id, input, updates, state, error, indexed, ignored, superseded, settled`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var r RunRecord
	err := row.Scan(&r.ID, &r.Input, &r.Updates, &r.State, &r.Error,
		&r.Stats.Indexed, &r.Stats.Ignored, &r.Stats.Superseded, &r.Stats.Settled)
	return r, err
}

// GetRun retrieves a run by id. Returns sql.ErrNoRows if not found.
func (s *Store) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// LatestRun returns the most recently begun run, or ErrNoRuns.
func (s *Store) LatestRun(ctx context.Context) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY ordinal DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrNoRuns
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// ListRuns returns all runs, newest first.
// Returns an empty slice (not nil) on an empty journal.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY ordinal DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEvents returns a run's events ordered by seq ASC.
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, version, at_ms, update_hash, payload
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []EventRecord{}
	for rows.Next() {
		var (
			e       EventRecord
			kind    string
			version sql.NullInt64
			atMs    int64
			payload string
		)
		if err := rows.Scan(&e.RunID, &e.Seq, &kind, &version, &atMs, &e.Hash, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.Kind, err = ledger.ParseEventKind(kind); err != nil {
			return nil, fmt.Errorf("event %d: %w", e.Seq, err)
		}
		if e.Update, err = unmarshalUpdate(payload); err != nil {
			return nil, fmt.Errorf("event %d: %w", e.Seq, err)
		}
		e.Update.Version = versionFromNull(version)
		e.At = time.Duration(atMs) * time.Millisecond
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadResults returns a run's final entries ordered by account id.
// Returns an empty slice (not nil) if none were written.
func (s *Store) ReadResults(ctx context.Context, runID string) ([]ResultRecord, error) {
	return s.readResults(ctx, `
		SELECT run_id, top, update_hash, payload
		FROM results
		WHERE run_id = ?
		ORDER BY account_id COLLATE BINARY ASC
	`, runID)
}

// ReadTop returns a run's category winners ordered by category.
func (s *Store) ReadTop(ctx context.Context, runID string) ([]ResultRecord, error) {
	return s.readResults(ctx, `
		SELECT run_id, top, update_hash, payload
		FROM results
		WHERE run_id = ? AND top = 1
		ORDER BY account_type COLLATE BINARY ASC
	`, runID)
}

func (s *Store) readResults(ctx context.Context, query, runID string) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []ResultRecord{}
	for rows.Next() {
		var (
			r       ResultRecord
			payload string
		)
		if err := rows.Scan(&r.RunID, &r.Top, &r.Hash, &payload); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if r.Update, err = unmarshalUpdate(payload); err != nil {
			return nil, fmt.Errorf("result %s: %w", r.Hash, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
