package cli

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/ledger"
	"github.com/roach88/settle/internal/store"
)

func traceUpdate(id string, version, tokens int64, note string) account.Update {
	u := account.Update{
		ID:           id,
		Type:         "savings",
		Tokens:       decimal.NewFromInt(tokens),
		Version:      account.V(version),
		CallbackTime: 20 * time.Millisecond,
	}
	if note != "" {
		u.Data = map[string]any{"note": note}
	}
	return u
}

// setupTraceJournal journals one completed run (supersession of A) and one
// failed run (B never settled), in that order.
func setupTraceJournal(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "settle.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	a1 := traceUpdate("A", 1, 10, "first")
	a2 := traceUpdate("A", 2, 20, "second")
	require.NoError(t, st.BeginRun(ctx, "run-1", "updates.json", 2))
	for _, e := range []ledger.Event{
		{Seq: 1, Kind: ledger.EventIndexed, Update: a1, At: 0},
		{Seq: 2, Kind: ledger.EventIndexed, Update: a2, At: 10 * time.Millisecond},
		{Seq: 3, Kind: ledger.EventSuperseded, Update: a1, At: 10 * time.Millisecond},
		{Seq: 4, Kind: ledger.EventSettled, Update: a2, At: 30 * time.Millisecond},
	} {
		require.NoError(t, st.WriteEvent(ctx, "run-1", e))
	}
	require.NoError(t, st.WriteResults(ctx, "run-1", []account.Update{a2}, []account.Update{a2}))
	require.NoError(t, st.FinishRun(ctx, "run-1", ledger.Stats{Indexed: 2, Superseded: 1, Settled: 1}, nil))

	b1 := traceUpdate("B", 1, 5, "")
	require.NoError(t, st.BeginRun(ctx, "run-2", "other.json", 1))
	require.NoError(t, st.WriteEvent(ctx, "run-2", ledger.Event{Seq: 1, Kind: ledger.EventIndexed, Update: b1}))
	require.NoError(t, st.FinishRun(ctx, "run-2", ledger.Stats{Indexed: 1}, errors.New("await settlement: context canceled")))

	return db
}

func TestTraceCommandMissingDB(t *testing.T) {
	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestTraceNonExistentJournal(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.db")
	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "journal not found")
	assert.NoFileExists(t, missing)
}

func TestTraceCompletedRunText(t *testing.T) {
	db := setupTraceJournal(t)

	stdout, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", db, "--run", "run-1")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Run run-1 (done)")
	assert.Contains(t, stdout, "input: updates.json (2 updates)")
	assert.Contains(t, stdout, "indexed=2 ignored=0 superseded=1 settled=1")
	assert.Contains(t, stdout, "[  3]   10ms: A  v1: callback canceled")
	assert.Contains(t, stdout, `[  4]   30ms: A  v2: callback fired: {"note":"second"}`)
	assert.Contains(t, stdout, "Replay: 1 accounts, 0 pending, complete=true")
	assert.Contains(t, stdout, "        savings:  A  v2:\t 20 tokens")
}

func TestTraceDefaultsToLatestRun(t *testing.T) {
	db := setupTraceJournal(t)

	stdout, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Run run-2 (failed)")
	assert.Contains(t, stdout, "error: await settlement: context canceled")
	assert.Contains(t, stdout, "Replay: 1 accounts, 1 pending, complete=false")
	assert.NotContains(t, stdout, "=== Summary ===")
}

func TestTraceJSON(t *testing.T) {
	db := setupTraceJournal(t)

	stdout, _, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", db, "--run", "run-1")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), stdout)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.Data.Run.ID)
	require.Len(t, resp.Data.Timeline, 4)
	assert.Equal(t, TraceEvent{Seq: 3, Kind: "superseded", ID: "A", Version: "v1", AtMs: 10, Hash: resp.Data.Timeline[2].Hash},
		resp.Data.Timeline[2])
	assert.Equal(t, account.MustFingerprint(traceUpdate("A", 1, 10, "first")), resp.Data.Timeline[2].Hash)
	require.Len(t, resp.Data.Top, 1)
	assert.Equal(t, account.V(2), resp.Data.Top[0].Version)
	assert.True(t, resp.Data.Replay.IsComplete)
}

func TestTraceFilters(t *testing.T) {
	db := setupTraceJournal(t)

	stdout, _, err := execute(NewTraceCommand(&RootOptions{Format: "json"}),
		"--db", db, "--run", "run-1", "--kind", "indexed")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.Timeline, 2)
	for _, e := range resp.Data.Timeline {
		assert.Equal(t, "indexed", e.Kind)
	}

	stdout, _, err = execute(NewTraceCommand(&RootOptions{Format: "text"}),
		"--db", db, "--run", "run-1", "--account", "Z")
	require.NoError(t, err)
	assert.Contains(t, stdout, "(no events)")
}

func TestTraceInvalidKind(t *testing.T) {
	db := setupTraceJournal(t)
	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", db, "--kind", "fired")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceUnknownRun(t *testing.T) {
	db := setupTraceJournal(t)

	stdout, _, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", db, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestTraceEmptyJournal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, _, err = execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", db)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNoRuns)

	stdout, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", db, "--list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs journaled")
}

func TestTraceList(t *testing.T) {
	db := setupTraceJournal(t)

	stdout, _, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", db, "--list")
	require.NoError(t, err)

	var resp struct {
		Data []store.RunRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "run-2", resp.Data[0].ID)
	assert.Equal(t, store.RunFailed, resp.Data[0].State)
	assert.Equal(t, "run-1", resp.Data[1].ID)
}
