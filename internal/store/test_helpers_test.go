package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/ledger"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun begins a run and fails the test on error.
func createTestRun(t *testing.T, s *Store, runID string) {
	t.Helper()
	if err := s.BeginRun(context.Background(), runID, "batch.json", 2); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
}

// createTestUpdate creates an update with minimal required fields.
func createTestUpdate(id, typ string, tokens int64, version int64) account.Update {
	return account.Update{
		ID:           id,
		Type:         typ,
		Tokens:       decimal.NewFromInt(tokens),
		Version:      account.V(version),
		CallbackTime: 10 * time.Millisecond,
	}
}

func createTestEvent(seq int64, kind ledger.EventKind, u account.Update, at time.Duration) ledger.Event {
	return ledger.Event{Seq: seq, Kind: kind, Update: u, At: at}
}
