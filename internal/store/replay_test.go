package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/settle/internal/ledger"
)

func TestReplayRun_Supersession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	v1 := createTestUpdate("A", "t", 1, 1)
	v2 := createTestUpdate("A", "t", 2, 2)
	b := createTestUpdate("B", "t", 1, 1)
	events := []ledger.Event{
		createTestEvent(1, ledger.EventIndexed, v1, 0),
		createTestEvent(2, ledger.EventIndexed, b, 0),
		createTestEvent(3, ledger.EventIndexed, v2, 5*time.Millisecond),
		createTestEvent(4, ledger.EventSuperseded, v1, 5*time.Millisecond),
		createTestEvent(5, ledger.EventIgnored, v1, 6*time.Millisecond),
		createTestEvent(6, ledger.EventSettled, b, 10*time.Millisecond),
		createTestEvent(7, ledger.EventSettled, v2, 25*time.Millisecond),
	}
	for _, e := range events {
		require.NoError(t, s.WriteEvent(ctx, "run-1", e))
	}

	state, err := s.ReplayRun(ctx, "run-1")
	require.NoError(t, err)

	assert.True(t, state.IsComplete)
	assert.Equal(t, 0, state.PendingCount)
	assert.Equal(t, int64(7), state.LastSeq)
	require.Len(t, state.Accounts, 2)
	assert.Equal(t, AccountState{ID: "A", Version: "v2", Settled: true, Superseded: 1, Ignored: 1}, state.Accounts[0])
	assert.Equal(t, AccountState{ID: "B", Version: "v1", Settled: true}, state.Accounts[1])
}

func TestReplayRun_Incomplete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	require.NoError(t, s.WriteEvent(ctx, "run-1", createTestEvent(1, ledger.EventIndexed, createTestUpdate("A", "t", 1, 1), 0)))

	state, err := s.ReplayRun(ctx, "run-1")
	require.NoError(t, err)
	assert.False(t, state.IsComplete)
	assert.Equal(t, 1, state.PendingCount)
}

func TestReplayRun_Empty(t *testing.T) {
	s := createTestStore(t)
	state, err := s.ReplayRun(context.Background(), "nothing")
	require.NoError(t, err)
	assert.True(t, state.IsComplete)
	assert.Empty(t, state.Accounts)
}
