package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/settle/internal/ledger"
)

// AccountState is one account's reconstructed ledger entry.
type AccountState struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Settled bool   `json:"settled"`

	// Superseded counts updates for this account whose settlement was cancelled.
	Superseded int `json:"superseded"`
	Ignored    int `json:"ignored"`
}

// RunState is a run's ledger reconstructed from its journaled events.
// Useful after a failed or cancelled run, whose results table is empty.
type RunState struct {
	RunID    string         `json:"run_id"`
	Accounts []AccountState `json:"accounts"`
	LastSeq  int64          `json:"last_seq"`

	// IsComplete is true when every reconstructed entry settled.
	IsComplete   bool `json:"is_complete"`
	PendingCount int  `json:"pending_count"`
}

// ReplayRun folds a run's events into the ledger state they imply.
// Accounts are ordered by id.
func (s *Store) ReplayRun(ctx context.Context, runID string) (RunState, error) {
	state := RunState{RunID: runID, Accounts: []AccountState{}}

	events, err := s.ReadEvents(ctx, runID)
	if err != nil {
		return state, fmt.Errorf("replay run: %w", err)
	}

	accounts := make(map[string]*AccountState)
	get := func(id string) *AccountState {
		a, ok := accounts[id]
		if !ok {
			a = &AccountState{ID: id}
			accounts[id] = a
		}
		return a
	}

	for _, e := range events {
		if e.Seq > state.LastSeq {
			state.LastSeq = e.Seq
		}
		a := get(e.Update.ID)
		switch e.Kind {
		case ledger.EventIndexed:
			a.Version = e.Update.Version.String()
			a.Settled = false
		case ledger.EventIgnored:
			a.Ignored++
		case ledger.EventSuperseded:
			a.Superseded++
		case ledger.EventSettled:
			a.Settled = true
		}
	}

	for _, a := range accounts {
		if !a.Settled {
			state.PendingCount++
		}
		state.Accounts = append(state.Accounts, *a)
	}
	sort.Slice(state.Accounts, func(i, j int) bool { return state.Accounts[i].ID < state.Accounts[j].ID })
	state.IsComplete = state.PendingCount == 0

	return state, nil
}
