package ingest

import "fmt"

// State is the coordinator's position in a run.
type State int32

const (
	StatePending State = iota
	StateDispatching
	StateAwaitingSettlement
	StateAggregating
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StatePending:            "pending",
	StateDispatching:        "dispatching",
	StateAwaitingSettlement: "awaiting_settlement",
	StateAggregating:        "aggregating",
	StateDone:               "done",
	StateFailed:             "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
