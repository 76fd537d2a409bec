package account

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/shopspring/decimal"
)

// Version is an optional, non-negative ordering token.
// The zero value is "absent" and compares as -1.
type Version struct {
	n   int64
	set bool
}

// NoVersion is the absent version.
var NoVersion = Version{}

// V returns an explicit version.
func V(n int64) Version {
	return Version{n: n, set: true}
}

// IsSet reports whether the version was supplied.
func (v Version) IsSet() bool {
	return v.set
}

// Value returns the comparable value: the explicit number, or -1 when absent.
func (v Version) Value() int64 {
	if !v.set {
		return -1
	}
	return v.n
}

// Less reports whether v orders strictly before o.
// Two absent versions are equal, so neither is less than the other.
func (v Version) Less(o Version) bool {
	return v.Value() < o.Value()
}

// String renders "v3", or "v?" when absent.
func (v Version) String() string {
	if !v.set {
		return "v?"
	}
	return fmt.Sprintf("v%d", v.n)
}

// Update is one account update event.
type Update struct {
	// ID is the identity key. One ledger entry exists per ID.
	ID string

	// Type is the category label used for aggregation.
	Type string

	// Tokens is the weight compared within a category.
	Tokens decimal.Decimal

	// Version orders updates for the same ID (last write wins).
	Version Version

	// CallbackTime is the settlement delay.
	CallbackTime time.Duration

	// StartTime is the injected dispatch offset, nil until the coordinator sets it.
	// Diagnostic only; it never affects reconciliation.
	StartTime *time.Duration

	// Data is the opaque payload.
	Data map[string]any
}

// WithStartTime returns a copy of u carrying the dispatch offset d.
func (u Update) WithStartTime(d time.Duration) Update {
	u.StartTime = &d
	return u
}

// Name renders the identity and version the way log lines show them, e.g. "A  v1".
func (u Update) Name() string {
	return fmt.Sprintf("%s %3s", u.ID, u.Version)
}

// wireUpdate is the JSON/YAML shape of an Update.
// Durations travel as integer milliseconds.
type wireUpdate struct {
	ID             string          `json:"id"`
	AccountType    string          `json:"accountType"`
	Tokens         decimal.Decimal `json:"tokens"`
	Version        *int64          `json:"version,omitempty"`
	CallbackTimeMs int64           `json:"callbackTimeMs"`
	StartTimeMs    *int64          `json:"startTimeMs,omitempty"`
	Data           map[string]any  `json:"data,omitempty"`
}

func (u Update) toWire() wireUpdate {
	w := wireUpdate{
		ID:             u.ID,
		AccountType:    u.Type,
		Tokens:         u.Tokens,
		CallbackTimeMs: u.CallbackTime.Milliseconds(),
		Data:           u.Data,
	}
	if u.Version.IsSet() {
		n := u.Version.Value()
		w.Version = &n
	}
	if u.StartTime != nil {
		ms := u.StartTime.Milliseconds()
		w.StartTimeMs = &ms
	}
	return w
}

func (w wireUpdate) toUpdate() Update {
	u := Update{
		ID:           w.ID,
		Type:         w.AccountType,
		Tokens:       w.Tokens,
		CallbackTime: time.Duration(w.CallbackTimeMs) * time.Millisecond,
		Data:         maps.Clone(w.Data),
	}
	if w.Version != nil {
		u.Version = V(*w.Version)
	}
	if w.StartTimeMs != nil {
		d := time.Duration(*w.StartTimeMs) * time.Millisecond
		u.StartTime = &d
	}
	return u
}

// MarshalJSON encodes the wire shape.
func (u Update) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.toWire())
}

// UnmarshalJSON decodes the wire shape.
func (u *Update) UnmarshalJSON(data []byte) error {
	var w wireUpdate
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*u = w.toUpdate()
	return nil
}
