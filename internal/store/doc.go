// Package store provides a SQLite journal of reconciliation runs.
//
// The journal is a reporting sink, not recovery state. It records:
//   - Runs: one row per coordinator run with its final state and counters
//   - Events: every ledger event in sequence order
//   - Results: the final entry per account, flagged when it topped its category
//
// Ordering uses the ledger's event sequence and logical time, never wall
// time, so a journal of a virtual-time run is byte-for-byte reproducible.
// Queries order by seq ASC, then id COLLATE BINARY where ties are possible.
//
// Update payloads are stored as wire JSON; each row also carries the
// update's content fingerprint (account.Fingerprint).
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
