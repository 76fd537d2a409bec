// Package account defines the Update record that flows through the ledger.
//
// An Update is immutable once received. It carries an identity, a category
// label, a weight, an optional version, a settlement delay and an opaque
// payload. Versions order updates for the same identity: an absent version
// compares as -1 and therefore loses to any explicit version.
//
// Canonical serialization (canonical.go) and content fingerprints (hash.go)
// give every Update a stable identity for the run journal.
package account
