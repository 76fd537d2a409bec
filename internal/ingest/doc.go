// Package ingest drives one reconciliation run.
//
// A Coordinator loads a batch from its Source, dispatches every update to a
// fresh ledger after an independent random pre-delay, waits on the ledger's
// completeness barrier, and aggregates the settled entries into the top
// account per category.
//
// Run state progresses strictly forward:
//
//	Pending → Dispatching → AwaitingSettlement → Aggregating → Done
//
// Any error moves the run to Failed. A Coordinator runs at most once.
package ingest
