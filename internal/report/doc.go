// Package report implements the run's reporting collaborators.
//
// Every reporter satisfies ingest.Reporter: it observes ledger events and
// receives the run's Begin and Complete notifications. Reporting is fire and
// forget; no reporter can fail or stall a run.
//
//   - Console: human-readable event log and summary table
//   - Logger: structured slog records per event
//   - Journal: asynchronous sqlite journal (see internal/store)
//   - Fanout: delivers to several reporters in order
package report
