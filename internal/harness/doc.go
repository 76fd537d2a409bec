// Package harness runs reconciliation scenarios on virtual time.
//
// A scenario is a YAML file listing timed steps and assertions:
//
//	name: supersede_pending
//	steps:
//	  - at_ms: 0
//	    update: {id: A, accountType: t, tokens: 1, version: 1, callbackTimeMs: 50}
//	  - at_ms: 10
//	    update: {id: A, accountType: t, tokens: 2, version: 2, callbackTimeMs: 20}
//	  - at_ms: 15
//	    expect_complete: false
//	assertions:
//	  - type: event_count
//	    kind: superseded
//	    count: 1
//
// Steps run in order on a testutil.VirtualScheduler: the scheduler advances
// to each step's time (firing due settlements on the way), then the step's
// update is indexed or its completeness check evaluated. After the last step
// the scheduler drains. Each run numbers its events from 1, so
// the resulting trace is reproducible and suitable for golden comparison.
package harness
