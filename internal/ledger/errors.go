package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// IncompleteLedgerError reports that aggregation was attempted while
// settlements are still running. It signals a broken completeness barrier
// and is never retried.
type IncompleteLedgerError struct {
	// Pending lists the identities whose current update has not settled, sorted.
	Pending []string
}

// Error implements the error interface.
func (e *IncompleteLedgerError) Error() string {
	if len(e.Pending) == 0 {
		return "ledger incomplete: callbacks are still running"
	}
	return fmt.Sprintf("ledger incomplete: callbacks are still running (%d pending: %s)",
		len(e.Pending), strings.Join(e.Pending, ", "))
}

// IsIncomplete returns true if err is or wraps an IncompleteLedgerError.
func IsIncomplete(err error) bool {
	var ie *IncompleteLedgerError
	return errors.As(err, &ie)
}
