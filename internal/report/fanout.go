package report

import (
	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/ingest"
	"github.com/roach88/settle/internal/ledger"
)

// Fanout delivers every notification to each reporter in order.
type Fanout []ingest.Reporter

func (f Fanout) Observe(e ledger.Event) {
	for _, r := range f {
		r.Observe(e)
	}
}

func (f Fanout) Begin(runID string, batch []account.Update) {
	for _, r := range f {
		r.Begin(runID, batch)
	}
}

func (f Fanout) Complete(res *ingest.Result) {
	for _, r := range f {
		r.Complete(res)
	}
}

var _ ingest.Reporter = Fanout(nil)
