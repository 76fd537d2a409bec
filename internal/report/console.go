package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/ingest"
	"github.com/roach88/settle/internal/ledger"
)

// Console writes one line per ledger event and a summary table on completion:
//
//	  20ms: A  v2: indexed
//	  20ms: A  v1: callback canceled
//	  40ms: A  v2: callback fired: {"note":"x"}
//
// Lines are queued and written by a background goroutine, so a slow writer
// never stalls the ledger. Call Close after the run to flush.
//
// Thread-safety: safe for concurrent use.
type Console struct {
	w    io.Writer
	q    *queue[string]
	done chan struct{}
}

// NewConsole returns a console reporter writing to w.
func NewConsole(w io.Writer) *Console {
	c := &Console{
		w:    w,
		q:    newQueue[string](),
		done: make(chan struct{}),
	}
	go c.drain()
	return c
}

// Observe queues the event line.
func (c *Console) Observe(e ledger.Event) {
	c.q.Enqueue(FormatEvent(e) + "\n")
}

// Begin is a no-op; the console only reports events and the summary.
func (c *Console) Begin(string, []account.Update) {}

// Complete queues the summary table.
func (c *Console) Complete(res *ingest.Result) {
	var b strings.Builder
	WriteSummary(&b, res.Top)
	c.q.Enqueue(b.String())
}

// Close flushes queued output. Output reported afterwards is dropped.
// Safe to call more than once.
func (c *Console) Close() {
	c.q.Close()
	<-c.done
}

func (c *Console) drain() {
	defer close(c.done)
	for {
		s, ok := c.q.Dequeue()
		if !ok {
			return
		}
		// Write errors are dropped; reporting never fails the run.
		io.WriteString(c.w, s)
	}
}

// FormatEvent renders one event as a console line.
func FormatEvent(e ledger.Event) string {
	prefix := fmt.Sprintf("%4dms: %s", e.At.Milliseconds(), e.Update.Name())
	switch e.Kind {
	case ledger.EventIndexed:
		return prefix + ": indexed"
	case ledger.EventIgnored:
		return prefix + ": ignored"
	case ledger.EventSuperseded:
		return prefix + ": callback canceled"
	case ledger.EventSettled:
		return prefix + ": callback fired: " + formatData(e.Update.Data)
	default:
		return prefix + ": " + e.Kind.String()
	}
}

func formatData(data map[string]any) string {
	if data == nil {
		return "{}"
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}

// WriteSummary writes the top account per category:
//
//	=== Summary ===
//
//	        savings:  B  v1:	 30 tokens
func WriteSummary(w io.Writer, top []account.Update) {
	fmt.Fprint(w, "\n=== Summary ===\n\n")
	for _, u := range top {
		fmt.Fprintf(w, "%15s:  %s:\t %s tokens\n", u.Type, u.Name(), u.Tokens.String())
	}
}

var _ ingest.Reporter = (*Console)(nil)
