package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventKind_ParseRoundTrip(t *testing.T) {
	for _, k := range []EventKind{EventIndexed, EventIgnored, EventSuperseded, EventSettled} {
		got, err := ParseEventKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
}

func TestEventKind_Unknown(t *testing.T) {
	_, err := ParseEventKind("exploded")
	assert.Error(t, err)
	assert.Equal(t, "EventKind(99)", EventKind(99).String())
}

func TestObserverFunc(t *testing.T) {
	var got Event
	ObserverFunc(func(e Event) { got = e }).Observe(Event{Seq: 7})
	assert.Equal(t, int64(7), got.Seq)
}
