package engine

import (
	"testing"
	"time"

	"quantbt/types"
)

func TestEventQueueOrdering(t *testing.T) {
	q := newEventQueue()
	ts := time.UnixMilli(1).UTC()

	// Same timestamp throughout: ordering falls back to enqueue order.
	q.push(types.EventMarketOpen, ts, "", nil)
	q.push(types.EventBar, ts, "AAPL", nil)
	q.push(types.EventOrder, ts, "AAPL", nil)
	q.push(types.EventFill, ts, "AAPL", nil)
	q.push(types.EventMarketClose, ts, "", nil)

	want := []types.EventType{
		types.EventMarketOpen,
		types.EventBar,
		types.EventOrder,
		types.EventFill,
		types.EventMarketClose,
	}

	var prev types.Event
	for i, kind := range want {
		ev, ok := q.pop()
		if !ok {
			t.Fatalf("queue exhausted at %d", i)
		}
		if ev.Type != kind {
			t.Fatalf("event %d: got %s, want %s", i, ev.Type, kind)
		}
		if i > 0 && !prev.Before(ev) {
			t.Fatalf("event %d does not sort after its predecessor", i)
		}
		prev = ev
	}
	if _, ok := q.pop(); ok {
		t.Fatalf("queue should be empty")
	}
}

func TestEventQueueSeqSurvivesDrain(t *testing.T) {
	q := newEventQueue()
	ts := time.UnixMilli(1).UTC()

	first := q.push(types.EventBar, ts, "AAPL", nil)
	q.drain()
	second := q.push(types.EventBar, ts, "AAPL", nil)

	if q.len() != 1 {
		t.Fatalf("len after drain+push: got %d", q.len())
	}
	if second.Seq <= first.Seq {
		t.Fatalf("seq must stay monotonic across drains: %d then %d", first.Seq, second.Seq)
	}
}
