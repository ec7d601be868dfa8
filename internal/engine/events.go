package engine

import (
	"time"

	"quantbt/types"
)

// eventQueue is the run-scoped FIFO behind the event stream. Seq numbers
// are handed out at enqueue time and never reused, so events with equal
// timestamps pop in the order they were enqueued.
type eventQueue struct {
	events []types.Event
	head   int
	seq    uint64
}

func newEventQueue() *eventQueue {
	return &eventQueue{}
}

func (q *eventQueue) push(kind types.EventType, ts time.Time, symbol string, payload any) types.Event {
	q.seq++
	ev := types.Event{
		Type:      kind,
		Timestamp: ts,
		Seq:       q.seq,
		Symbol:    symbol,
		Payload:   payload,
	}
	q.events = append(q.events, ev)
	return ev
}

func (q *eventQueue) pop() (types.Event, bool) {
	if q.head >= len(q.events) {
		return types.Event{}, false
	}
	ev := q.events[q.head]
	q.head++
	return ev, true
}

func (q *eventQueue) len() int {
	return len(q.events) - q.head
}

// drain discards processed events so a long run does not hold the whole
// stream in memory. Events are never persisted past a run anyway.
func (q *eventQueue) drain() {
	q.events = q.events[:0]
	q.head = 0
}
