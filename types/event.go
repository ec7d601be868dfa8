package types

import "time"

type EventType string

const (
	EventMarketOpen  EventType = "MARKET_OPEN"
	EventMarketClose EventType = "MARKET_CLOSE"
	EventBar         EventType = "BAR"
	EventSignal      EventType = "SIGNAL"
	EventOrder       EventType = "ORDER"
	EventFill        EventType = "FILL"
	EventCustom      EventType = "CUSTOM"
)

// Event is one entry in a run's event stream. Seq is assigned at enqueue
// time and is strictly monotonic within a run, so two events with the same
// timestamp resolve in enqueue order. Events live only for the duration of
// a single run.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Seq       uint64
	Symbol    string
	Payload   any
}

// Before reports whether e is ordered strictly ahead of other in
// (timestamp, sequence) order.
func (e Event) Before(other Event) bool {
	if !e.Timestamp.Equal(other.Timestamp) {
		return e.Timestamp.Before(other.Timestamp)
	}
	return e.Seq < other.Seq
}
