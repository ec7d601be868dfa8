package types

import "time"

type Interval string

const (
	OneMinute      Interval = "1min"
	FiveMinutes    Interval = "5min"
	FifteenMinutes Interval = "15min"
	ThirtyMinutes  Interval = "30min"
	Hour           Interval = "1h"
	FourHours      Interval = "4h"
	Day            Interval = "1d"
	Week           Interval = "1w"
)

var IntervalToDuration = map[Interval]time.Duration{
	OneMinute:      time.Minute,
	FiveMinutes:    time.Minute * 5,
	FifteenMinutes: time.Minute * 15,
	ThirtyMinutes:  time.Minute * 30,
	Hour:           time.Hour,
	FourHours:      time.Hour * 4,
	Day:            time.Hour * 24,
	Week:           time.Hour * 24 * 7,
}

// PeriodsPerYear is used to annualize returns and volatilities computed at
// a given bar frequency. Assumes 252 trading days and 6.5 trading hours per
// day for intraday intervals.
var PeriodsPerYear = map[Interval]float64{
	OneMinute:      252 * 390,
	FiveMinutes:    252 * 78,
	FifteenMinutes: 252 * 26,
	ThirtyMinutes:  252 * 13,
	Hour:           252 * 6.5,
	FourHours:      252 * 1.625,
	Day:            252,
	Week:           52,
}

func ParseInterval(s string) (Interval, bool) {
	iv := Interval(s)
	_, ok := IntervalToDuration[iv]
	return iv, ok
}
