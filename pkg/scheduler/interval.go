package scheduler

import (
	"strings"
	"time"
)

// Interval is an agent's decision cadence. The set mirrors common exchange
// candle intervals so an agent's wake cadence can line up with the market
// series it reasons over.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval1h:  time.Hour,
	Interval4h:  4 * time.Hour,
	Interval1d:  24 * time.Hour,
}

// NormalizeInterval maps a raw string onto the supported set. Unknown or empty
// values fall back to 1h rather than failing, so a misconfigured agent still
// runs at a sane cadence.
func NormalizeInterval(raw string) Interval {
	iv := Interval(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := intervalDurations[iv]; ok {
		return iv
	}
	return Interval1h
}

// Valid reports whether the interval belongs to the supported set.
func (i Interval) Valid() bool {
	_, ok := intervalDurations[i]
	return ok
}

// Duration converts the interval to a wall-clock duration. Unknown values
// resolve to one hour, matching NormalizeInterval's fallback.
func (i Interval) Duration() time.Duration {
	if d, ok := intervalDurations[i]; ok {
		return d
	}
	return time.Hour
}
