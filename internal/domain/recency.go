package domain

import "time"

// RecencyPeak is the weight of a brand-new event. Values above 1.0 give
// fresh events a brief visual "pop" before they settle into the fading
// trail.
const RecencyPeak = 1.5

// flashFraction is the leading slice of the rolling window during which an
// event decays from RecencyPeak down to 1.0.
const flashFraction = 0.1

// endedMultiplier scales an event type's expected update interval into its
// inactivity threshold.
const endedMultiplier = 4

// Recency computes the fade/visibility weight of an event at the given
// current time against a rolling window:
//
//	age < 0             → RecencyPeak (future events clamp to the peak)
//	age in first 10%    → linear decay RecencyPeak → 1.0 (the flash period)
//	age in final 90%    → linear decay 1.0 → 0.0
//	age ≥ window        → 0 (aged out of the window)
//
// A non-positive window makes every event invisible.
func Recency(eventTime, currentTime time.Time, window time.Duration) float64 {
	if window <= 0 {
		return 0
	}

	age := currentTime.Sub(eventTime)
	if age < 0 {
		return RecencyPeak
	}
	if age >= window {
		return 0
	}

	flash := time.Duration(float64(window) * flashFraction)
	if age < flash {
		t := float64(age) / float64(flash)
		return RecencyPeak - t*(RecencyPeak-1.0)
	}

	t := float64(age-flash) / float64(window-flash)
	return 1.0 - t
}

// IsEventEnded reports whether a continuous event has gone inactive:
// no data update within 4× its expected update interval. Point-instant
// types (earthquakes, tornado touchdowns, hail reports) never "end"; they
// just age out of the rolling window. When the event type's update
// interval is unknown, fallback (typically the session granularity step)
// sizes the threshold instead.
func IsEventEnded(eventType string, lastUpdate, currentTime time.Time, fallback time.Duration) bool {
	if !IsContinuousType(eventType) {
		return false
	}
	interval, ok := UpdateInterval(eventType)
	if !ok {
		interval = fallback
	}
	if interval <= 0 {
		return false
	}
	return currentTime.Sub(lastUpdate) > endedMultiplier*interval
}
