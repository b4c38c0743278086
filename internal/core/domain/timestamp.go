package domain

import "time"

const (
	// millisThreshold is the smallest raw value treated as milliseconds.
	millisThreshold int64 = 1_000_000_000_000
	// secondsThreshold is the smallest raw value treated as seconds.
	secondsThreshold int64 = 1_000_000_000
)

// NormalizeTimestamp converts a raw forum timestamp to an instant.
//
// Values >= 10^12 are milliseconds. Values in [10^9, 10^12) are seconds.
// Anything else is invalid and ok is false.
func NormalizeTimestamp(raw int64) (t time.Time, ok bool) {
	ms, ok := NormalizeMillis(raw)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// NormalizeMillis is NormalizeTimestamp expressed in epoch milliseconds.
func NormalizeMillis(raw int64) (int64, bool) {
	switch {
	case raw >= millisThreshold:
		return raw, true
	case raw >= secondsThreshold:
		return raw * 1000, true
	default:
		return 0, false
	}
}

// LatestTimestamp returns the newest valid instant among raw values.
// Invalid values are ignored; ok is false when none is valid.
func LatestTimestamp(raws ...int64) (latest time.Time, ok bool) {
	for _, raw := range raws {
		t, valid := NormalizeTimestamp(raw)
		if !valid {
			continue
		}
		if !ok || t.After(latest) {
			latest, ok = t, true
		}
	}
	return latest, ok
}

// MaxTime returns the later of a and b.
func MaxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
