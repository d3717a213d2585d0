package store

import "time"

// Clock supplies the wall-clock time used for created_at and updated_at.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return ClockFunc(time.Now)
}

// timestampResolution is the precision stored timestamps keep.
const timestampResolution = time.Microsecond

// nextTimestamp returns a timestamp strictly after prev. When the clock has not
// advanced past prev (coarse clock, skew, or calls closer than the resolution),
// prev is bumped by one resolution step instead.
func nextTimestamp(c Clock, prev time.Time) time.Time {
	now := c.Now().UTC().Truncate(timestampResolution)
	if !prev.IsZero() && !now.After(prev) {
		return prev.Add(timestampResolution)
	}
	return now
}
