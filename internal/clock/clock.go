// Package clock supplies wall-clock time to components that decide what
// "today" is.
package clock

import "time"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock, optionally pinned to a location.
type System struct {
	Location *time.Location
}

// Now returns the current time in the configured location (Local if unset).
func (s System) Now() time.Time {
	if s.Location != nil {
		return time.Now().In(s.Location)
	}
	return time.Now()
}

// Today returns midnight of the clock's current day.
func Today(c Clock) time.Time {
	now := c.Now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
