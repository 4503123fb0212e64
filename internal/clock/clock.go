// Package clock abstracts "now" so date arithmetic is testable and the
// server-wide timezone lives in one place.
package clock

import "time"

// Clock supplies the current instant and the current calendar date.
type Clock interface {
	Now() time.Time
	// Today returns midnight of the current day in the clock's location.
	Today() time.Time
	// Location is the timezone stored dates are normalized into.
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

// System returns a Clock backed by the wall clock in the given location.
func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c systemClock) Today() time.Time {
	return DateOf(c.Now())
}

func (c systemClock) Location() *time.Location {
	return c.loc
}

// Fixed is a Clock pinned to a single instant, for tests.
type Fixed struct {
	Instant time.Time
}

func (f Fixed) Now() time.Time           { return f.Instant }
func (f Fixed) Today() time.Time         { return DateOf(f.Instant) }
func (f Fixed) Location() *time.Location { return f.Instant.Location() }

// DateOf strips the time-of-day component, keeping the location.
func DateOf(t time.Time) time.Time {
	return DateIn(t, t.Location())
}

// DateIn rebuilds t's calendar day as midnight in loc. Parsed input
// dates carry whatever zone the parser used; routing them through
// DateIn keeps every stored date in one offset so range queries
// compare cleanly.
func DateIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = t.Location()
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}
