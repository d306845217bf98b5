package clock

import "time"

// Clock supplies "now" in the school time zone. Services capture it once per
// call so every comparison in that call sees the same instant.
type Clock struct {
	loc     *time.Location
	nowFunc func() time.Time
}

// New returns a wall clock for loc.
func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, nowFunc: time.Now}
}

// Fixed returns a clock frozen at t. Used by tests and dry runs.
func Fixed(t time.Time, loc *time.Location) *Clock {
	c := New(loc)
	c.nowFunc = func() time.Time { return t }
	return c
}

// Now returns the current instant expressed in the school zone.
func (c *Clock) Now() time.Time {
	return c.nowFunc().In(c.loc)
}

// Location returns the school zone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Set freezes the clock at t.
func (c *Clock) Set(t time.Time) {
	c.nowFunc = func() time.Time { return t }
}

// ToWall strips the zone from t after converting it to loc. The result is
// what a TIMESTAMP WITHOUT TIME ZONE column stores.
func ToWall(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}

// FromWall reads a zone-less wall-clock value as local time in loc.
func FromWall(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// StartOfDay returns midnight of t's calendar day in t's zone.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
