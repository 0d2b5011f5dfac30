// Package timeslot provides the time-window arithmetic shared by the booking
// and opponent-finding services. A window is a calendar date plus a start and
// end expressed as seconds since midnight, in [0, 86400]. The calendar date is
// deliberately kept separate from the clock time so that recurring field
// schedules and single bookings use the same representation.
package timeslot

import "time"

// SecondsPerDay is the upper bound for a seconds-of-day value.
const SecondsPerDay = 24 * 60 * 60

// Window is a half-open time range [StartSec, EndSec) on a single calendar
// date. Date must be normalized to midnight UTC (see DateOf).
type Window struct {
	Date     time.Time
	StartSec int
	EndSec   int
}

// DateOf strips the clock from t, returning the calendar date as midnight UTC.
// The year/month/day are taken in t's own location, so callers control the
// business timezone by localizing t first.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SecondOfDay returns the number of seconds elapsed since midnight in t's
// location.
func SecondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// Split decomposes an instant into its calendar date and second-of-day.
func Split(t time.Time) (time.Time, int) {
	return DateOf(t), SecondOfDay(t)
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Overlaps reports whether two windows conflict. Half-open interval
// semantics: touching endpoints do not overlap. Callers are responsible for
// validating start < end before invoking; the predicate itself has no failure
// modes.
func Overlaps(dateA time.Time, startA, endA int, dateB time.Time, startB, endB int) bool {
	if !SameDate(dateA, dateB) {
		return false
	}
	return startA < endB && startB < endA
}

// Overlaps reports whether w conflicts with other.
func (w Window) Overlaps(other Window) bool {
	return Overlaps(w.Date, w.StartSec, w.EndSec, other.Date, other.StartSec, other.EndSec)
}

// Valid reports whether the window is well-formed: seconds in range and a
// strictly positive duration.
func (w Window) Valid() bool {
	return w.StartSec >= 0 && w.EndSec <= SecondsPerDay && w.StartSec < w.EndSec
}

// StartPassed reports whether the window's start time is at or before now.
func (w Window) StartPassed(now time.Time) bool {
	nowDate, nowSec := Split(now)
	if w.Date.Before(nowDate) {
		return true
	}
	return SameDate(w.Date, nowDate) && w.StartSec <= nowSec
}

// EndPassed reports whether the window has fully elapsed.
func (w Window) EndPassed(now time.Time) bool {
	nowDate, nowSec := Split(now)
	if w.Date.Before(nowDate) {
		return true
	}
	return SameDate(w.Date, nowDate) && w.EndSec <= nowSec
}
