// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import "time"

// Result entry opens the day before the election and edits close a week after.
const (
	daysOpenBefore = 1
	daysEditAfter  = 7
)

// civilDay truncates t to its calendar date in loc, expressed as UTC midnight
// so day arithmetic is free of DST shifts.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// electionDay is the election's calendar date. Dates are stored as UTC midnight.
func electionDay(date time.Time) time.Time {
	y, m, d := date.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// entryOpen reports whether today is on or after the day before the election.
func entryOpen(today, date time.Time) bool {
	return !today.Before(electionDay(date).AddDate(0, 0, -daysOpenBefore))
}

// editOpen reports whether today falls within [date-1, date+7].
func editOpen(today, date time.Time) bool {
	return entryOpen(today, date) && !today.After(electionDay(date).AddDate(0, 0, daysEditAfter))
}
