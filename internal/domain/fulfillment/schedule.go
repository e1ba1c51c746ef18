package fulfillment

import "time"

// DueStatus classifies a current fill against a reference date.
type DueStatus string

const (
	DueToday DueStatus = "today"
	DueSoon  DueStatus = "soon"
	NotDue   DueStatus = "not_due"
)

// DueSoonWindowDays is how far ahead a refill counts as due-soon.
const DueSoonWindowDays = 7

// NextRefillDate computes the date a refill becomes due: the fill date plus
// the days supply, in calendar days. Dates carry no timezone component; the
// result is normalized to midnight UTC.
func NextRefillDate(dateFilled time.Time, daysSupply int) time.Time {
	return midnightUTC(dateFilled).AddDate(0, 0, daysSupply)
}

// Classify buckets a next-refill date relative to now. The reference date is
// caller-supplied so read paths stay pure. The buckets are mutually
// exclusive: a refill due exactly on the reference date is DueToday, never
// DueSoon.
func Classify(nextRefill, now time.Time) DueStatus {
	d := midnightUTC(nextRefill)
	ref := midnightUTC(now)

	switch {
	case !d.After(ref):
		return DueToday
	case !d.After(ref.AddDate(0, 0, DueSoonWindowDays)):
		return DueSoon
	default:
		return NotDue
	}
}

// midnightUTC strips the time-of-day and zone from a calendar date.
func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
