package compliance

import "time"

// IsWorkingDay reports whether t falls on a weekday. The ordinance counts
// Monday through Friday; public holidays are not observed.
func IsWorkingDay(t time.Time) bool {
	switch t.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// AddWorkingDays returns the date n working days after start, walking
// forward one calendar day at a time and counting only weekdays. The result
// is normalized to UTC midnight. n <= 0 returns the normalized start.
func AddWorkingDays(start time.Time, n int) time.Time {
	d := midnightUTC(start)
	for added := 0; added < n; {
		d = d.AddDate(0, 0, 1)
		if IsWorkingDay(d) {
			added++
		}
	}
	return d
}

// WorkingDaysBetween counts the working days strictly after from and up to
// and including to. Returns 0 when to is not after from.
func WorkingDaysBetween(from, to time.Time) int {
	a, b := midnightUTC(from), midnightUTC(to)
	count := 0
	for d := a.AddDate(0, 0, 1); !d.After(b); d = d.AddDate(0, 0, 1) {
		if IsWorkingDay(d) {
			count++
		}
	}
	return count
}
