// Package dates works with calendar days as YYYY-MM-DD strings.
// All arithmetic is done on UTC calendar days.
package dates

import (
	"regexp"
	"time"
	_ "time/tzdata" // zones must resolve in minimal containers
)

// Layout is the ISO calendar date format used on the wire and in storage.
const Layout = "2006-01-02"

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsValid reports whether s is YYYY-MM-DD and names a real calendar day.
func IsValid(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(Layout, s)
	return err == nil
}

// Today returns the current date in the given IANA zone, or in UTC when
// the zone is empty or unknown.
func Today(tz string) string {
	return TodayAt(time.Now(), tz)
}

// TodayAt is Today with an explicit instant.
func TodayAt(now time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	return now.In(loc).Format(Layout)
}

// RangeDays returns every day from start to end inclusive, ascending.
// The result is empty when start is after end or either bound is invalid.
func RangeDays(start, end string) []string {
	s, err := time.Parse(Layout, start)
	if err != nil {
		return []string{}
	}
	e, err := time.Parse(Layout, end)
	if err != nil {
		return []string{}
	}
	days := []string{}
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(Layout))
	}
	return days
}

// DaysAgo returns date minus n days. An unparsable date is returned unchanged.
func DaysAgo(date string, n int) string {
	d, err := time.Parse(Layout, date)
	if err != nil {
		return date
	}
	return d.AddDate(0, 0, -n).Format(Layout)
}
