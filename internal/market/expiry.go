package market

import (
	"sort"
	"time"
)

// expiryCount is the number of upcoming expiry dates exposed to callers.
const expiryCount = 4

// upcomingExpiries filters the candidate list to dates on or after today
// and tops it up with weekly Thursday expiries until expiryCount dates
// exist. The result is strictly ascending. It cannot fail.
func upcomingExpiries(seeds []time.Time, now time.Time) []time.Time {
	today := dateOnly(now.In(ISTLocation))

	var dates []time.Time
	for _, d := range seeds {
		d = dateOnly(d)
		if !d.Before(today) && !containsDate(dates, d) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	last := today
	if len(dates) > 0 {
		last = dates[len(dates)-1]
	}
	for len(dates) < expiryCount {
		last = nextThursday(last.AddDate(0, 0, 1))
		if !containsDate(dates, last) {
			dates = append(dates, last)
		}
	}

	return dates[:expiryCount]
}

// nextThursday returns t advanced to the nearest Thursday on or after t.
func nextThursday(t time.Time) time.Time {
	for t.Weekday() != time.Thursday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func containsDate(dates []time.Time, d time.Time) bool {
	for _, e := range dates {
		if e.Year() == d.Year() && e.YearDay() == d.YearDay() {
			return true
		}
	}
	return false
}
