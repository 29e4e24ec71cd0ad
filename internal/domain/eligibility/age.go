package eligibility

import (
	"fmt"
	"time"
)

// Age is a calendar-correct age split into whole years, months and days.
type Age struct {
	Years  int `json:"years"`
	Months int `json:"months"`
	Days   int `json:"days"`
}

// AgeBreakdown returns the age of someone born on dob at the reference date now.
// Both values are compared as calendar dates. A reference date before the
// birth date yields the zero Age.
func AgeBreakdown(dob, now time.Time) Age {
	dob, now = dateOnly(dob), dateOnly(now)
	if now.Before(dob) {
		return Age{}
	}

	years := now.Year() - dob.Year()
	months := int(now.Month()) - int(dob.Month())
	days := now.Day() - dob.Day()

	if days < 0 {
		months--
		prior := daysIn(now.Year(), now.Month()-1)
		days = now.Day() + prior - dob.Day()
		if days < 0 {
			// Birth day lies past the end of the prior month and the borrow
			// still falls short; count from that month's last day.
			days = now.Day()
		}
	}
	if months < 0 {
		years--
		months += 12
	}
	return Age{Years: years, Months: months, Days: days}
}

// AgeInMonths returns the number of whole months elapsed between dob and now.
func AgeInMonths(dob, now time.Time) int {
	a := AgeBreakdown(dob, now)
	return a.Years*12 + a.Months
}

// String renders only the most significant unit ("2 years", "5 months", "3 days").
// The result is lossy and meant for display.
func (a Age) String() string {
	switch {
	case a.Years > 0:
		return plural(a.Years, "year")
	case a.Months > 0:
		return plural(a.Months, "month")
	default:
		return plural(a.Days, "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysIn normalizes month overflow, so daysIn(2024, 0) is December 2023.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
