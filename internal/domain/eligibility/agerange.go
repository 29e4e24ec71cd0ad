package eligibility

import (
	"strconv"
	"strings"
	"unicode"
)

const (
	// AtBirth is the label for items given on the day of birth.
	AtBirth = "At birth"

	// WeeksPerMonth converts week-based labels into months. Existing schedules
	// depend on this exact factor.
	WeeksPerMonth = 4.33

	// MaxAgeMonths is the largest bound a label may carry (100 years).
	// Labels beyond it are treated as unparseable.
	MaxAgeMonths = 1200
)

// AgeRange is a schedule label normalized into month bounds.
type AgeRange struct {
	Label     string  `json:"label"`
	MinMonths float64 `json:"min_months"`
	MaxMonths float64 `json:"max_months"`
	// Parsed is false when the label could not be understood and MinMonths
	// fell back to 0. A false value on a non-birth label is a data problem.
	Parsed bool `json:"parsed"`
}

// Min returns the lower bound as a whole number of months, truncated toward zero.
func (r AgeRange) Min() int {
	return int(r.MinMonths)
}

// MinAgeMonths returns the minimum age in whole months for a schedule label.
// Unparseable labels return 0; use ParseAgeRange to tell them apart from birth.
func MinAgeMonths(label string) int {
	return ParseAgeRange(label).Min()
}

type ageUnit int

const (
	unitNone ageUnit = iota
	unitWeeks
	unitMonths
	unitYears
)

// ParseAgeRange normalizes a free-text label such as "At birth", "6 weeks",
// "12-15 months" or "2 years". It never fails.
func ParseAgeRange(label string) AgeRange {
	r := parseAgeRange(label)
	if r.MinMonths < 0 || r.MaxMonths < 0 || r.MinMonths > MaxAgeMonths || r.MaxMonths > MaxAgeMonths {
		return AgeRange{Label: label}
	}
	return r
}

func parseAgeRange(label string) AgeRange {
	s := strings.TrimSpace(label)
	r := AgeRange{Label: label}

	if s == AtBirth {
		r.Parsed = true
		return r
	}

	lower := strings.ToLower(s)
	unit := unitOf(lower)

	if unit == unitWeeks {
		lo, hi, ok := bounds(lower)
		if !ok {
			return r
		}
		r.MinMonths = float64(lo) / WeeksPerMonth
		r.MaxMonths = float64(hi) / WeeksPerMonth
		r.Parsed = true
		return r
	}

	if before, after, found := strings.Cut(lower, "-"); found {
		lo, ok := leadingInt(before)
		if !ok {
			return r
		}
		loUnit := unitOf(before)
		if loUnit == unitNone {
			loUnit = unit
		}
		hi, hiOK := leadingInt(after)
		if !hiOK {
			hi = lo
		}
		hiUnit := unitOf(after)
		if hiUnit == unitNone {
			hiUnit = loUnit
		}
		r.MinMonths = toMonths(lo, loUnit)
		r.MaxMonths = toMonths(hi, hiUnit)
		r.Parsed = true
		return r
	}

	if unit == unitMonths || unit == unitYears {
		n, ok := leadingInt(lower)
		if !ok {
			return r
		}
		r.MinMonths = toMonths(n, unit)
		r.MaxMonths = r.MinMonths
		r.Parsed = true
	}
	return r
}

func unitOf(s string) ageUnit {
	switch {
	case strings.Contains(s, "week"):
		return unitWeeks
	case strings.Contains(s, "month"):
		return unitMonths
	case strings.Contains(s, "year"):
		return unitYears
	default:
		return unitNone
	}
}

// toMonths treats a bare number in a range as years.
func toMonths(n int, u ageUnit) float64 {
	switch u {
	case unitMonths:
		return float64(n)
	case unitWeeks:
		return float64(n) / WeeksPerMonth
	default:
		return float64(n) * 12
	}
}

func bounds(s string) (lo, hi int, ok bool) {
	before, after, found := strings.Cut(s, "-")
	lo, ok = leadingInt(before)
	if !ok {
		return 0, 0, false
	}
	hi = lo
	if found {
		if n, nOK := leadingInt(after); nOK {
			hi = n
		}
	}
	return lo, hi, true
}

// leadingInt reads an optionally signed run of digits after leading spaces.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
