package eligibility

import (
	"math"
	"testing"
	"time"
)

func TestMinAgeMonths(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"At birth", 0},
		{"6 weeks", int(math.Trunc(6 / WeeksPerMonth))},
		{"10 weeks", 2},
		{"14 weeks", 3},
		{"12-15 months", 12},
		{"4-6 years", 48},
		{"2 years", 24},
		{"9 months", 9},
		{"1 year", 12},
		{"2-3", 24},
		{"6 months-2 years", 6},
		{"  18 months ", 18},
		{"garbage", 0},
		{"", 0},
		{"months", 0},
		{"999999999999999999 years", 0},
		{"99999999999999999999 months", 0},
	}
	for _, tt := range tests {
		if got := MinAgeMonths(tt.label); got != tt.want {
			t.Errorf("MinAgeMonths(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}

func TestParseAgeRange(t *testing.T) {
	tests := []struct {
		label  string
		min    float64
		max    float64
		parsed bool
	}{
		{"At birth", 0, 0, true},
		{"6 weeks", 6 / WeeksPerMonth, 6 / WeeksPerMonth, true},
		{"6-8 weeks", 6 / WeeksPerMonth, 8 / WeeksPerMonth, true},
		{"12-15 months", 12, 15, true},
		{"4-6 years", 48, 72, true},
		{"6 months-2 years", 6, 24, true},
		{"2 years", 24, 24, true},
		{"garbage", 0, 0, false},
		{"weeks", 0, 0, false},
		{"-", 0, 0, false},
		{"100 years", 1200, 1200, true},
		{"101 years", 0, 0, false},
		{"999999999999999999 years", 0, 0, false},
		{"6 months-999999999999999999 years", 0, 0, false},
		{"6000 weeks", 0, 0, false},
	}
	for _, tt := range tests {
		r := ParseAgeRange(tt.label)
		if math.Abs(r.MinMonths-tt.min) > 1e-9 || math.Abs(r.MaxMonths-tt.max) > 1e-9 {
			t.Errorf("ParseAgeRange(%q) = [%v, %v], want [%v, %v]", tt.label, r.MinMonths, r.MaxMonths, tt.min, tt.max)
		}
		if r.Parsed != tt.parsed {
			t.Errorf("ParseAgeRange(%q).Parsed = %v, want %v", tt.label, r.Parsed, tt.parsed)
		}
		if r.Label != tt.label {
			t.Errorf("ParseAgeRange(%q).Label = %q", tt.label, r.Label)
		}
	}
}

func TestParseAgeRange_FallbackIsDistinguishableFromBirth(t *testing.T) {
	birth := ParseAgeRange(AtBirth)
	bad := ParseAgeRange("sometime later")
	if birth.Min() != bad.Min() {
		t.Fatalf("both labels should resolve to 0 months")
	}
	if !birth.Parsed || bad.Parsed {
		t.Errorf("expected Parsed true for birth and false for fallback, got %v and %v", birth.Parsed, bad.Parsed)
	}
}

func TestEstimatedDueDate(t *testing.T) {
	dob := date(2024, 1, 1)
	tests := []struct {
		label string
		want  time.Time
	}{
		{"At birth", dob},
		{"6 weeks", date(2024, 2, 11)},
		{"9 months", date(2024, 9, 27)},
		{"12-15 months", date(2024, 12, 26)},
		{"garbage", dob},
	}
	for _, tt := range tests {
		if got := EstimatedDueDate(dob, tt.label); !got.Equal(tt.want) {
			t.Errorf("EstimatedDueDate(%q) = %s, want %s", tt.label, got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
		}
	}
}

func TestEstimatedDueDate_UsesThirtyDayMonths(t *testing.T) {
	dob := date(2023, 3, 1)
	got := EstimatedDueDate(dob, "12 months")
	if days := int(got.Sub(dob).Hours() / 24); days != 360 {
		t.Errorf("expected 360 days after birth, got %d", days)
	}
}
