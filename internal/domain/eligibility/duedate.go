package eligibility

import "time"

// daysPerMonth is the coarse month used for reminder dates. It is deliberately
// not WeeksPerMonth-based; displayed due dates rely on it.
const daysPerMonth = 30

// EstimatedDueDate adds the label's minimum age, at 30 days per month, to dob.
// The result is a reminder estimate, not a clinical deadline.
func EstimatedDueDate(dob time.Time, label string) time.Time {
	return estimateFrom(dob, ParseAgeRange(label))
}

func estimateFrom(dob time.Time, r AgeRange) time.Time {
	return dateOnly(dob).AddDate(0, 0, int(r.MinMonths*daysPerMonth))
}
