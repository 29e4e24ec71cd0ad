package eligibility

import (
	"fmt"
	"strconv"
	"time"
)

// View selects which recommendations an evaluation returns.
type View string

const (
	ViewAll      View = "all"
	ViewPending  View = "pending"
	ViewUpcoming View = "upcoming"
)

// ParseView accepts an empty string as ViewAll.
func ParseView(s string) (View, error) {
	switch View(s) {
	case "", ViewAll:
		return ViewAll, nil
	case ViewPending, ViewUpcoming:
		return View(s), nil
	}
	return "", fmt.Errorf("invalid view %q: want all, pending or upcoming", s)
}

// Query holds the per-request evaluation parameters. Zero WindowMonths and
// Limit fall back to the evaluator's options.
type Query struct {
	AsOf         time.Time
	View         View
	WindowMonths int
	Limit        int
}

// Result is an evaluation for one subject.
type Result struct {
	SubjectID       string           `json:"subject_id,omitempty"`
	AsOf            time.Time        `json:"as_of"`
	Age             Age              `json:"age"`
	AgeDisplay      string           `json:"age_display"`
	AgeInMonths     int              `json:"age_in_months"`
	View            View             `json:"view"`
	Recommendations []Recommendation `json:"recommendations"`
	Reminder        *Reminder        `json:"reminder,omitempty"`
}

// Evaluate computes recommendations for sub and narrows them to q.View.
func (e *Evaluator) Evaluate(sub Subject, catalog *Catalog, sched Schedule, q Query) Result {
	if q.View == "" {
		q.View = ViewAll
	}
	age := AgeBreakdown(sub.DateOfBirth, q.AsOf)
	res := Result{
		SubjectID:   sub.ID,
		AsOf:        dateOnly(q.AsOf),
		Age:         age,
		AgeDisplay:  age.String(),
		AgeInMonths: age.Years*12 + age.Months,
		View:        q.View,
	}

	recs := e.RecommendationsFor(sub, catalog, sched, q.AsOf)
	switch q.View {
	case ViewPending:
		res.Recommendations = PendingOnly(recs)
	case ViewUpcoming:
		window, limit := q.WindowMonths, q.Limit
		if window <= 0 {
			window = e.opts.ReminderWindowMonths
		}
		if limit <= 0 {
			limit = e.opts.ReminderLimit
		}
		rem := UpcomingWithin(recs, q.AsOf, window, limit)
		res.Reminder = &rem
		res.Recommendations = rem.Items
	default:
		res.Recommendations = recs
	}
	return res
}

// QueryFromValues reads as_of (YYYY-MM-DD), view, window and limit through
// get, typically a request's query accessor. A missing as_of means now.
func QueryFromValues(get func(string) string, now time.Time) (Query, error) {
	q := Query{AsOf: now}
	if s := get("as_of"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return Query{}, fmt.Errorf("invalid as_of %q: want YYYY-MM-DD", s)
		}
		q.AsOf = t
	}
	v, err := ParseView(get("view"))
	if err != nil {
		return Query{}, err
	}
	q.View = v
	if q.WindowMonths, err = nonNegative(get("window"), "window"); err != nil {
		return Query{}, err
	}
	if q.Limit, err = nonNegative(get("limit"), "limit"); err != nil {
		return Query{}, err
	}
	return q, nil
}

func nonNegative(s, name string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: want a non-negative integer", name, s)
	}
	return n, nil
}
