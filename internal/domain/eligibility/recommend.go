package eligibility

import (
	"sort"
	"time"
)

// RecommendationsFor classifies every item the schedule references, once per
// item ID, ordered by status priority and then by first appearance in the
// schedule. References to IDs missing from the catalog are skipped.
func (e *Evaluator) RecommendationsFor(sub Subject, catalog *Catalog, sched Schedule, asOf time.Time) []Recommendation {
	seen := make(map[string]bool)
	recs := make([]Recommendation, 0)

	for _, entry := range sched {
		for _, id := range entry.ItemIDs {
			if seen[id] {
				continue
			}
			seen[id] = true

			item, ok := catalog.Lookup(id)
			if !ok {
				e.logger.Warn().
					Str("kind", e.kind).
					Str("item_id", id).
					Str("age_range", entry.AgeRange.Label).
					Msg("schedule references unknown catalog item")
				e.metrics.IncrementUnknownItem(e.kind)
				continue
			}

			c, ok := e.Classify(sub, item, sched, asOf)
			if !ok {
				continue
			}
			e.metrics.IncrementStatus(e.kind, c.Status.String())
			recs = append(recs, Recommendation{Item: item, Classification: c})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Status.Priority() < recs[j].Status.Priority()
	})
	return recs
}

// PendingOnly keeps the recommendations that are due or overdue.
func PendingOnly(recs []Recommendation) []Recommendation {
	out := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		if r.Status.Pending() {
			out = append(out, r)
		}
	}
	return out
}

// Reminder is the "coming up" view: the first Limit items plus a count of
// the rest.
type Reminder struct {
	Items     []Recommendation `json:"items"`
	Remaining int              `json:"remaining"`
	Total     int              `json:"total"`
	From      time.Time        `json:"from"`
	Until     time.Time        `json:"until"`
}

// UpcomingWithin keeps incomplete items whose due date falls between asOf and
// asOf plus months (inclusive), sorted by due date. A non-positive limit
// returns every match.
func UpcomingWithin(recs []Recommendation, asOf time.Time, months, limit int) Reminder {
	from := dateOnly(asOf)
	until := from.AddDate(0, months, 0)

	matched := make([]Recommendation, 0)
	for _, r := range recs {
		if r.Status == StatusCompleted || r.DueDate == nil {
			continue
		}
		if r.DueDate.Before(from) || r.DueDate.After(until) {
			continue
		}
		matched = append(matched, r)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].DueDate.Before(*matched[j].DueDate)
	})

	rem := Reminder{Total: len(matched), From: from, Until: until, Items: matched}
	if limit > 0 && len(matched) > limit {
		rem.Items = matched[:limit]
		rem.Remaining = len(matched) - limit
	}
	return rem
}

// Reminders applies UpcomingWithin with the evaluator's configured window.
func (e *Evaluator) Reminders(recs []Recommendation, asOf time.Time) Reminder {
	return UpcomingWithin(recs, asOf, e.opts.ReminderWindowMonths, e.opts.ReminderLimit)
}
