package eligibility

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthtrack/healthtrack/internal/platform/metrics"
)

// Options tunes classification and reminder filtering.
type Options struct {
	// OverdueToleranceMonths is how many months past the eligible age an item
	// stays due before it is overdue. Zero means overdue from the next month.
	OverdueToleranceMonths int
	ReminderWindowMonths   int
	ReminderLimit          int
}

// DefaultOptions matches the behaviour of the existing schedules: no grace
// period, a three month reminder window showing three items.
func DefaultOptions() Options {
	return Options{
		OverdueToleranceMonths: 0,
		ReminderWindowMonths:   3,
		ReminderLimit:          3,
	}
}

// Evaluator classifies catalog items against a schedule. It holds no state
// between calls and is safe for concurrent use.
type Evaluator struct {
	opts    Options
	logger  zerolog.Logger
	metrics *metrics.Metrics
	kind    string
}

// EvaluatorOption customizes an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithLogger routes diagnostics (skipped schedule references) to logger.
func WithLogger(logger zerolog.Logger) EvaluatorOption {
	return func(e *Evaluator) { e.logger = logger }
}

// WithMetrics records computed statuses.
func WithMetrics(m *metrics.Metrics) EvaluatorOption {
	return func(e *Evaluator) { e.metrics = m }
}

// WithKind labels diagnostics with the catalog kind, e.g. "vaccine".
func WithKind(kind string) EvaluatorOption {
	return func(e *Evaluator) { e.kind = kind }
}

func NewEvaluator(opts Options, options ...EvaluatorOption) *Evaluator {
	if opts.OverdueToleranceMonths < 0 {
		opts.OverdueToleranceMonths = 0
	}
	e := &Evaluator{opts: opts, logger: zerolog.Nop(), kind: "item"}
	for _, o := range options {
		o(e)
	}
	return e
}

// Options returns the evaluator's configuration.
func (e *Evaluator) Options() Options { return e.opts }

// Classify computes the status of item for sub at asOf. ok is false when the
// schedule never references the item.
//
// Doses are matched to the item's schedule entries in ascending age order; the
// first entry not yet covered by a recorded dose governs.
func (e *Evaluator) Classify(sub Subject, item CatalogItem, sched Schedule, asOf time.Time) (Classification, bool) {
	entries := entriesFor(sched, item.ID)
	given := sub.administered(item.ID)

	if given >= item.ExpectedCount() {
		return Classification{Status: StatusCompleted, DoseNumber: given}, true
	}
	if len(entries) == 0 {
		return Classification{}, false
	}

	next := entries[len(entries)-1]
	if given < len(entries) {
		next = entries[given]
	}

	due := estimateFrom(sub.DateOfBirth, next)
	c := Classification{
		DueDate:    &due,
		AgeRange:   &next,
		DoseNumber: given + 1,
	}

	age := AgeInMonths(sub.DateOfBirth, asOf)
	eligible := next.Min()
	switch {
	case age < eligible:
		c.Status = StatusUpcoming
	case age-eligible <= e.opts.OverdueToleranceMonths:
		c.Status = StatusDue
	default:
		c.Status = StatusOverdue
	}
	return c, true
}

// entriesFor returns the age ranges that reference itemID, youngest first.
// Entries with equal ages keep schedule order.
func entriesFor(sched Schedule, itemID string) []AgeRange {
	var out []AgeRange
	for _, entry := range sched {
		if entry.references(itemID) {
			out = append(out, entry.AgeRange)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinMonths < out[j].MinMonths
	})
	return out
}
