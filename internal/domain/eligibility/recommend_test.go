package eligibility

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/healthtrack/healthtrack/internal/platform/metrics"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]CatalogItem{
		{ID: "bcg", Name: "BCG", DoseCount: 1},
		{ID: "hepb", Name: "Hepatitis B", DoseCount: 3},
		{ID: "opv", Name: "Oral Polio", DoseCount: 1},
		{ID: "dtp", Name: "DTP", DoseCount: 3},
		{ID: "mmr", Name: "MMR", DoseCount: 1},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func testSchedule() Schedule {
	return Schedule{
		NewScheduleEntry("At birth", "bcg", "hepb", "opv"),
		NewScheduleEntry("6 weeks", "hepb", "dtp", "missing"),
		NewScheduleEntry("9 months", "mmr"),
		NewScheduleEntry("14 weeks", "dtp", "hepb"),
		NewScheduleEntry("10 weeks", "dtp"),
	}
}

func testSubject() Subject {
	return Subject{
		ID:          "child-1",
		DateOfBirth: date(2024, 1, 1),
		History:     append(doses("bcg", 1), doses("hepb", 1)...),
	}
}

type recView struct {
	ID     string
	Status string
	Due    string
}

func view(recs []Recommendation) []recView {
	out := make([]recView, len(recs))
	for i, r := range recs {
		out[i] = recView{ID: r.Item.ID, Status: r.Status.String()}
		if r.DueDate != nil {
			out[i].Due = r.DueDate.Format("2006-01-02")
		}
	}
	return out
}

func TestRecommendationsFor(t *testing.T) {
	e := NewEvaluator(DefaultOptions())
	recs := e.RecommendationsFor(testSubject(), testCatalog(t), testSchedule(), date(2024, 3, 1))

	want := []recView{
		{ID: "hepb", Status: "overdue", Due: "2024-02-11"},
		{ID: "opv", Status: "overdue", Due: "2024-01-01"},
		{ID: "dtp", Status: "overdue", Due: "2024-02-11"},
		{ID: "mmr", Status: "upcoming", Due: "2024-09-27"},
		{ID: "bcg", Status: "completed"},
	}
	if diff := cmp.Diff(want, view(recs)); diff != "" {
		t.Errorf("recommendations mismatch (-want +got):\n%s", diff)
	}
}

func TestRecommendationsFor_NoDuplicates(t *testing.T) {
	e := NewEvaluator(DefaultOptions())
	for asOf := date(2024, 1, 1); asOf.Before(date(2026, 1, 1)); asOf = asOf.AddDate(0, 0, 20) {
		seen := map[string]bool{}
		for _, r := range e.RecommendationsFor(testSubject(), testCatalog(t), testSchedule(), asOf) {
			if seen[r.Item.ID] {
				t.Fatalf("duplicate recommendation for %s at %s", r.Item.ID, asOf.Format("2006-01-02"))
			}
			seen[r.Item.ID] = true
		}
	}
}

func TestRecommendationsFor_Deterministic(t *testing.T) {
	e := NewEvaluator(DefaultOptions())
	asOf := date(2024, 5, 17)
	first, err := json.Marshal(e.RecommendationsFor(testSubject(), testCatalog(t), testSchedule(), asOf))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(e.RecommendationsFor(testSubject(), testCatalog(t), testSchedule(), asOf))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("expected identical output, got\n%s\n%s", first, second)
	}
}

func TestRecommendationsFor_StatusOrdering(t *testing.T) {
	e := NewEvaluator(DefaultOptions())
	recs := e.RecommendationsFor(testSubject(), testCatalog(t), testSchedule(), date(2024, 2, 5))
	for i := 1; i < len(recs); i++ {
		if recs[i-1].Status.Priority() > recs[i].Status.Priority() {
			t.Fatalf("recommendations out of order at %d: %s before %s", i, recs[i-1].Status, recs[i].Status)
		}
	}
}

func TestRecommendationsFor_SkipsUnknownItems(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	e := NewEvaluator(DefaultOptions(), WithMetrics(m), WithKind("vaccine"))

	recs := e.RecommendationsFor(testSubject(), testCatalog(t), testSchedule(), date(2024, 3, 1))
	for _, r := range recs {
		if r.Item.ID == "missing" {
			t.Fatal("expected unknown item to be skipped")
		}
	}
	if got := testutil.ToFloat64(m.UnknownItems.WithLabelValues("vaccine")); got != 1 {
		t.Errorf("expected 1 unknown item recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.Recommendations.WithLabelValues("vaccine", "overdue")); got != 3 {
		t.Errorf("expected 3 overdue recorded, got %v", got)
	}
}

func TestRecommendationsFor_EmptyInputs(t *testing.T) {
	e := NewEvaluator(DefaultOptions())
	recs := e.RecommendationsFor(Subject{DateOfBirth: date(2024, 1, 1)}, nil, testSchedule(), date(2024, 3, 1))
	if recs == nil || len(recs) != 0 {
		t.Errorf("expected empty non-nil list with nil catalog, got %v", recs)
	}
	if recs := e.RecommendationsFor(testSubject(), testCatalog(t), nil, date(2024, 3, 1)); len(recs) != 0 {
		t.Errorf("expected no recommendations for empty schedule, got %d", len(recs))
	}
}

func TestPendingOnly(t *testing.T) {
	e := NewEvaluator(DefaultOptions())
	recs := e.RecommendationsFor(testSubject(), testCatalog(t), testSchedule(), date(2024, 3, 1))
	got := PendingOnly(recs)

	want := []recView{
		{ID: "hepb", Status: "overdue", Due: "2024-02-11"},
		{ID: "opv", Status: "overdue", Due: "2024-01-01"},
		{ID: "dtp", Status: "overdue", Due: "2024-02-11"},
	}
	if diff := cmp.Diff(want, view(got)); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
}

func upcoming(id string, due time.Time) Recommendation {
	return Recommendation{
		Item:           CatalogItem{ID: id},
		Classification: Classification{Status: StatusUpcoming, DueDate: &due},
	}
}

func TestUpcomingWithin(t *testing.T) {
	asOf := date(2024, 3, 1)
	completedDue := date(2024, 3, 5)
	recs := []Recommendation{
		upcoming("e", date(2024, 5, 20)),
		upcoming("a", date(2024, 3, 1)),
		upcoming("late", date(2024, 6, 2)),
		upcoming("c", date(2024, 4, 1)),
		upcoming("past", date(2024, 2, 28)),
		upcoming("b", date(2024, 3, 15)),
		upcoming("d", date(2024, 6, 1)),
		{Item: CatalogItem{ID: "done"}, Classification: Classification{Status: StatusCompleted, DueDate: &completedDue}},
		{Item: CatalogItem{ID: "nodate"}, Classification: Classification{Status: StatusUpcoming}},
	}

	rem := UpcomingWithin(recs, asOf, 3, 3)
	if rem.Total != 5 {
		t.Errorf("expected 5 matches, got %d", rem.Total)
	}
	if rem.Remaining != 2 {
		t.Errorf("expected 2 remaining, got %d", rem.Remaining)
	}
	var ids []string
	for _, r := range rem.Items {
		ids = append(ids, r.Item.ID)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids); diff != "" {
		t.Errorf("reminder items mismatch (-want +got):\n%s", diff)
	}
	if !rem.Until.Equal(date(2024, 6, 1)) {
		t.Errorf("expected window to end 2024-06-01, got %s", rem.Until.Format("2006-01-02"))
	}

	all := UpcomingWithin(recs, asOf, 3, 0)
	if len(all.Items) != 5 || all.Remaining != 0 {
		t.Errorf("expected all 5 items with no limit, got %d (+%d)", len(all.Items), all.Remaining)
	}
}

func TestEvaluator_Reminders(t *testing.T) {
	e := NewEvaluator(DefaultOptions())
	asOf := date(2024, 7, 15)
	recs := e.RecommendationsFor(testSubject(), testCatalog(t), testSchedule(), asOf)
	rem := e.Reminders(recs, asOf)

	if rem.Total != 1 || len(rem.Items) != 1 || rem.Items[0].Item.ID != "mmr" {
		t.Errorf("expected only mmr in the reminder window, got %+v", view(rem.Items))
	}
}
