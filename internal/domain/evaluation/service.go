// Package evaluation runs the eligibility engine and the risk scorer on
// subjects supplied with the request instead of loaded from storage.
package evaluation

import (
	"fmt"
	"time"

	"github.com/healthtrack/healthtrack/internal/domain/catalog"
	"github.com/healthtrack/healthtrack/internal/domain/eligibility"
	"github.com/healthtrack/healthtrack/internal/domain/surgery"
)

// HistoryEntry is one completed item in an evaluation request.
type HistoryEntry struct {
	ItemID      string  `json:"item_id"`
	Sequence    int     `json:"sequence"`
	CompletedOn *string `json:"completed_on"`
	Notes       *string `json:"notes"`
}

// Request describes a subject to evaluate against the vaccine or procedure schedule.
type Request struct {
	Kind        string         `json:"kind"`
	SubjectID   string         `json:"subject_id"`
	DateOfBirth string         `json:"date_of_birth"`
	History     []HistoryEntry `json:"history"`
	AsOf        string         `json:"as_of"`
	View        string         `json:"view"`
	Window      int            `json:"window"`
	Limit       int            `json:"limit"`
}

// RiskRequest carries the risk factors directly. When DateOfBirth is set the
// age is computed at AsOf and AgeYears is ignored.
type RiskRequest struct {
	AgeYears      int      `json:"age_years"`
	DateOfBirth   string   `json:"date_of_birth"`
	AsOf          string   `json:"as_of"`
	WeightKg      *float64 `json:"weight_kg"`
	HeightCm      *float64 `json:"height_cm"`
	BloodPressure *string  `json:"blood_pressure"`
}

type target struct {
	ref       *catalog.Reference
	evaluator *eligibility.Evaluator
}

type Service struct {
	targets map[string]target
	now     func() time.Time
}

func NewService(vaccines, procedures *catalog.Reference, vaccineEv, procedureEv *eligibility.Evaluator) *Service {
	return &Service{
		targets: map[string]target{
			catalog.KindVaccine:   {ref: vaccines, evaluator: vaccineEv},
			catalog.KindProcedure: {ref: procedures, evaluator: procedureEv},
		},
		now: time.Now,
	}
}

// Evaluate validates req and computes its recommendations. A missing kind
// means vaccine and a missing as_of means now.
func (s *Service) Evaluate(req Request) (eligibility.Result, error) {
	kind := req.Kind
	if kind == "" {
		kind = catalog.KindVaccine
	}
	tgt, ok := s.targets[kind]
	if !ok {
		return eligibility.Result{}, fmt.Errorf("%w: %q", catalog.ErrUnknownKind, kind)
	}

	dob, err := parseDate("date_of_birth", req.DateOfBirth)
	if err != nil {
		return eligibility.Result{}, err
	}
	asOf, err := s.asOf(req.AsOf)
	if err != nil {
		return eligibility.Result{}, err
	}
	if asOf.Before(dob) {
		return eligibility.Result{}, fmt.Errorf("as_of is before date_of_birth")
	}
	view, err := eligibility.ParseView(req.View)
	if err != nil {
		return eligibility.Result{}, err
	}
	if req.Window < 0 || req.Limit < 0 {
		return eligibility.Result{}, fmt.Errorf("window and limit must not be negative")
	}

	sub := eligibility.Subject{ID: req.SubjectID, DateOfBirth: dob, History: make([]eligibility.HistoryRecord, 0, len(req.History))}
	for i, h := range req.History {
		if h.ItemID == "" {
			return eligibility.Result{}, fmt.Errorf("history[%d]: item_id is required", i)
		}
		rec := eligibility.HistoryRecord{ItemID: h.ItemID, Sequence: h.Sequence, Notes: h.Notes}
		if h.CompletedOn != nil {
			on, err := parseDate(fmt.Sprintf("history[%d].completed_on", i), *h.CompletedOn)
			if err != nil {
				return eligibility.Result{}, err
			}
			rec.CompletedOn = &on
		}
		sub.History = append(sub.History, rec)
	}

	q := eligibility.Query{AsOf: asOf, View: view, WindowMonths: req.Window, Limit: req.Limit}
	return tgt.evaluator.Evaluate(sub, tgt.ref.Catalog, tgt.ref.Schedule, q), nil
}

// Risk scores the factors in req.
func (s *Service) Risk(req RiskRequest) (surgery.RiskAssessment, error) {
	f := surgery.RiskFactors{
		AgeYears:      req.AgeYears,
		WeightKg:      req.WeightKg,
		HeightCm:      req.HeightCm,
		BloodPressure: req.BloodPressure,
	}
	if req.DateOfBirth != "" {
		dob, err := parseDate("date_of_birth", req.DateOfBirth)
		if err != nil {
			return surgery.RiskAssessment{}, err
		}
		asOf, err := s.asOf(req.AsOf)
		if err != nil {
			return surgery.RiskAssessment{}, err
		}
		f.AgeYears = eligibility.AgeBreakdown(dob, asOf).Years
	}
	if f.AgeYears < 0 {
		return surgery.RiskAssessment{}, fmt.Errorf("age_years must not be negative")
	}
	return surgery.ScoreRisk(f), nil
}

func (s *Service) asOf(v string) (time.Time, error) {
	if v == "" {
		return s.now(), nil
	}
	return parseDate("as_of", v)
}

func parseDate(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: want YYYY-MM-DD", field, v)
	}
	return t, nil
}
