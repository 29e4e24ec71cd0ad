package surgery

import (
	"strconv"
	"strings"
	"time"

	"github.com/healthtrack/healthtrack/internal/domain/eligibility"
)

// RiskLevel is the three-tier outcome of ScoreRisk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
)

// RiskFactors are the inputs to the surgical risk heuristic. Nil fields are
// unknown and contribute nothing.
type RiskFactors struct {
	AgeYears      int      `json:"age_years"`
	WeightKg      *float64 `json:"weight_kg,omitempty"`
	HeightCm      *float64 `json:"height_cm,omitempty"`
	BloodPressure *string  `json:"blood_pressure,omitempty"`
}

// RiskContribution is the points one factor added to the score.
type RiskContribution struct {
	Factor string   `json:"factor"`
	Value  *float64 `json:"value,omitempty"`
	Points int      `json:"points"`
}

// RiskAssessment is the result of ScoreRisk.
type RiskAssessment struct {
	Score   int                `json:"score"`
	Level   RiskLevel          `json:"level"`
	Factors []RiskContribution `json:"factors"`
	Notice  string             `json:"notice"`
}

const riskNotice = "Heuristic demonstration score; not a validated clinical instrument."

// ScoreRisk adds up to three points each for age, BMI and systolic pressure.
// A score of 5 or more is High, 3 or more Moderate, anything else Low.
//
// This is a demonstration heuristic, not a validated clinical instrument, and
// must not be used for surgical decisions.
func ScoreRisk(f RiskFactors) RiskAssessment {
	age := float64(f.AgeYears)
	a := RiskAssessment{Notice: riskNotice}
	a.add("age", &age, band(age, 70, 60, 50))

	if bmi, ok := BMI(f.WeightKg, f.HeightCm); ok {
		a.add("bmi", &bmi, band(bmi, 35, 30, 25))
	} else {
		a.add("bmi", nil, 0)
	}

	if sys, ok := Systolic(f.BloodPressure); ok {
		v := float64(sys)
		a.add("systolic", &v, band(v, 160, 140, 130))
	} else {
		a.add("systolic", nil, 0)
	}

	switch {
	case a.Score >= 5:
		a.Level = RiskHigh
	case a.Score >= 3:
		a.Level = RiskModerate
	default:
		a.Level = RiskLow
	}
	return a
}

func (a *RiskAssessment) add(factor string, v *float64, points int) {
	a.Score += points
	a.Factors = append(a.Factors, RiskContribution{Factor: factor, Value: v, Points: points})
}

// band returns 3, 2 or 1 when v is strictly above high, mid or low.
func band(v, high, mid, low float64) int {
	switch {
	case v > high:
		return 3
	case v > mid:
		return 2
	case v > low:
		return 1
	default:
		return 0
	}
}

// BMI computes weight / height² from kilograms and centimetres.
func BMI(weightKg, heightCm *float64) (float64, bool) {
	if weightKg == nil || heightCm == nil || *weightKg <= 0 || *heightCm <= 0 {
		return 0, false
	}
	m := *heightCm / 100
	return *weightKg / (m * m), true
}

// Systolic reads the integer before "/" in a "systolic/diastolic" reading.
func Systolic(bp *string) (int, bool) {
	if bp == nil {
		return 0, false
	}
	head, _, _ := strings.Cut(strings.TrimSpace(*bp), "/")
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SurgicalRisk scores a stored patient using their age at asOf.
func SurgicalRisk(p *Patient, asOf time.Time) RiskAssessment {
	return ScoreRisk(RiskFactors{
		AgeYears:      eligibility.AgeBreakdown(p.DateOfBirth, asOf).Years,
		WeightKg:      p.WeightKg,
		HeightCm:      p.HeightCm,
		BloodPressure: p.BloodPressure,
	})
}
