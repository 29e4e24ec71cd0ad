package surgery

import (
	"time"

	"github.com/google/uuid"

	"github.com/healthtrack/healthtrack/internal/domain/eligibility"
)

// Patient maps to the patients table. Weight, height and blood pressure feed
// the surgical risk score.
type Patient struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	DateOfBirth   time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender        *string   `db:"gender" json:"gender,omitempty"`
	WeightKg      *float64  `db:"weight_kg" json:"weight_kg,omitempty"`
	HeightCm      *float64  `db:"height_cm" json:"height_cm,omitempty"`
	BloodPressure *string   `db:"blood_pressure" json:"blood_pressure,omitempty"`
	Note          *string   `db:"note" json:"note,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ProcedureRecord maps to the procedure_records table. Records are never
// updated once created.
type ProcedureRecord struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProcedureID string     `db:"procedure_id" json:"procedure_id"`
	Sequence    int        `db:"sequence" json:"sequence"`
	PerformedOn *time.Time `db:"performed_on" json:"performed_on,omitempty"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Subject converts the patient and their procedure history into the engine's input.
func (p *Patient) Subject(records []*ProcedureRecord) eligibility.Subject {
	sub := eligibility.Subject{
		ID:          p.ID.String(),
		DateOfBirth: p.DateOfBirth,
		History:     make([]eligibility.HistoryRecord, 0, len(records)),
	}
	for _, r := range records {
		sub.History = append(sub.History, eligibility.HistoryRecord{
			ItemID:      r.ProcedureID,
			Sequence:    r.Sequence,
			CompletedOn: r.PerformedOn,
			Notes:       r.Notes,
		})
	}
	return sub
}

var validGenders = map[string]bool{
	"male": true, "female": true, "other": true, "unknown": true,
}
