package immunization

import (
	"time"

	"github.com/google/uuid"

	"github.com/healthtrack/healthtrack/internal/domain/eligibility"
)

// Child maps to the children table.
type Child struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender      *string   `db:"gender" json:"gender,omitempty"`
	WeightKg    *float64  `db:"weight_kg" json:"weight_kg,omitempty"`
	HeightCm    *float64  `db:"height_cm" json:"height_cm,omitempty"`
	Note        *string   `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Dose maps to the doses table. A dose is never updated once recorded.
type Dose struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ChildID        uuid.UUID  `db:"child_id" json:"child_id"`
	VaccineID      string     `db:"vaccine_id" json:"vaccine_id"`
	DoseNumber     int        `db:"dose_number" json:"dose_number"`
	AdministeredOn *time.Time `db:"administered_on" json:"administered_on,omitempty"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Subject converts the child and their doses into the engine's input.
func (c *Child) Subject(doses []*Dose) eligibility.Subject {
	sub := eligibility.Subject{
		ID:          c.ID.String(),
		DateOfBirth: c.DateOfBirth,
		History:     make([]eligibility.HistoryRecord, 0, len(doses)),
	}
	for _, d := range doses {
		sub.History = append(sub.History, eligibility.HistoryRecord{
			ItemID:      d.VaccineID,
			Sequence:    d.DoseNumber,
			CompletedOn: d.AdministeredOn,
			Notes:       d.Notes,
		})
	}
	return sub
}

var validGenders = map[string]bool{
	"male": true, "female": true, "other": true, "unknown": true,
}
