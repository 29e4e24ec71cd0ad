package surgery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/healthtrack/healthtrack/internal/domain/catalog"
	"github.com/healthtrack/healthtrack/internal/domain/eligibility"
)

// ErrUnknownItem is returned when a record names a procedure missing from the catalog.
var ErrUnknownItem = errors.New("unknown procedure")

// ErrInvalid matches every validation failure reported by the service.
var ErrInvalid = errors.New("invalid input")

type validationError struct{ msg string }

func (e *validationError) Error() string        { return e.msg }
func (e *validationError) Is(target error) bool { return target == ErrInvalid }

func invalidf(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

type Service struct {
	patients   PatientRepository
	records    ProcedureRecordRepository
	procedures *catalog.Reference
	evaluator  *eligibility.Evaluator
	now        func() time.Time
}

func NewService(patients PatientRepository, records ProcedureRecordRepository, procedures *catalog.Reference, ev *eligibility.Evaluator) *Service {
	return &Service{patients: patients, records: records, procedures: procedures, evaluator: ev, now: time.Now}
}

// Now is the service clock. Requests without as_of are evaluated against it.
func (s *Service) Now() time.Time { return s.now() }

// -- Patient --

func (s *Service) validatePatient(p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return invalidf("name is required")
	}
	if p.DateOfBirth.IsZero() {
		return invalidf("date_of_birth is required")
	}
	if p.DateOfBirth.After(s.now()) {
		return invalidf("date_of_birth cannot be in the future")
	}
	if p.Gender != nil && !validGenders[*p.Gender] {
		return invalidf("invalid gender: %s", *p.Gender)
	}
	if p.WeightKg != nil && *p.WeightKg <= 0 {
		return invalidf("weight_kg must be positive")
	}
	if p.HeightCm != nil && *p.HeightCm <= 0 {
		return invalidf("height_cm must be positive")
	}
	if p.BloodPressure != nil && !validBloodPressure(*p.BloodPressure) {
		return invalidf("invalid blood_pressure %q: want systolic/diastolic", *p.BloodPressure)
	}
	return nil
}

func validBloodPressure(bp string) bool {
	sys, dia, ok := strings.Cut(strings.TrimSpace(bp), "/")
	if !ok {
		return false
	}
	s, err1 := strconv.Atoi(strings.TrimSpace(sys))
	d, err2 := strconv.Atoi(strings.TrimSpace(dia))
	return err1 == nil && err2 == nil && s > 0 && d > 0
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := s.validatePatient(p); err != nil {
		return err
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := s.validatePatient(p); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

// -- Procedure records --

// RecordProcedure validates r against the patient and the procedure catalog.
// A zero Sequence becomes the next number for that procedure.
func (s *Service) RecordProcedure(ctx context.Context, r *ProcedureRecord) error {
	r.ProcedureID = strings.TrimSpace(r.ProcedureID)
	if r.ProcedureID == "" {
		return invalidf("procedure_id is required")
	}
	item, ok := s.procedures.Catalog.Lookup(r.ProcedureID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, r.ProcedureID)
	}
	if r.Sequence < 0 {
		return invalidf("sequence must be positive")
	}

	patient, records, err := s.load(ctx, r.PatientID)
	if err != nil {
		return err
	}
	if r.PerformedOn != nil {
		if r.PerformedOn.Before(patient.DateOfBirth) {
			return invalidf("performed_on is before the patient's date of birth")
		}
		if r.PerformedOn.After(s.now()) {
			return invalidf("performed_on cannot be in the future")
		}
	}
	if r.Sequence == 0 {
		r.Sequence = 1
		for _, prev := range records {
			if prev.ProcedureID == r.ProcedureID {
				r.Sequence++
			}
		}
	}
	if r.Sequence > item.ExpectedCount() {
		return invalidf("occurrence %d exceeds the %d expected for %s", r.Sequence, item.ExpectedCount(), item.Name)
	}
	return s.records.Create(ctx, r)
}

func (s *Service) ListProcedures(ctx context.Context, patientID uuid.UUID) ([]*ProcedureRecord, error) {
	_, records, err := s.load(ctx, patientID)
	return records, err
}

func (s *Service) DeleteProcedure(ctx context.Context, patientID, recordID uuid.UUID) error {
	r, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	if r.PatientID != patientID {
		return ErrNotFound
	}
	return s.records.Delete(ctx, recordID)
}

// -- Evaluation --

// Recommendations evaluates the patient's procedure schedule as of q.AsOf.
func (s *Service) Recommendations(ctx context.Context, patientID uuid.UUID, q eligibility.Query) (*eligibility.Result, error) {
	patient, records, err := s.load(ctx, patientID)
	if err != nil {
		return nil, err
	}
	res := s.evaluator.Evaluate(patient.Subject(records), s.procedures.Catalog, s.procedures.Schedule, q)
	return &res, nil
}

// Risk scores the stored patient using their age at asOf.
func (s *Service) Risk(ctx context.Context, patientID uuid.UUID, asOf time.Time) (RiskAssessment, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return RiskAssessment{}, err
	}
	return SurgicalRisk(p, asOf), nil
}

// load fetches the patient and their procedure history concurrently.
func (s *Service) load(ctx context.Context, patientID uuid.UUID) (*Patient, []*ProcedureRecord, error) {
	var (
		patient *Patient
		records []*ProcedureRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		patient, err = s.patients.GetByID(gctx, patientID)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.records.ListByPatient(gctx, patientID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if records == nil {
		records = []*ProcedureRecord{}
	}
	return patient, records, nil
}
