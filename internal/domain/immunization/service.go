package immunization

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/healthtrack/healthtrack/internal/domain/catalog"
	"github.com/healthtrack/healthtrack/internal/domain/eligibility"
)

// ErrUnknownItem is returned when a dose names a vaccine missing from the catalog.
var ErrUnknownItem = errors.New("unknown vaccine")

// ErrInvalid matches every validation failure reported by the service.
var ErrInvalid = errors.New("invalid input")

type validationError struct{ msg string }

func (e *validationError) Error() string        { return e.msg }
func (e *validationError) Is(target error) bool { return target == ErrInvalid }

func invalidf(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

type Service struct {
	children  ChildRepository
	doses     DoseRepository
	vaccines  *catalog.Reference
	evaluator *eligibility.Evaluator
	now       func() time.Time
}

func NewService(children ChildRepository, doses DoseRepository, vaccines *catalog.Reference, ev *eligibility.Evaluator) *Service {
	return &Service{children: children, doses: doses, vaccines: vaccines, evaluator: ev, now: time.Now}
}

// Now is the service clock. Requests without as_of are evaluated against it.
func (s *Service) Now() time.Time { return s.now() }

// -- Child --

func (s *Service) validateChild(c *Child) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalidf("name is required")
	}
	if c.DateOfBirth.IsZero() {
		return invalidf("date_of_birth is required")
	}
	if c.DateOfBirth.After(s.now()) {
		return invalidf("date_of_birth cannot be in the future")
	}
	if c.Gender != nil && !validGenders[*c.Gender] {
		return invalidf("invalid gender: %s", *c.Gender)
	}
	if c.WeightKg != nil && *c.WeightKg <= 0 {
		return invalidf("weight_kg must be positive")
	}
	if c.HeightCm != nil && *c.HeightCm <= 0 {
		return invalidf("height_cm must be positive")
	}
	return nil
}

func (s *Service) CreateChild(ctx context.Context, c *Child) error {
	if err := s.validateChild(c); err != nil {
		return err
	}
	return s.children.Create(ctx, c)
}

func (s *Service) GetChild(ctx context.Context, id uuid.UUID) (*Child, error) {
	return s.children.GetByID(ctx, id)
}

func (s *Service) UpdateChild(ctx context.Context, c *Child) error {
	if err := s.validateChild(c); err != nil {
		return err
	}
	return s.children.Update(ctx, c)
}

func (s *Service) DeleteChild(ctx context.Context, id uuid.UUID) error {
	return s.children.Delete(ctx, id)
}

func (s *Service) ListChildren(ctx context.Context, limit, offset int) ([]*Child, int, error) {
	return s.children.List(ctx, limit, offset)
}

// -- Dose --

// RecordDose validates d against the child and the vaccine catalog. A zero
// DoseNumber becomes the next number for that vaccine.
func (s *Service) RecordDose(ctx context.Context, d *Dose) error {
	d.VaccineID = strings.TrimSpace(d.VaccineID)
	if d.VaccineID == "" {
		return invalidf("vaccine_id is required")
	}
	item, ok := s.vaccines.Catalog.Lookup(d.VaccineID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, d.VaccineID)
	}
	if d.DoseNumber < 0 {
		return invalidf("dose_number must be positive")
	}

	child, doses, err := s.load(ctx, d.ChildID)
	if err != nil {
		return err
	}
	if d.AdministeredOn != nil {
		if d.AdministeredOn.Before(child.DateOfBirth) {
			return invalidf("administered_on is before the child's date of birth")
		}
		if d.AdministeredOn.After(s.now()) {
			return invalidf("administered_on cannot be in the future")
		}
	}
	if d.DoseNumber == 0 {
		d.DoseNumber = 1
		for _, prev := range doses {
			if prev.VaccineID == d.VaccineID {
				d.DoseNumber++
			}
		}
	}
	if d.DoseNumber > item.ExpectedCount() {
		return invalidf("dose %d exceeds the %d dose(s) of %s", d.DoseNumber, item.ExpectedCount(), item.Name)
	}
	return s.doses.Create(ctx, d)
}

func (s *Service) ListDoses(ctx context.Context, childID uuid.UUID) ([]*Dose, error) {
	_, doses, err := s.load(ctx, childID)
	return doses, err
}

func (s *Service) DeleteDose(ctx context.Context, childID, doseID uuid.UUID) error {
	d, err := s.doses.GetByID(ctx, doseID)
	if err != nil {
		return err
	}
	if d.ChildID != childID {
		return ErrNotFound
	}
	return s.doses.Delete(ctx, doseID)
}

// -- Recommendations --

// Recommendations evaluates the child's vaccine schedule as of q.AsOf.
func (s *Service) Recommendations(ctx context.Context, childID uuid.UUID, q eligibility.Query) (*eligibility.Result, error) {
	child, doses, err := s.load(ctx, childID)
	if err != nil {
		return nil, err
	}
	res := s.evaluator.Evaluate(child.Subject(doses), s.vaccines.Catalog, s.vaccines.Schedule, q)
	return &res, nil
}

// load fetches the child and their doses concurrently.
func (s *Service) load(ctx context.Context, childID uuid.UUID) (*Child, []*Dose, error) {
	var (
		child *Child
		doses []*Dose
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		child, err = s.children.GetByID(gctx, childID)
		return err
	})
	g.Go(func() error {
		var err error
		doses, err = s.doses.ListByChild(gctx, childID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if doses == nil {
		doses = []*Dose{}
	}
	return child, doses, nil
}
