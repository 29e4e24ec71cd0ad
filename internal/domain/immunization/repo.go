package immunization

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a child or dose does not exist.
var ErrNotFound = errors.New("not found")

type ChildRepository interface {
	Create(ctx context.Context, c *Child) error
	GetByID(ctx context.Context, id uuid.UUID) (*Child, error)
	Update(ctx context.Context, c *Child) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Child, int, error)
}

type DoseRepository interface {
	Create(ctx context.Context, d *Dose) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dose, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByChild(ctx context.Context, childID uuid.UUID) ([]*Dose, error)
}
