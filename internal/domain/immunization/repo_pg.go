package immunization

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthtrack/healthtrack/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// =========== Child Repository ===========

type childRepoPG struct{ pool *pgxpool.Pool }

func NewChildRepoPG(pool *pgxpool.Pool) ChildRepository {
	return &childRepoPG{pool: pool}
}

func (r *childRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const childCols = `id, name, date_of_birth, gender, weight_kg, height_cm, note, created_at, updated_at`

func (r *childRepoPG) scanChild(row pgx.Row) (*Child, error) {
	var c Child
	err := row.Scan(&c.ID, &c.Name, &c.DateOfBirth, &c.Gender, &c.WeightKg, &c.HeightCm,
		&c.Note, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *childRepoPG) Create(ctx context.Context, c *Child) error {
	c.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO children (id, name, date_of_birth, gender, weight_kg, height_cm, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.DateOfBirth, c.Gender, c.WeightKg, c.HeightCm, c.Note,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *childRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Child, error) {
	return r.scanChild(r.conn(ctx).QueryRow(ctx, `SELECT `+childCols+` FROM children WHERE id = $1`, id))
}

func (r *childRepoPG) Update(ctx context.Context, c *Child) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE children SET name=$2, date_of_birth=$3, gender=$4, weight_kg=$5,
			height_cm=$6, note=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.DateOfBirth, c.Gender, c.WeightKg, c.HeightCm, c.Note,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return notFound(err)
}

// Delete removes the child and their doses together.
func (r *childRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM doses WHERE child_id = $1`, id); err != nil {
			return err
		}
		tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM children WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *childRepoPG) List(ctx context.Context, limit, offset int) ([]*Child, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM children`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+childCols+` FROM children ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Child
	for rows.Next() {
		c, err := r.scanChild(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

// =========== Dose Repository ===========

type doseRepoPG struct{ pool *pgxpool.Pool }

func NewDoseRepoPG(pool *pgxpool.Pool) DoseRepository {
	return &doseRepoPG{pool: pool}
}

func (r *doseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const doseCols = `id, child_id, vaccine_id, dose_number, administered_on, notes, created_at`

func (r *doseRepoPG) scanDose(row pgx.Row) (*Dose, error) {
	var d Dose
	err := row.Scan(&d.ID, &d.ChildID, &d.VaccineID, &d.DoseNumber, &d.AdministeredOn, &d.Notes, &d.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *doseRepoPG) Create(ctx context.Context, d *Dose) error {
	d.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doses (id, child_id, vaccine_id, dose_number, administered_on, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		d.ID, d.ChildID, d.VaccineID, d.DoseNumber, d.AdministeredOn, d.Notes,
	).Scan(&d.CreatedAt)
}

func (r *doseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Dose, error) {
	return r.scanDose(r.conn(ctx).QueryRow(ctx, `SELECT `+doseCols+` FROM doses WHERE id = $1`, id))
}

func (r *doseRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *doseRepoPG) ListByChild(ctx context.Context, childID uuid.UUID) ([]*Dose, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doseCols+` FROM doses WHERE child_id = $1
		ORDER BY vaccine_id, dose_number, created_at`, childID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Dose
	for rows.Next() {
		d, err := r.scanDose(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
