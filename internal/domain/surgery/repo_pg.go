package surgery

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

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, name, date_of_birth, gender, weight_kg, height_cm, blood_pressure,
	note, created_at, updated_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.DateOfBirth, &p.Gender, &p.WeightKg, &p.HeightCm,
		&p.BloodPressure, &p.Note, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, name, date_of_birth, gender, weight_kg, height_cm, blood_pressure, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.DateOfBirth, p.Gender, p.WeightKg, p.HeightCm, p.BloodPressure, p.Note,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET name=$2, date_of_birth=$3, gender=$4, weight_kg=$5,
			height_cm=$6, blood_pressure=$7, note=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.DateOfBirth, p.Gender, p.WeightKg, p.HeightCm, p.BloodPressure, p.Note,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return notFound(err)
}

// Delete removes the patient and their procedure history together.
func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM procedure_records WHERE patient_id = $1`, id); err != nil {
			return err
		}
		tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// =========== Procedure Record Repository ===========

type procedureRecordRepoPG struct{ pool *pgxpool.Pool }

func NewProcedureRecordRepoPG(pool *pgxpool.Pool) ProcedureRecordRepository {
	return &procedureRecordRepoPG{pool: pool}
}

func (r *procedureRecordRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const recordCols = `id, patient_id, procedure_id, sequence, performed_on, notes, created_at`

func (r *procedureRecordRepoPG) scanRecord(row pgx.Row) (*ProcedureRecord, error) {
	var pr ProcedureRecord
	err := row.Scan(&pr.ID, &pr.PatientID, &pr.ProcedureID, &pr.Sequence, &pr.PerformedOn, &pr.Notes, &pr.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &pr, nil
}

func (r *procedureRecordRepoPG) Create(ctx context.Context, pr *ProcedureRecord) error {
	pr.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO procedure_records (id, patient_id, procedure_id, sequence, performed_on, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		pr.ID, pr.PatientID, pr.ProcedureID, pr.Sequence, pr.PerformedOn, pr.Notes,
	).Scan(&pr.CreatedAt)
}

func (r *procedureRecordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ProcedureRecord, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM procedure_records WHERE id = $1`, id))
}

func (r *procedureRecordRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM procedure_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *procedureRecordRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ProcedureRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+recordCols+` FROM procedure_records WHERE patient_id = $1
		ORDER BY procedure_id, sequence, created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ProcedureRecord
	for rows.Next() {
		pr, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, pr)
	}
	return items, rows.Err()
}
