package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medhist/medhist/pkg/pagination"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepositoryPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const recordColumns = `id, patient_id, patient_name, diagnosis_details, medicine_names, created_at, updated_at`

func scanRecord(row pgx.Row) (*PatientRecord, error) {
	var r PatientRecord
	err := row.Scan(&r.ID, &r.PatientID, &r.PatientName, &r.DiagnosisDetails, &r.MedicineNames, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *repoPG) Insert(ctx context.Context, rec *PatientRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.PatientID, rec.PatientName, rec.DiagnosisDetails, rec.MedicineNames, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting patient record: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+` FROM patient_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying patient record: %w", err)
	}
	return rec, nil
}

func (r *repoPG) Update(ctx context.Context, rec *PatientRecord) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient_records
		SET patient_id = $2, patient_name = $3, diagnosis_details = $4, medicine_names = $5, updated_at = $6
		WHERE id = $1`,
		rec.ID, rec.PatientID, rec.PatientName, rec.DiagnosisDetails, rec.MedicineNames, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating patient record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patient_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting patient record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, p pagination.Params) ([]PatientRecord, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient_records`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting patient records: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+` FROM patient_records
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing patient records: %w", err)
	}
	defer rows.Close()
	recs, err := collect(rows)
	return recs, total, err
}

func (r *repoPG) Search(ctx context.Context, query string, p pagination.Params) ([]PatientRecord, int64, error) {
	pattern := "%" + query + "%"
	const where = `
		WHERE patient_id ILIKE $1
		   OR patient_name ILIKE $1
		   OR diagnosis_details ILIKE $1
		   OR medicine_names ILIKE $1`

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient_records`+where, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting search results: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+` FROM patient_records`+where+`
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, pattern, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("searching patient records: %w", err)
	}
	defer rows.Close()
	recs, err := collect(rows)
	return recs, total, err
}

func (r *repoPG) All(ctx context.Context) ([]PatientRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+` FROM patient_records ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("loading all patient records: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]PatientRecord, error) {
	recs := []PatientRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning patient record: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}
