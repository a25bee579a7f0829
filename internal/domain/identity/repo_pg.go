package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepositoryPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) FindByName(ctx context.Context, name string) (*Mapping, error) {
	var m Mapping
	err := r.pool.QueryRow(ctx, `
		SELECT patient_id, patient_name FROM patient_identity
		WHERE LOWER(patient_name) = LOWER($1)`, name).
		Scan(&m.PatientID, &m.PatientName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying patient identity: %w", err)
	}
	return &m, nil
}

func (r *repoPG) NextSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('patient_id_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("advancing patient id sequence: %w", err)
	}
	return seq, nil
}

func (r *repoPG) Insert(ctx context.Context, m *Mapping) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient_identity (patient_id, patient_name)
		VALUES ($1, $2)`, m.PatientID, m.PatientName)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("inserting patient identity: %w", err)
	}
	return nil
}
