package records

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/medhist/medhist/pkg/pagination"
)

// ErrNotFound is returned when no record matches the given id.
var ErrNotFound = errors.New("patient record not found")

// Repository persists patient records.
type Repository interface {
	Insert(ctx context.Context, rec *PatientRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientRecord, error)
	Update(ctx context.Context, rec *PatientRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns records newest first.
	List(ctx context.Context, p pagination.Params) ([]PatientRecord, int64, error)
	// Search matches the query against patient id, name, diagnosis and
	// medicines, case-insensitively.
	Search(ctx context.Context, query string, p pagination.Params) ([]PatientRecord, int64, error)
	// All returns every record, newest first. Used by export and backup.
	All(ctx context.Context) ([]PatientRecord, error)
}
