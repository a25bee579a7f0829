// Package identity assigns stable patient identifiers to free-text patient
// names. Each distinct name (compared case-insensitively) maps to exactly
// one identifier of the form P0001, P0002, ... in order of first appearance.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned by repositories when no mapping exists.
	ErrNotFound = errors.New("identity mapping not found")
	// ErrNameTaken is returned when a concurrent insert claimed the name first.
	ErrNameTaken = errors.New("identity name already mapped")
	// ErrEmptyName rejects blank patient names.
	ErrEmptyName = errors.New("patient name must not be empty")
)

// Mapping is one name-to-identifier assignment.
type Mapping struct {
	PatientID   string
	PatientName string
}

// Repository persists name-to-identifier mappings. NextSequence must be
// monotonic across concurrent callers; Insert must fail with ErrNameTaken
// when the case-folded name already has a mapping.
type Repository interface {
	FindByName(ctx context.Context, name string) (*Mapping, error)
	NextSequence(ctx context.Context) (int64, error)
	Insert(ctx context.Context, m *Mapping) error
}

// FormatPatientID renders a sequence number as a patient identifier.
// Numbers beyond 9999 widen naturally rather than truncate.
func FormatPatientID(seq int64) string {
	return fmt.Sprintf("P%04d", seq)
}

// Resolver maps patient names to identifiers, creating a mapping on first
// sight of a name.
type Resolver struct {
	repo Repository
	log  zerolog.Logger
}

func NewResolver(repo Repository, log zerolog.Logger) *Resolver {
	return &Resolver{repo: repo, log: log.With().Str("component", "identity").Logger()}
}

// Resolve returns the identifier for name, assigning the next free one if
// the name has never been seen. Lookup is case-insensitive; the stored
// mapping keeps the spelling from first sight.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyName
	}

	m, err := r.repo.FindByName(ctx, name)
	if err == nil {
		return m.PatientID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("looking up identity: %w", err)
	}

	seq, err := r.repo.NextSequence(ctx)
	if err != nil {
		return "", fmt.Errorf("allocating identity sequence: %w", err)
	}
	assigned := &Mapping{PatientID: FormatPatientID(seq), PatientName: name}
	err = r.repo.Insert(ctx, assigned)
	if errors.Is(err, ErrNameTaken) {
		// Lost the race to a concurrent writer; their mapping wins.
		m, err = r.repo.FindByName(ctx, name)
		if err != nil {
			return "", fmt.Errorf("re-reading identity after conflict: %w", err)
		}
		return m.PatientID, nil
	}
	if err != nil {
		return "", fmt.Errorf("inserting identity mapping: %w", err)
	}

	r.log.Info().Str("patient_id", assigned.PatientID).Msg("new patient identity assigned")
	return assigned.PatientID, nil
}
