// Package records implements medical-record bookkeeping: CRUD and search
// over patient records, with patient identifiers assigned through the
// identity resolver and storage backups triggered after writes.
package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medhist/medhist/internal/domain/storage"
	"github.com/medhist/medhist/internal/platform/telemetry"
	"github.com/medhist/medhist/pkg/pagination"
)

// ErrValidation wraps client input problems.
var ErrValidation = errors.New("invalid record input")

// IdentityResolver maps a patient name to its stable identifier.
type IdentityResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// BackupTrigger is the post-write hook into the storage guard. Its result
// is logged and discarded: backup problems never fail a record write.
type BackupTrigger interface {
	MaybeBackup(ctx context.Context) (storage.Result, error)
}

type Service struct {
	repo     Repository
	resolver IdentityResolver
	trigger  BackupTrigger
	metrics  *telemetry.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, resolver IdentityResolver, metrics *telemetry.Metrics, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		metrics:  metrics,
		log:      log.With().Str("component", "records").Logger(),
		now:      time.Now,
	}
}

// SetBackupTrigger wires the storage guard in after construction; the
// guard itself reads records through this service, so neither side can
// take the other as a constructor argument.
func (s *Service) SetBackupTrigger(t BackupTrigger) {
	s.trigger = t
}

func validateCreate(in CreateInput) error {
	if strings.TrimSpace(in.PatientName) == "" {
		return fmt.Errorf("%w: patient_name is required", ErrValidation)
	}
	if strings.TrimSpace(in.DiagnosisDetails) == "" {
		return fmt.Errorf("%w: diagnosis_details is required", ErrValidation)
	}
	return nil
}

// Create stores a new record, assigning its patient identifier from the
// patient name.
func (s *Service) Create(ctx context.Context, in CreateInput) (*PatientRecord, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	patientID, err := s.resolver.Resolve(ctx, in.PatientName)
	if err != nil {
		return nil, fmt.Errorf("resolving patient identity: %w", err)
	}

	now := s.now().UTC()
	rec := &PatientRecord{
		ID:               uuid.New(),
		PatientID:        patientID,
		PatientName:      in.PatientName,
		DiagnosisDetails: in.DiagnosisDetails,
		MedicineNames:    in.MedicineNames,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordsCreated.Inc()
	}
	s.log.Info().Str("record_id", rec.ID.String()).Str("patient_id", rec.PatientID).Msg("record created")
	s.afterWrite(ctx)
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies a partial update. A changed patient name re-resolves the
// patient identifier, so renaming a patient to an existing name merges
// histories under that patient's id.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*PatientRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.PatientName != nil && !strings.EqualFold(*in.PatientName, rec.PatientName) {
		if strings.TrimSpace(*in.PatientName) == "" {
			return nil, fmt.Errorf("%w: patient_name must not be empty", ErrValidation)
		}
		patientID, err := s.resolver.Resolve(ctx, *in.PatientName)
		if err != nil {
			return nil, fmt.Errorf("resolving patient identity: %w", err)
		}
		rec.PatientName = *in.PatientName
		rec.PatientID = patientID
	} else if in.PatientName != nil {
		rec.PatientName = *in.PatientName
	}
	if in.DiagnosisDetails != nil {
		if strings.TrimSpace(*in.DiagnosisDetails) == "" {
			return nil, fmt.Errorf("%w: diagnosis_details must not be empty", ErrValidation)
		}
		rec.DiagnosisDetails = *in.DiagnosisDetails
	}
	if in.MedicineNames != nil {
		rec.MedicineNames = *in.MedicineNames
	}
	rec.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.afterWrite(ctx)
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, p pagination.Params) ([]PatientRecord, int64, error) {
	return s.repo.List(ctx, p)
}

func (s *Service) Search(ctx context.Context, query string, p pagination.Params) ([]PatientRecord, int64, error) {
	if strings.TrimSpace(query) == "" {
		return s.repo.List(ctx, p)
	}
	return s.repo.Search(ctx, query, p)
}

// afterWrite gives the storage guard a chance to back up. Whatever
// happens there is logged and dropped.
func (s *Service) afterWrite(ctx context.Context) {
	if s.trigger == nil {
		return
	}
	res, err := s.trigger.MaybeBackup(ctx)
	switch res.Outcome {
	case storage.OutcomeSucceeded:
		s.log.Info().Str("remote_id", res.RemoteID).Msg("post-write backup succeeded")
	case storage.OutcomeFailed:
		s.log.Warn().Err(err).Str("detail", res.Detail).Msg("post-write backup failed")
	default:
		s.log.Debug().Str("outcome", string(res.Outcome)).Msg("post-write backup skipped")
	}
}
