package records

import (
	"time"

	"github.com/google/uuid"
)

// PatientRecord is one medical record. PatientID is assigned from the
// patient name on create and never set by clients.
type PatientRecord struct {
	ID               uuid.UUID `json:"id"`
	PatientID        string    `json:"patient_id"`
	PatientName      string    `json:"patient_name"`
	DiagnosisDetails string    `json:"diagnosis_details"`
	MedicineNames    string    `json:"medicine_names"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateInput is the client payload for a new record.
type CreateInput struct {
	PatientName      string `json:"patient_name"`
	DiagnosisDetails string `json:"diagnosis_details"`
	MedicineNames    string `json:"medicine_names"`
}

// UpdateInput carries partial updates; nil fields are left unchanged.
type UpdateInput struct {
	PatientName      *string `json:"patient_name"`
	DiagnosisDetails *string `json:"diagnosis_details"`
	MedicineNames    *string `json:"medicine_names"`
}
