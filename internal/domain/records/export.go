package records

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// exportEnvelope is the JSON backup/export payload.
type exportEnvelope struct {
	ExportedAt time.Time       `json:"exported_at"`
	Count      int             `json:"count"`
	Records    []PatientRecord `json:"records"`
}

// ExportJSON serializes every record. This is also the backup payload the
// storage guard uploads.
func (s *Service) ExportJSON(ctx context.Context) ([]byte, error) {
	recs, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(exportEnvelope{
		ExportedAt: s.now().UTC(),
		Count:      len(recs),
		Records:    recs,
	})
}

var exportHeader = []string{"Sl No", "Patient ID", "Patient Name", "Diagnosis Details", "Medicine Names", "Created At"}

// ExportXLSX renders every record as a spreadsheet for download.
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	recs, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Records"
	f.SetSheetName("Sheet1", sheet)

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, fmt.Errorf("writing export header: %w", err)
		}
	}
	for i, rec := range recs {
		row := []any{
			i + 1,
			rec.PatientID,
			rec.PatientName,
			rec.DiagnosisDetails,
			rec.MedicineNames,
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, val := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return nil, fmt.Errorf("writing export row %d: %w", i+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("rendering export workbook: %w", err)
	}
	return buf.Bytes(), nil
}
