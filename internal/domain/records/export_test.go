package records

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

func TestExportXLSX(t *testing.T) {
	svc := NewService(&mockRepo{}, &mockResolver{}, nil, zerolog.Nop())
	ctx := context.Background()
	svc.Create(ctx, CreateInput{PatientName: "John Doe", DiagnosisDetails: "flu", MedicineNames: "paracetamol"})

	data, err := svc.ExportXLSX(ctx)
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Records")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[0][1] != "Patient ID" || rows[0][2] != "Patient Name" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "P0001" || rows[1][2] != "John Doe" || rows[1][4] != "paracetamol" {
		t.Errorf("row = %v", rows[1])
	}
}

func TestExportXLSXEmpty(t *testing.T) {
	svc := NewService(&mockRepo{}, &mockResolver{}, nil, zerolog.Nop())
	data, err := svc.ExportXLSX(context.Background())
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows("Records")
	if len(rows) != 1 {
		t.Errorf("rows = %d, want header only", len(rows))
	}
}
