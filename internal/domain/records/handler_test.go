package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func setupHandler(t *testing.T) (*echo.Echo, *mockRepo) {
	t.Helper()
	repo := &mockRepo{}
	svc := NewService(repo, &mockResolver{}, nil, zerolog.Nop())
	e := echo.New()
	NewHandler(svc).RegisterRoutes(e.Group("/api/v1"))
	return e, repo
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreate(t *testing.T) {
	e, _ := setupHandler(t)
	rec := doJSON(e, http.MethodPost, "/api/v1/records",
		`{"patient_name":"John Doe","diagnosis_details":"flu","medicine_names":"paracetamol"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out PatientRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.PatientID != "P0001" {
		t.Errorf("PatientID = %q", out.PatientID)
	}
}

func TestHandlerCreateValidation(t *testing.T) {
	e, _ := setupHandler(t)
	rec := doJSON(e, http.MethodPost, "/api/v1/records", `{"patient_name":"","diagnosis_details":"flu"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandlerGetNotFound(t *testing.T) {
	e, _ := setupHandler(t)
	rec := doJSON(e, http.MethodGet, "/api/v1/records/"+uuid.NewString(), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandlerGetBadID(t *testing.T) {
	e, _ := setupHandler(t)
	rec := doJSON(e, http.MethodGet, "/api/v1/records/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandlerListAndSearch(t *testing.T) {
	e, repo := setupHandler(t)
	doJSON(e, http.MethodPost, "/api/v1/records", `{"patient_name":"John Doe","diagnosis_details":"flu"}`)
	doJSON(e, http.MethodPost, "/api/v1/records", `{"patient_name":"Jane Smith","diagnosis_details":"cold"}`)
	if len(repo.recs) != 2 {
		t.Fatalf("stored = %d", len(repo.recs))
	}

	rec := doJSON(e, http.MethodGet, "/api/v1/records", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listOut struct {
		Total int64 `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &listOut)
	if listOut.Total != 2 {
		t.Errorf("list total = %d", listOut.Total)
	}

	rec = doJSON(e, http.MethodGet, "/api/v1/records/search?q=jane", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}
	var searchOut struct {
		Total int64 `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &searchOut)
	if searchOut.Total != 1 {
		t.Errorf("search total = %d", searchOut.Total)
	}
}

func TestHandlerUpdateAndDelete(t *testing.T) {
	e, repo := setupHandler(t)
	doJSON(e, http.MethodPost, "/api/v1/records", `{"patient_name":"John Doe","diagnosis_details":"flu"}`)
	id := repo.recs[0].ID

	rec := doJSON(e, http.MethodPut, "/api/v1/records/"+id.String(), `{"diagnosis_details":"severe flu"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got, _ := repo.GetByID(context.Background(), id)
	if got.DiagnosisDetails != "severe flu" {
		t.Errorf("DiagnosisDetails = %q", got.DiagnosisDetails)
	}

	rec = doJSON(e, http.MethodDelete, "/api/v1/records/"+id.String(), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(e, http.MethodDelete, "/api/v1/records/"+id.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", rec.Code)
	}
}

func TestHandlerExport(t *testing.T) {
	e, _ := setupHandler(t)
	doJSON(e, http.MethodPost, "/api/v1/records", `{"patient_name":"John Doe","diagnosis_details":"flu"}`)

	rec := doJSON(e, http.MethodGet, "/api/v1/records/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content-type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty export body")
	}
}
