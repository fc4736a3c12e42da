package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/constants"
	"github.com/joseph-ayodele/bulk-resumes/internal/async"
	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/entity"
	"github.com/joseph-ayodele/bulk-resumes/internal/export"
	"github.com/joseph-ayodele/bulk-resumes/internal/llm"
)

type mockBatches struct {
	jobs []async.Job
	err  error
	runs map[string]async.RunState
}

func (m *mockBatches) Enqueue(_ context.Context, job async.Job) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.jobs = append(m.jobs, job)
	return "run-1", nil
}

func (m *mockBatches) Get(id string) (async.RunState, bool) {
	st, ok := m.runs[id]
	return st, ok
}

func (m *mockBatches) List() []async.RunState {
	out := make([]async.RunState, 0, len(m.runs))
	for _, st := range m.runs {
		out = append(out, st)
	}
	return out
}

type mockReports struct {
	rows []entity.Applicant
	err  error
}

func (m *mockReports) Report(context.Context) (export.Report, error) {
	if m.err != nil {
		return export.Report{}, m.err
	}
	return export.BuildReport(m.rows), nil
}

func (m *mockReports) ExportApplicantsXLSX(rows []entity.Applicant) ([]byte, error) {
	return export.NewService(nil, nil).ExportApplicantsXLSX(rows)
}

func setupTestRouter(t *testing.T, b Batches, r Reports, ping Pinger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := NewServer(b, r, ping, 1, zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC) }
	return s.Router()
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func sampleRows() []entity.Applicant {
	return []entity.Applicant{{
		ID: 7, Name: entity.Str("Rahul"), Mobile: entity.Str("N/A"), Email: entity.Str("N/A"),
		ResumeURL: entity.Str("https://s/a.pdf"), CandidateCategory: entity.Str("good"),
		SpecialRemarks: entity.Str("other_state"), Justification: entity.Str("iQor"),
	}}
}

func TestSubmitBatch_Accepted(t *testing.T) {
	b := &mockBatches{}
	router := setupTestRouter(t, b, &mockReports{}, nil)

	body, ct := multipartBody(t, "file", "resumes.zip", []byte("PK..."))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/api/v1/batches/run-1", w.Header().Get("Location"))
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp["run_id"])

	require.Len(t, b.jobs, 1)
	assert.Equal(t, "resumes.zip", b.jobs[0].Archive)
	assert.Equal(t, "http", b.jobs[0].Source)
	assert.Equal(t, []byte("PK..."), b.jobs[0].Data)
}

func TestSubmitBatch_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		queueErr error
		status   int
	}{
		{"missing file field", "other", "resumes.zip", nil, http.StatusBadRequest},
		{"not a zip", "file", "resume.pdf", nil, http.StatusBadRequest},
		{"queue full", "file", "resumes.zip", async.ErrQueueFull, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(t, &mockBatches{err: tt.queueErr}, &mockReports{}, nil)
			body, ct := multipartBody(t, tt.field, tt.filename, []byte("x"))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestGetBatch(t *testing.T) {
	b := &mockBatches{runs: map[string]async.RunState{
		"abc": {RunID: "abc", Status: constants.RunCompleted},
	}}
	router := setupTestRouter(t, b, &mockReports{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/batches/abc", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var st async.RunState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, constants.RunCompleted, st.Status)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/batches/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestListApplicants(t *testing.T) {
	rows := sampleRows()
	rows = append(rows, entity.Applicant{ID: 8, Name: entity.Str("Priya")})
	router := setupTestRouter(t, &mockBatches{}, &mockReports{rows: rows}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/applicants", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Rows            []entity.Applicant   `json:"rows"`
		ColumnsWithNull []export.ColumnNulls `json:"columns_with_null"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Rows, 2)
	assert.Len(t, resp.ColumnsWithNull, 6)
}

func TestListApplicants_DatabaseError(t *testing.T) {
	router := setupTestRouter(t, &mockBatches{}, &mockReports{err: common.ErrDatabase}, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/applicants", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestReportCSV(t *testing.T) {
	router := setupTestRouter(t, &mockBatches{}, &mockReports{rows: sampleRows()}, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/report.csv", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="resume_analysis_20250203_040506.csv"`, w.Header().Get("Content-Disposition"))
	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "7", records[1][0])
}

func TestReportXLSX(t *testing.T) {
	router := setupTestRouter(t, &mockBatches{}, &mockReports{rows: sampleRows()}, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/report.xlsx", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypeXLSX, w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestInstructions(t *testing.T) {
	router := setupTestRouter(t, &mockBatches{}, &mockReports{}, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/instructions", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, llm.AnalystSystemPrompt, resp["instructions"])
	assert.Len(t, resp["northeast_states"], 7)
}

func TestHealth(t *testing.T) {
	router := setupTestRouter(t, &mockBatches{}, &mockReports{}, func(context.Context) error { return nil })
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	router = setupTestRouter(t, &mockBatches{}, &mockReports{}, func(context.Context) error { return errors.New("db down") })
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	router := setupTestRouter(t, &mockBatches{}, &mockReports{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(headerRequestID))
}
