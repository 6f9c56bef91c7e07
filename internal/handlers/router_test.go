package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/SAP-F-2025/lms-service/internal/services"
)

func TestAssessmentHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		router := newTestRouter(newFakeManager(), 60)
		rec := doJSON(router, http.MethodPost, "/api/v1/assessments", staffToken, `{"course_id":1,"title":"Safety basics","time_limit":30,"max_attempts":2}`)
		assertStatus(t, rec, http.StatusCreated)
		if !strings.Contains(rec.Body.String(), `"created_by":"`+staffID+`"`) {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("validation details", func(t *testing.T) {
		fm := newFakeManager()
		fm.assessments.err = services.ValidationErrors{{Field: "time_limit", Rule: "required", Message: "is required"}}
		router := newTestRouter(fm, 60)

		rec := doJSON(router, http.MethodPost, "/api/v1/assessments", staffToken, `{"course_id":1,"title":"x"}`)
		assertStatus(t, rec, http.StatusBadRequest)
		resp := decodeError(t, rec)
		if resp.Code != CodeValidation || !strings.Contains(rec.Body.String(), `"rule":"required"`) {
			t.Errorf("response = %s", rec.Body.String())
		}
	})
}

func TestAssessmentHandler_ListFilters(t *testing.T) {
	fm := newFakeManager()
	router := newTestRouter(fm, 60)

	rec := doRequest(router, http.MethodGet, "/api/v1/assessments?course_id=4&is_active=false&page=3&size=500", staffToken, nil, "")
	assertStatus(t, rec, http.StatusOK)

	f := fm.assessments.lastFilters
	if f.CourseID == nil || *f.CourseID != 4 {
		t.Errorf("course filter = %v", f.CourseID)
	}
	if f.IsActive == nil || *f.IsActive {
		t.Errorf("active filter = %v", f.IsActive)
	}
	if f.Limit != 100 || f.Offset != 200 {
		t.Errorf("limit/offset = %d/%d, want 100/200", f.Limit, f.Offset)
	}
}

func TestQuestionHandler_Import(t *testing.T) {
	fm := newFakeManager()
	router := newTestRouter(fm, 60)
	workbook := []byte("PK\x03\x04 fake workbook")

	body, contentType := uploadBody(t, nil, "questions.xlsx", workbook)
	rec := doRequest(router, http.MethodPost, "/api/v1/courses/3/questions/import", staffToken, body, contentType)
	assertStatus(t, rec, http.StatusOK)

	if fm.importer.courseID != 3 || !bytes.Equal(fm.importer.imported, workbook) {
		t.Errorf("importer saw course %d data %q", fm.importer.courseID, fm.importer.imported)
	}
	if !strings.Contains(rec.Body.String(), `"created":2`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestScheduleHandler_Export(t *testing.T) {
	fm := newFakeManager()
	fm.importer.export = &services.ExportFile{
		Filename:    "schedule-5-results.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        []byte("PK\x03\x04 results"),
	}
	router := newTestRouter(fm, 60)

	rec := doRequest(router, http.MethodGet, "/api/v1/schedules/5/results/export", staffToken, nil, "")
	assertStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=schedule-5-results.xlsx" {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != fm.importer.export.ContentType {
		t.Errorf("Content-Type = %q", got)
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/schedules/5/results/export", traineeToken, nil, "")
	assertStatus(t, rec, http.StatusForbidden)
}

func TestHealthAndMetrics(t *testing.T) {
	fm := newFakeManager()
	router := newTestRouter(fm, 60)

	assertStatus(t, doRequest(router, http.MethodGet, "/health", "", nil, ""), http.StatusOK)

	fm.healthErr = errors.New("database ping failed")
	assertStatus(t, doRequest(router, http.MethodGet, "/health", "", nil, ""), http.StatusServiceUnavailable)

	rec := doRequest(router, http.MethodGet, "/metrics", "", nil, "")
	assertStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `http_requests_total{endpoint="/health"`) {
		t.Errorf("request counter missing from /metrics:\n%s", rec.Body.String())
	}
}
