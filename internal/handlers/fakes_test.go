package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-service/internal/metrics"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
)

const (
	traineeToken = "trainee-token"
	staffToken   = "staff-token"
	adminToken   = "admin-token"

	traineeID = "trainee-1"
	staffID   = "instructor-1"
)

type fakeParser map[string]*casdoorsdk.Claims

func (p fakeParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	if claims, ok := p[token]; ok {
		return claims, nil
	}
	return nil, errors.New("token is malformed")
}

var testTokens = fakeParser{
	traineeToken: {User: casdoorsdk.User{Id: traineeID, Type: "trainee", Email: "trainee@example.com"}},
	staffToken:   {User: casdoorsdk.User{Id: staffID, Type: "instructor"}},
	adminToken:   {User: casdoorsdk.User{Id: "admin-1", IsAdmin: true}},
}

// ===== SERVICE FAKES =====
// Each fake embeds its interface; calling a method that is not overridden
// panics, which fails the test that reached it.

type fakeAssessments struct {
	services.AssessmentService
	err         error
	lastFilters repositories.AssessmentFilters
}

func (f *fakeAssessments) Create(ctx context.Context, req *services.CreateAssessmentRequest, creatorID string) (*services.AssessmentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.AssessmentResponse{Assessment: &models.Assessment{ID: 1, Title: req.Title, CreatedBy: creatorID}}, nil
}

func (f *fakeAssessments) List(ctx context.Context, filters repositories.AssessmentFilters) (*services.AssessmentListResponse, error) {
	f.lastFilters = filters
	return &services.AssessmentListResponse{Assessments: []*models.Assessment{}}, nil
}

type fakeQuestions struct {
	services.QuestionService
	err     error
	created int

	updatedID   uint
	updateReq   *services.UpdateQuestionRequest
	courseID    uint
	lastFilters repositories.QuestionFilters
}

func (f *fakeQuestions) Update(ctx context.Context, id uint, req *services.UpdateQuestionRequest, userID string) (*models.Question, error) {
	f.updatedID, f.updateReq = id, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Question{ID: id, QuestionType: models.MultipleChoice}, nil
}

func (f *fakeQuestions) ListByCourse(ctx context.Context, courseID uint, filters repositories.QuestionFilters) (*services.QuestionListResponse, error) {
	f.courseID, f.lastFilters = courseID, filters
	return &services.QuestionListResponse{Questions: []*models.Question{}, Page: 1, Size: filters.Limit}, nil
}

func (f *fakeQuestions) Create(ctx context.Context, req *services.CreateQuestionRequest, creatorID string) (*models.Question, error) {
	f.created++
	return &models.Question{ID: 1, QuestionText: req.QuestionText}, nil
}

type fakeAttempts struct {
	services.AttemptService
	err error

	calls        int
	assessmentID uint
	scheduleID   uint
	attemptID    uint
	questionID   uint
	traineeID    string
	answer       json.RawMessage
}

func (f *fakeAttempts) StartAttempt(ctx context.Context, assessmentID uint, traineeID string) (*services.StartAttemptResponse, error) {
	f.calls++
	f.assessmentID, f.traineeID = assessmentID, traineeID
	if f.err != nil {
		return nil, f.err
	}
	return &services.StartAttemptResponse{AttemptID: 42, AttemptNumber: 1, TimeLimit: 30}, nil
}

func (f *fakeAttempts) StartScheduledAttempt(ctx context.Context, scheduleID, assessmentID uint, traineeID string) (*services.StartAttemptResponse, error) {
	f.calls++
	f.scheduleID, f.assessmentID, f.traineeID = scheduleID, assessmentID, traineeID
	if f.err != nil {
		return nil, f.err
	}
	return &services.StartAttemptResponse{AttemptID: 43, AttemptNumber: 1}, nil
}

func (f *fakeAttempts) SaveAnswer(ctx context.Context, attemptID, questionID uint, req *services.SaveAnswerRequest, traineeID string) (*services.SaveAnswerResponse, error) {
	f.calls++
	f.attemptID, f.questionID, f.traineeID = attemptID, questionID, traineeID
	f.answer = req.Answer
	if f.err != nil {
		return nil, f.err
	}
	return &services.SaveAnswerResponse{AttemptID: attemptID, QuestionID: questionID}, nil
}

func (f *fakeAttempts) Submit(ctx context.Context, attemptID uint, traineeID string) (*services.SubmitResponse, error) {
	f.calls++
	f.attemptID, f.traineeID = attemptID, traineeID
	if f.err != nil {
		return nil, f.err
	}
	return &services.SubmitResponse{AttemptID: attemptID, Status: models.AttemptSubmitted}, nil
}

type fakeSchedules struct {
	services.ScheduleService
}

type fakeMaterials struct {
	services.MaterialService
	err     error
	content *services.MaterialContent

	calls    int
	uploadRq *services.UploadMaterialRequest
	uploaded *services.UploadedFile
	uploader string
}

func (f *fakeMaterials) Upload(ctx context.Context, req *services.UploadMaterialRequest, file *services.UploadedFile, uploaderID string) (*models.TrainingMaterial, error) {
	f.calls++
	f.uploadRq, f.uploaded, f.uploader = req, file, uploaderID
	if f.err != nil {
		return nil, f.err
	}
	return &models.TrainingMaterial{ID: 5, CourseID: req.CourseID, Title: req.Title, OriginalName: file.Name}, nil
}

func (f *fakeMaterials) Open(ctx context.Context, id uint, user *models.User) (*services.MaterialContent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

type fakeImportExport struct {
	services.ImportExportService
	export *services.ExportFile

	courseID uint
	imported []byte
}

func (f *fakeImportExport) ExportScheduleResults(ctx context.Context, scheduleID uint) (*services.ExportFile, error) {
	if f.export == nil {
		return nil, services.ErrScheduleNotFound
	}
	return f.export, nil
}

func (f *fakeImportExport) ImportQuestions(ctx context.Context, courseID uint, r io.Reader, creatorID string) (*services.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.courseID, f.imported = courseID, data
	return &services.ImportResult{Created: 2, QuestionIDs: []uint{1, 2}}, nil
}

type fakeManager struct {
	services.ServiceManager
	assessments *fakeAssessments
	questions   *fakeQuestions
	attempts    *fakeAttempts
	schedules   *fakeSchedules
	materials   *fakeMaterials
	importer    *fakeImportExport
	healthErr   error
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		assessments: &fakeAssessments{},
		questions:   &fakeQuestions{},
		attempts:    &fakeAttempts{},
		schedules:   &fakeSchedules{},
		materials:   &fakeMaterials{},
		importer:    &fakeImportExport{},
	}
}

func (m *fakeManager) Assessment() services.AssessmentService     { return m.assessments }
func (m *fakeManager) Question() services.QuestionService         { return m.questions }
func (m *fakeManager) Attempt() services.AttemptService           { return m.attempts }
func (m *fakeManager) Schedule() services.ScheduleService         { return m.schedules }
func (m *fakeManager) Material() services.MaterialService         { return m.materials }
func (m *fakeManager) ImportExport() services.ImportExportService { return m.importer }

func (m *fakeManager) HealthCheck(ctx context.Context) error { return m.healthErr }

// ===== HTTP HELPERS =====

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(fm *fakeManager, fileRate int) *gin.Engine {
	logger := utils.NewSlogLogger(nil)
	m := metrics.New()

	router := gin.New()
	SetupMiddleware(router, logger, MiddlewareConfig{Metrics: m})
	auth := NewAuthMiddleware(testTokens, logger)
	NewHandlerManager(fm, logger, auth, RouterConfig{
		FileAccessRatePerMinute: fileRate,
		Metrics:                 m,
	}).SetupRoutes(router)
	return router
}

func doRequest(router http.Handler, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doJSON(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	return doRequest(router, method, path, token, r, "application/json")
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
