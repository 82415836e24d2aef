package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/api/dto"
	"github.com/cuongbtq/interpreter-booking/internal/api/handler"
	"github.com/cuongbtq/interpreter-booking/internal/booking/clock"
	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/engine"
	"github.com/cuongbtq/interpreter-booking/internal/booking/memstore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) PublishEvents(_ context.Context, events []domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type failingHealth struct{}

func (failingHealth) HealthCheck(context.Context) error {
	return errors.New("connection refused")
}

type testServer struct {
	router    *gin.Engine
	store     *memstore.Store
	publisher *recordingPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.NewStore()
	dir := memstore.NewDirectory()
	dir.AddLanguage(1, "Svensk")
	dir.AddCustomer(domain.Customer{UserID: 100, Name: "Kund", ConsumerType: domain.ConsumerPaid})
	dir.AddTranslator(domain.TranslatorProfile{
		UserID:    1,
		Name:      "Anna",
		Email:     "anna@example.com",
		Type:      domain.TranslatorProfessional,
		Languages: []int64{1},
		Active:    true,
	})

	eng := engine.New(&engine.Config{
		Store:     store,
		Directory: dir,
		Clock:     clock.NewFixed(now),
		Rules:     engine.Rules{Location: time.UTC},
		Logger:    logger,
	})

	publisher := &recordingPublisher{}
	return &testServer{
		router: SetupRouter(&handler.Dependencies{
			Logger:      logger,
			Engine:      eng,
			Publisher:   publisher,
			ServiceName: "booking-api-test",
		}),
		store:     store,
		publisher: publisher,
	}
}

func (s *testServer) do(t *testing.T, method, path string, actor *domain.Actor, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("X-User-ID", strconv.FormatInt(actor.ID, 10))
		req.Header.Set("X-User-Role", string(actor.Role))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) seedJob(t *testing.T, status domain.JobStatus, due time.Time) int64 {
	t.Helper()

	job := &domain.Job{
		UserID:            100,
		FromLanguageID:    1,
		Due:               due,
		Duration:          45,
		Status:            status,
		JobType:           domain.JobTypePaid,
		CustomerPhoneType: true,
		CreatedAt:         now.Add(-time.Hour),
		WillExpireAt:      due,
	}
	require.NoError(t, s.store.CreateJob(context.Background(), job))
	return job.ID
}

var (
	customer   = &domain.Actor{ID: 100, Role: domain.RoleCustomer}
	translator = &domain.Actor{ID: 1, Role: domain.RoleTranslator}
	admin      = &domain.Actor{ID: 900, Role: domain.RoleAdmin}
)

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) dto.ResultResponse {
	t.Helper()

	var res dto.ResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "booking-api-test")
}

func TestHealth_Unhealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(&handler.Dependencies{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Health: failingHealth{},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestActorHeaders(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		id     string
		role   string
		status int
	}{
		{"missing id", "", "customer", http.StatusUnauthorized},
		{"non numeric id", "abc", "customer", http.StatusUnauthorized},
		{"unknown role", "100", "guest", http.StatusUnauthorized},
		{"valid", "100", "customer", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
			req.Header.Set("X-User-ID", tt.id)
			req.Header.Set("X-User-Role", tt.role)
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCreateJob(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/jobs", customer, dto.CreateJobRequest{
		FromLanguageID:    1,
		DueDate:           "05/12/2024",
		DueTime:           "10:00",
		Duration:          45,
		CustomerPhoneType: true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decodeResult(t, w)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "regular", res.Type)
	require.NotNil(t, res.Job)
	assert.Equal(t, "pending", res.Job.Status)
	assert.Equal(t, []domain.EventType{domain.EventJobCreated}, s.publisher.types())
}

func TestCreateJob_ValidationFailure(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/jobs", customer, dto.CreateJobRequest{
		DueDate:  "05/12/2024",
		DueTime:  "10:00",
		Duration: 45,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	res := decodeResult(t, w)
	assert.Equal(t, "fail", res.Status)
	assert.Equal(t, "from_language_id", res.FieldName)
	assert.Equal(t, "Du måste fylla in alla fält", res.Message)
	assert.Empty(t, s.publisher.types())
}

func TestCreateJob_TranslatorForbidden(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/jobs", translator, dto.CreateJobRequest{FromLanguageID: 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAcceptAndCancelFlow(t *testing.T) {
	s := newTestServer(t)
	id := s.seedJob(t, domain.StatusPending, now.Add(72*time.Hour))
	base := "/api/v1/jobs/" + strconv.FormatInt(id, 10)

	w := s.do(t, http.MethodPost, base+"/accept", translator, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "assigned", decodeResult(t, w).Job.Status)

	w = s.do(t, http.MethodPost, base+"/accept", &domain.Actor{ID: 2, Role: domain.RoleTranslator}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "already_taken", decodeResult(t, w).Reason)

	w = s.do(t, http.MethodPost, base+"/cancel", translator, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "pending", decodeResult(t, w).Job.Status)

	assert.Equal(t, []domain.EventType{
		domain.EventJobAccepted,
		domain.EventTranslatorCancelled,
	}, s.publisher.types())
}

func TestJobNotFound(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		actor  *domain.Actor
	}{
		{http.MethodGet, "/api/v1/jobs/404", admin},
		{http.MethodPost, "/api/v1/jobs/404/accept", translator},
		{http.MethodPost, "/api/v1/jobs/404/reopen", admin},
		{http.MethodPost, "/api/v1/jobs/404/ignore-expired", admin},
	}

	for _, tt := range tests {
		w := s.do(t, tt.method, tt.path, tt.actor, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, tt.path)
	}
}

func TestInvalidJobID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/jobs/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminOnlyRoutes(t *testing.T) {
	s := newTestServer(t)
	id := strconv.FormatInt(s.seedJob(t, domain.StatusPending, now.Add(48*time.Hour)), 10)

	for _, path := range []string{"/resend-notifications", "/resend-sms", "/ignore-expiring", "/distance"} {
		w := s.do(t, http.MethodPost, "/api/v1/jobs/"+id+path, customer, map[string]any{})
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}

	w := s.do(t, http.MethodPost, "/api/v1/jobs/"+id+"/resend-notifications", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []domain.EventType{domain.EventNotifyRequested}, s.publisher.types())
}

func TestUpdateJob(t *testing.T) {
	s := newTestServer(t)
	id := strconv.FormatInt(s.seedJob(t, domain.StatusPending, now.Add(48*time.Hour)), 10)

	w := s.do(t, http.MethodPut, "/api/v1/jobs/"+id, admin, map[string]any{
		"status":         "timedout",
		"admin_comments": "Ingen tolk",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeResult(t, w)
	assert.Equal(t, "timedout", res.Job.Status)
	assert.Equal(t, []engine.Change{{Field: "status", Old: "pending", New: "timedout"}}, res.Changes)

	w = s.do(t, http.MethodPut, "/api/v1/jobs/"+id, admin, map[string]any{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListJobs_Pagination(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		s.seedJob(t, domain.StatusCompleted, now.Add(-time.Duration(i+1)*24*time.Hour))
	}
	s.seedJob(t, domain.StatusPending, now.Add(24*time.Hour))

	w := s.do(t, http.MethodGet, "/api/v1/jobs?history=true&page_size=2", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page dto.ListJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Jobs, 2)
	require.NotEmpty(t, page.NextCursor)

	w = s.do(t, http.MethodGet, "/api/v1/jobs?history=true&page_size=2&cursor="+page.NextCursor, customer, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var next dto.ListJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &next))
	require.Len(t, next.Jobs, 1)
	assert.Empty(t, next.NextCursor)
	assert.Equal(t, "completed", next.Jobs[0].Status)

	w = s.do(t, http.MethodGet, "/api/v1/jobs?cursor=***", customer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPotentialJobs(t *testing.T) {
	s := newTestServer(t)
	s.seedJob(t, domain.StatusPending, now.Add(48*time.Hour))

	w := s.do(t, http.MethodGet, "/api/v1/translators/1/potential-jobs", translator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)

	w = s.do(t, http.MethodGet, "/api/v1/translators/2/potential-jobs", translator, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
