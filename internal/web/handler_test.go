package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signaware-client/internal/gateway"
	"signaware-client/internal/results"
	"signaware-client/internal/session"
	"signaware-client/internal/shared/storage/kv"
	"signaware-client/internal/workflow"
)

type fakeSessions struct {
	mu       sync.Mutex
	current  *session.Session
	loginErr error
	role     session.Role
	loggedIn gateway.Credentials
}

func (f *fakeSessions) Login(_ context.Context, creds gateway.Credentials) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedIn = creds
	if f.loginErr != nil {
		return session.Session{}, f.loginErr
	}
	s := session.Session{AccessToken: "tok", Profile: session.Profile{ID: "u1", Email: creds.Email}}
	f.current = &s
	return s, nil
}

func (f *fakeSessions) Signup(_ context.Context, data session.SignupData) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.role = data.Role
	s := session.Session{Profile: session.Profile{ID: "u2", Email: data.Email, Name: data.Name, Role: data.Role}}
	f.current = &s
	return s, nil
}

func (f *fakeSessions) SignInWithGoogle(context.Context) (session.Session, error) {
	return session.Session{}, &session.AuthError{Kind: session.KindProviderCancelled, Message: "Sign in was cancelled"}
}

func (f *fakeSessions) Logout(context.Context) {
	f.mu.Lock()
	f.current = nil
	f.mu.Unlock()
}

func (f *fakeSessions) GetCurrentUser(context.Context) (session.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return session.Profile{}, &session.AuthError{Kind: session.KindUnauthenticated, Message: "No authentication token"}
	}
	return f.current.Profile, nil
}

func (f *fakeSessions) UpdateRole(_ context.Context, role session.Role) (session.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.role = role
	return session.Profile{ID: "u1", Role: role}, nil
}

func (f *fakeSessions) Current() (session.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return session.Session{}, false
	}
	return *f.current, true
}

type fakeSubmissions struct {
	mu        sync.Mutex
	submitted chan gateway.AnalysisRequest
	awaited   chan string
	snap      workflow.Snapshot
	pending   string
	cleared   bool
}

func newFakeSubmissions() *fakeSubmissions {
	return &fakeSubmissions{
		submitted: make(chan gateway.AnalysisRequest, 1),
		awaited:   make(chan string, 1),
		snap:      workflow.Snapshot{State: workflow.StateIdle},
	}
}

func (f *fakeSubmissions) Submit(_ context.Context, req gateway.AnalysisRequest) (string, error) {
	if req.File != nil {
		data, _ := io.ReadAll(req.File.Content)
		req.File.Content = bytes.NewReader(data)
		req.Text = string(data)
	}
	f.submitted <- req
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending, nil
}

func (f *fakeSubmissions) AwaitResult(_ context.Context, id string) (gateway.AnalysisResponse, error) {
	f.awaited <- id
	return gateway.AnalysisResponse{ID: id, Status: gateway.StatusCompleted}, nil
}

func (f *fakeSubmissions) Snapshot() workflow.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSubmissions) ClearError() {
	f.mu.Lock()
	f.cleared = true
	f.mu.Unlock()
}

type fakeBackend struct{}

func (fakeBackend) GetAnalysisHistory(context.Context) ([]gateway.AnalysisResponse, error) {
	return nil, &gateway.TransportError{StatusCode: http.StatusServiceUnavailable, Message: "HTTP error! status: 503"}
}

func (fakeBackend) GetDashboard(context.Context) (gateway.DashboardResponse, error) {
	return gateway.DashboardResponse{Stats: gateway.DashboardStats{TotalAnalyses: 3}}, nil
}

func (fakeBackend) HealthCheck(context.Context) (gateway.HealthResponse, error) {
	return gateway.HealthResponse{Status: "ok"}, nil
}

type testEnv struct {
	router   *gin.Engine
	sessions *fakeSessions
	subs     *fakeSubmissions
	results  *results.Store
	handler  *Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := &testEnv{
		sessions: &fakeSessions{},
		subs:     newFakeSubmissions(),
		results:  results.NewStore(kv.NewMemory()),
	}
	env.handler = NewHandler(Deps{
		Sessions:    env.sessions,
		Submissions: env.subs,
		Backend:     fakeBackend{},
		Results:     env.results,
		MaxFileSize: 1 << 20,
	})
	t.Cleanup(env.handler.Close)
	env.router = gin.New()
	env.handler.RegisterRoutes(env.router.Group("/api/v1"))
	return env
}

func (e *testEnv) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) doJSON(method, path string, payload any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(payload)
	return e.do(method, path, bytes.NewReader(raw), "application/json")
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Error.Code
}

func sampleAnalysis() gateway.Analysis {
	return gateway.Analysis{
		RiskScore:      4,
		Summary:        "Short lease.",
		RiskAssessment: "Low to moderate.",
		KeyConcerns:    []string{"Deposit terms"},
		RedFlags:       []string{"No termination clause"},
	}
}

func TestLoginReturnsSession(t *testing.T) {
	env := newTestEnv(t)
	resp := env.doJSON(http.MethodPost, "/api/v1/session/login", loginRequest{Email: " a@b.co ", Password: "pw"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "a@b.co", env.sessions.loggedIn.Email)
	assert.Contains(t, resp.Body.String(), `"user"`)
	assert.NotContains(t, resp.Body.String(), "tok")
}

func TestLoginMapsAuthErrorKind(t *testing.T) {
	env := newTestEnv(t)
	env.sessions.loginErr = &session.AuthError{Kind: session.KindInvalidCredentials, Message: "Invalid email or password"}

	resp := env.doJSON(http.MethodPost, "/api/v1/session/login", loginRequest{Email: "a@b.co", Password: "bad"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, resp))
	assert.Contains(t, resp.Body.String(), "Invalid email or password")

	resp = env.doJSON(http.MethodPost, "/api/v1/session/login", loginRequest{Email: "", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSignupParsesRole(t *testing.T) {
	env := newTestEnv(t)
	resp := env.doJSON(http.MethodPost, "/api/v1/session/signup", signupRequest{Name: "Ada L", Email: "a@b.co", Password: "pw", Role: "lawyer"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, session.RoleLegalProfessional, env.sessions.role)

	resp = env.doJSON(http.MethodPost, "/api/v1/session/signup", signupRequest{Email: "a@b.co", Password: "pw", Role: "pirate"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGoogleCancelledIsBadRequest(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodPost, "/api/v1/session/google", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "provider_cancelled", errorCode(t, resp))
}

func TestLogoutAndMe(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(http.MethodPost, "/api/v1/session/login", loginRequest{Email: "a@b.co", Password: "pw"})

	resp := env.do(http.MethodGet, "/api/v1/session/me", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "a@b.co")

	resp = env.do(http.MethodPost, "/api/v1/session/logout", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = env.do(http.MethodGet, "/api/v1/session/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestUpdateRole(t *testing.T) {
	env := newTestEnv(t)
	resp := env.doJSON(http.MethodPatch, "/api/v1/session/role", roleRequest{Role: "individual"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, session.RoleIndividual, env.sessions.role)
}

func TestSubmitTextStartsWorkflow(t *testing.T) {
	env := newTestEnv(t)
	resp := env.doJSON(http.MethodPost, "/api/v1/analyses", textRequest{Text: "This lease..."})
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())

	select {
	case req := <-env.subs.submitted:
		assert.Equal(t, "This lease...", req.Text)
		assert.Nil(t, req.File)
	case <-time.After(time.Second):
		t.Fatal("submission not started")
	}
}

func TestSubmitEmptyIsRejected(t *testing.T) {
	env := newTestEnv(t)
	resp := env.doJSON(http.MethodPost, "/api/v1/analyses", textRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Either file or text must be provided")

	select {
	case <-env.subs.submitted:
		t.Fatal("empty input must not submit")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSubmitMultipartFile(t *testing.T) {
	env := newTestEnv(t)
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "lease.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("tenant shall pay"))
	require.NoError(t, w.Close())

	resp := env.do(http.MethodPost, "/api/v1/analyses", &body, w.FormDataContentType())
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())

	select {
	case req := <-env.subs.submitted:
		require.NotNil(t, req.File)
		assert.Equal(t, "lease.txt", req.File.Name)
		assert.Equal(t, int64(len("tenant shall pay")), req.File.Size)
		assert.Equal(t, "tenant shall pay", req.Text)
	case <-time.After(time.Second):
		t.Fatal("submission not started")
	}
}

func TestSubmitOversizeMultipart(t *testing.T) {
	env := newTestEnv(t)
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "big.txt")
	require.NoError(t, err)
	_, _ = part.Write(bytes.Repeat([]byte("x"), 2<<20+1))
	require.NoError(t, w.Close())

	resp := env.do(http.MethodPost, "/api/v1/analyses", &body, w.FormDataContentType())
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	assert.Contains(t, resp.Body.String(), "File size exceeds maximum limit of 1MB")
}

func TestRunFollowsProcessingResult(t *testing.T) {
	env := newTestEnv(t)
	env.subs.pending = "a-9"
	// A newer submission may already be tracked; run follows its own id.
	env.subs.snap = workflow.Snapshot{State: workflow.StateCompleted, AnalysisID: "b-1"}

	go env.handler.run(gateway.AnalysisRequest{Text: "x"})
	<-env.subs.submitted
	select {
	case id := <-env.subs.awaited:
		assert.Equal(t, "a-9", id)
	case <-time.After(time.Second):
		t.Fatal("processing result not followed")
	}
}

func TestStateAndClearError(t *testing.T) {
	env := newTestEnv(t)
	env.subs.snap = workflow.Snapshot{State: workflow.StateFailed, Error: "Document is empty"}

	resp := env.do(http.MethodGet, "/api/v1/analyses/state", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"state":"failed"`)
	assert.Contains(t, resp.Body.String(), "Document is empty")

	resp = env.do(http.MethodDelete, "/api/v1/analyses/error", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.True(t, env.subs.cleared)
}

func TestHistoryBackendFailure(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodGet, "/api/v1/analyses/history", nil, "")
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Equal(t, "backend_unavailable", errorCode(t, resp))
}

func TestDashboardAndHealth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodGet, "/api/v1/dashboard", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"totalAnalyses":3`)

	resp = env.do(http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"ok"`)
}

func TestResultViewStates(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodGet, "/api/v1/results", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"state":"empty"`)

	require.NoError(t, env.results.Save(context.Background(), sampleAnalysis()))
	resp = env.do(http.MethodGet, "/api/v1/results", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"state":"populated"`)
	assert.Contains(t, resp.Body.String(), "No termination clause")
}

func TestChatWithoutResult(t *testing.T) {
	env := newTestEnv(t)
	resp := env.doJSON(http.MethodPost, "/api/v1/results/chat", chatRequest{Message: "risk?"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "no_result", errorCode(t, resp))
}

func TestChatStreamsReply(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.results.Save(context.Background(), sampleAnalysis()))

	resp := env.doJSON(http.MethodPost, "/api/v1/results/chat", chatRequest{Message: "What is the risk?"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))

	body := resp.Body.String()
	assert.Contains(t, body, "event:chunk")
	assert.Contains(t, body, "event:message")
	assert.Contains(t, body, "4 out of 10")

	resp = env.do(http.MethodGet, "/api/v1/results/chat", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var transcript struct {
		Messages []results.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &transcript))
	require.Len(t, transcript.Messages, 3)
	assert.Equal(t, results.Greeting, transcript.Messages[0].Text)
	assert.True(t, strings.Contains(transcript.Messages[2].Text, "4"))
}

func TestChatResetsWhenResultChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.results.Save(ctx, sampleAnalysis()))
	env.doJSON(http.MethodPost, "/api/v1/results/chat", chatRequest{Message: "risk?"})

	next := sampleAnalysis()
	next.RiskScore = 9
	require.NoError(t, env.results.Save(ctx, next))

	resp := env.do(http.MethodGet, "/api/v1/results/chat", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var transcript struct {
		Messages []results.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &transcript))
	assert.Len(t, transcript.Messages, 1)
}

func TestChatRejectsBlankMessage(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.results.Save(context.Background(), sampleAnalysis()))
	resp := env.doJSON(http.MethodPost, "/api/v1/results/chat", chatRequest{Message: "  "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
