// Package web is the local companion HTTP API a browser front end talks to.
// It exposes the session, the submission workflow and the stored result.
package web

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"signaware-client/internal/gateway"
	"signaware-client/internal/results"
	"signaware-client/internal/session"
	"signaware-client/internal/shared/metrics"
	"signaware-client/internal/shared/server/middleware"
	"signaware-client/internal/workflow"
)

// Sessions is the session surface the handlers drive.
type Sessions interface {
	Login(ctx context.Context, creds gateway.Credentials) (session.Session, error)
	Signup(ctx context.Context, data session.SignupData) (session.Session, error)
	SignInWithGoogle(ctx context.Context) (session.Session, error)
	Logout(ctx context.Context)
	GetCurrentUser(ctx context.Context) (session.Profile, error)
	UpdateRole(ctx context.Context, role session.Role) (session.Profile, error)
	Current() (session.Session, bool)
}

// Submissions is the workflow surface the handlers drive.
type Submissions interface {
	Submit(ctx context.Context, req gateway.AnalysisRequest) (pending string, err error)
	AwaitResult(ctx context.Context, id string) (gateway.AnalysisResponse, error)
	Snapshot() workflow.Snapshot
	ClearError()
}

// Backend is the read-only part of the gateway exposed as-is.
type Backend interface {
	GetAnalysisHistory(ctx context.Context) ([]gateway.AnalysisResponse, error)
	GetDashboard(ctx context.Context) (gateway.DashboardResponse, error)
	HealthCheck(ctx context.Context) (gateway.HealthResponse, error)
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Sessions       Sessions
	Submissions    Submissions
	Backend        Backend
	Results        *results.Store
	Metrics        *metrics.Metrics
	MaxFileSize    int64
	RevealInterval time.Duration
	// Background scopes submissions that outlive the request that started them.
	Background context.Context
}

// Handler wires HTTP handlers to the client components.
type Handler struct {
	deps Deps

	chatMu       sync.Mutex
	chat         *results.Chat
	chatAnalysis *gateway.Analysis
}

// NewHandler constructs a Handler.
func NewHandler(deps Deps) *Handler {
	if deps.Background == nil {
		deps.Background = context.Background()
	}
	return &Handler{deps: deps}
}

// RegisterRoutes attaches public and signed-in routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, protected ...gin.HandlerFunc) {
	rg.GET("/health", h.health)
	rg.POST("/session/login", h.login)
	rg.POST("/session/signup", h.signup)
	rg.POST("/session/google", h.google)
	rg.POST("/session/logout", h.logout)

	authed := rg.Group("", protected...)
	authed.GET("/session/me", h.me)
	authed.PATCH("/session/role", h.updateRole)
	authed.POST("/analyses", h.submit)
	authed.GET("/analyses/state", h.state)
	authed.DELETE("/analyses/error", h.clearError)
	authed.GET("/analyses/history", h.history)
	authed.GET("/results", h.result)
	authed.POST("/results/chat", h.chatSend)
	authed.GET("/results/chat", h.chatTranscript)
	authed.GET("/dashboard", h.dashboard)
}

// Principal reports the signed-in user for the session guard.
func (h *Handler) Principal() middleware.Principal {
	return func() (string, bool) {
		s, ok := h.deps.Sessions.Current()
		if !ok {
			return "", false
		}
		return s.Profile.ID, true
	}
}

// Close stops any pending chat reveal.
func (h *Handler) Close() {
	h.chatMu.Lock()
	defer h.chatMu.Unlock()
	if h.chat != nil {
		h.chat.Close()
		h.chat = nil
		h.chatAnalysis = nil
	}
}
