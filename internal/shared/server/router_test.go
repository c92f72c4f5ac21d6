package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"signaware-client/internal/gateway"
	"signaware-client/internal/results"
	"signaware-client/internal/session"
	"signaware-client/internal/shared/config"
	"signaware-client/internal/shared/metrics"
	"signaware-client/internal/shared/storage/kv"
	"signaware-client/internal/web"
	"signaware-client/internal/workflow"
)

type signedOut struct{}

func (signedOut) Login(context.Context, gateway.Credentials) (session.Session, error) {
	return session.Session{}, nil
}
func (signedOut) Signup(context.Context, session.SignupData) (session.Session, error) {
	return session.Session{}, nil
}
func (signedOut) SignInWithGoogle(context.Context) (session.Session, error) {
	return session.Session{}, nil
}
func (signedOut) Logout(context.Context) {}
func (signedOut) GetCurrentUser(context.Context) (session.Profile, error) {
	return session.Profile{}, nil
}
func (signedOut) UpdateRole(context.Context, session.Role) (session.Profile, error) {
	return session.Profile{}, nil
}
func (signedOut) Current() (session.Session, bool) { return session.Session{}, false }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := results.NewStore(kv.NewMemory())
	wf := workflow.New(nil, store, nil)
	h := web.NewHandler(web.Deps{
		Sessions:    signedOut{},
		Submissions: wf,
		Results:     store,
	})
	t.Cleanup(h.Close)
	cfg := config.Config{Env: "test", CORSAllowOrigin: []string{"http://localhost:3000"}}
	return NewRouter(cfg, h, metrics.New(prometheus.NewRegistry()))
}

func TestRouterHealthIsPublic(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id header")
	}
}

func TestRouterGuardsSessionRoutes(t *testing.T) {
	r := newTestRouter(t)
	for _, path := range []string{"/api/v1/results", "/api/v1/analyses/state", "/api/v1/session/me"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.Code)
		}
	}
}

func TestRouterServesMetrics(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{
		"":             "127.0.0.1:8787",
		"9000":         "127.0.0.1:9000",
		":9000":        "127.0.0.1:9000",
		"0.0.0.0:9000": "0.0.0.0:9000",
	}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
