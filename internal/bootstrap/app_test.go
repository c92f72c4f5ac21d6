package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signaware-client/internal/gateway"
	"signaware-client/internal/shared/config"
	"signaware-client/internal/shared/storage/kv"
	"signaware-client/internal/workflow"
)

func testConfig(t *testing.T, backendURL string) config.Config {
	t.Helper()
	return config.Config{
		Env:              "test",
		APIBaseURL:       backendURL,
		APIVersion:       "v1",
		MaxFileSize:      10 << 20,
		AllowedFileTypes: []string{"pdf", "doc", "docx", "txt"},
		HTTPTimeout:      5 * time.Second,
		StorageBackend:   "file",
		StateDir:         t.TempDir(),
		Profile:          "default",
	}
}

func TestBuildFileBackendSignedOut(t *testing.T) {
	app, err := Build(context.Background(), testConfig(t, "http://127.0.0.1:1"))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	assert.False(t, app.Session.IsAuthenticated())
	assert.Equal(t, workflow.StateIdle, app.Workflow.Snapshot().State)
}

func TestBuildRestoresSessionAndSubmits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v1/auth/me", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer tok-1" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": gin.H{"id": "u1", "email": "a@b.co", "role": "client"}})
	})
	r.POST("/api/v1/analysis/analyze-text", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":     "an-1",
			"status": "completed",
			"analysis": gin.H{
				"risk_score": 6, "summary": "s", "risk_assessment": "r",
				"key_concerns": []string{}, "red_flags": []string{},
			},
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	store := kv.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, kv.KeyAuthToken, "tok-1"))

	var shown string
	app, err := Build(ctx, testConfig(t, srv.URL),
		WithStore(store),
		WithNavigator(workflow.NavigatorFunc(func(id string, _ workflow.Mode) { shown = id })),
	)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	require.True(t, app.Session.IsAuthenticated())
	s, ok := app.Session.Current()
	require.True(t, ok)
	assert.Equal(t, "u1", s.Profile.ID)

	pending, err := app.Workflow.Submit(ctx, gateway.AnalysisRequest{Text: "contract"})
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, "an-1", shown)
	stored, err := app.Results.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(6), stored.RiskScore)
}

func TestBuildRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.StorageBackend = "redis"
	cfg.RedisAddr = mr.Addr()

	app, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, app.KV.Set(context.Background(), kv.KeyAuthToken, "x"))
	require.NoError(t, app.Close())
}

func TestBuildPostgresRequiresURL(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.StorageBackend = "postgres"
	_, err := Build(context.Background(), cfg)
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestServerRoutesThroughApp(t *testing.T) {
	app, err := Build(context.Background(), testConfig(t, "http://127.0.0.1:1"))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	router, h := app.Server(context.Background())
	t.Cleanup(h.Close)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/results", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
