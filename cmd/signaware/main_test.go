package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signaware-client/internal/bootstrap"
	"signaware-client/internal/shared/config"
)

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/auth/signin", func(c *gin.Context) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = c.ShouldBindJSON(&body)
		if body.Password != "secret" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"accessToken": "tok-1",
			"user":        gin.H{"id": "u1", "email": body.Email, "name": "Ada Lovelace", "role": "lawyer"},
		})
	})
	api.GET("/auth/me", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer tok-1" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": gin.H{"id": "u1", "email": "ada@example.com", "name": "Ada Lovelace", "role": "lawyer"}})
	})
	api.POST("/analysis/analyze-text", func(c *gin.Context) {
		var body struct {
			Content string `json:"content"`
		}
		_ = c.ShouldBindJSON(&body)
		if strings.Contains(body.Content, "broken") {
			c.JSON(http.StatusOK, gin.H{"id": "an-2", "status": "failed", "error": "Document could not be parsed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":     "an-1",
			"status": "completed",
			"analysis": gin.H{
				"risk_score":      4,
				"summary":         "A one-year lease.",
				"risk_assessment": "Moderate.",
				"key_concerns":    []string{"Deposit is non-refundable"},
				"red_flags":       []string{},
			},
		})
	})
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": "2026-01-01T00:00:00Z"})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	cfg config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := fakeBackend(t)
	return &harness{cfg: config.Config{
		Env:              "test",
		APIBaseURL:       srv.URL,
		APIVersion:       "v1",
		MaxFileSize:      10 << 20,
		AllowedFileTypes: []string{"pdf", "doc", "docx", "txt"},
		HTTPTimeout:      5 * time.Second,
		StorageBackend:   "file",
		StateDir:         t.TempDir(),
		Profile:          "default",
		RevealInterval:   time.Millisecond,
	}}
}

func (h *harness) run(stdin string, args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	c := &cli{
		cfg:    h.cfg,
		stdin:  strings.NewReader(stdin),
		stdout: &out,
		stderr: &errOut,
		build:  bootstrap.Build,
	}
	code = c.run(context.Background(), args)
	return code, out.String(), errOut.String()
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	code, _, stderr := h.run("", "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "unknown command")
}

func TestLoginPersistsAcrossCommands(t *testing.T) {
	h := newHarness(t)
	code, stdout, stderr := h.run("secret\n", "login", "--email", "ada@example.com", "--password-stdin")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Signed in as Ada Lovelace <ada@example.com> (legal-professional)")

	code, stdout, stderr = h.run("", "whoami")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "ada@example.com")

	code, stdout, _ = h.run("", "logout")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Signed out")

	code, _, stderr = h.run("", "whoami")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "No authentication token")
}

func TestLoginSurfacesBackendMessage(t *testing.T) {
	h := newHarness(t)
	code, _, stderr := h.run("", "login", "--email", "ada@example.com", "--password", "wrong")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Invalid email or password")
}

func TestAnalyzeTextThenResultsAndChat(t *testing.T) {
	h := newHarness(t)
	code, stdout, stderr := h.run("", "analyze", "--text", "The tenant shall pay rent.")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Risk score: 4/10")
	assert.Contains(t, stdout, "Deposit is non-refundable")

	code, stdout, _ = h.run("", "results")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "A one-year lease.")

	code, stdout, stderr = h.run("what is the risk?\nexit\n", "chat", "--no-reveal")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "The overall risk score for this document is 4 out of 10.")
}

func TestAnalyzeFailureExitsNonZero(t *testing.T) {
	h := newHarness(t)
	code, _, stderr := h.run("", "analyze", "--text", "broken contract")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Document could not be parsed")

	code, stdout, _ := h.run("", "results")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "No analysis results found")
}

func TestAnalyzeRequiresInput(t *testing.T) {
	h := newHarness(t)
	code, _, stderr := h.run("", "analyze", "--text", "   ")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "analyze requires")
}

func TestAnalyzeRejectsUnsupportedFile(t *testing.T) {
	h := newHarness(t)
	path := t.TempDir() + "/notes.exe"
	require.NoError(t, os.WriteFile(path, []byte("MZ"), 0o600))
	code, _, stderr := h.run("", "analyze", "--file", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "File type not supported")
}

func TestChatWithoutResult(t *testing.T) {
	h := newHarness(t)
	code, _, stderr := h.run("hi\n", "chat")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "No analysis results found")
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	code, stdout, stderr := h.run("", "health")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "ok")
}
