package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"API_BASE_URL", "API_VERSION", "MAX_FILE_SIZE", "ALLOWED_FILE_TYPES", "STORAGE_BACKEND", "SIGNAWARE_CONFIG"} {
		t.Setenv(key, "")
		t.Setenv("NEXT_PUBLIC_"+key, "")
	}

	cfg := Load()
	if cfg.BaseURL() != "http://localhost:8000/api/v1" {
		t.Fatalf("unexpected base url %q", cfg.BaseURL())
	}
	if cfg.MaxFileSize != 10485760 {
		t.Fatalf("expected 10MB max file size, got %d", cfg.MaxFileSize)
	}
	want := []string{"pdf", "doc", "docx", "txt"}
	if len(cfg.AllowedFileTypes) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.AllowedFileTypes)
	}
	for i := range want {
		if cfg.AllowedFileTypes[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cfg.AllowedFileTypes)
		}
	}
	if cfg.StorageBackend != "file" {
		t.Fatalf("expected file backend, got %s", cfg.StorageBackend)
	}
	if cfg.RevealInterval != 30*time.Millisecond {
		t.Fatalf("expected 30ms reveal interval, got %s", cfg.RevealInterval)
	}
}

func TestLoadAcceptsNextPublicFallback(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SIGNAWARE_CONFIG", "")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("NEXT_PUBLIC_API_BASE_URL", "https://api.example.com/")
	t.Setenv("ALLOWED_FILE_TYPES", " .PDF, txt ,")

	cfg := Load()
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Fatalf("unexpected base url %q", cfg.APIBaseURL)
	}
	if len(cfg.AllowedFileTypes) != 2 || cfg.AllowedFileTypes[0] != "pdf" || cfg.AllowedFileTypes[1] != "txt" {
		t.Fatalf("unexpected allowed types %v", cfg.AllowedFileTypes)
	}
}

func TestLoadYAMLOverlayDoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "signaware.yaml")
	body := "api:\n  version: v2\n  maxFileSize: 2048\nstorage:\n  backend: redis\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SIGNAWARE_CONFIG", path)
	t.Setenv("API_VERSION", "")
	os.Unsetenv("API_VERSION")
	t.Setenv("MAX_FILE_SIZE", "4096")
	t.Setenv("STORAGE_BACKEND", "")
	os.Unsetenv("STORAGE_BACKEND")

	cfg := Load()
	if cfg.APIVersion != "v2" {
		t.Fatalf("expected version from file, got %s", cfg.APIVersion)
	}
	if cfg.MaxFileSize != 4096 {
		t.Fatalf("expected env to win, got %d", cfg.MaxFileSize)
	}
	if cfg.StorageBackend != "redis" {
		t.Fatalf("expected redis backend, got %s", cfg.StorageBackend)
	}
}

func TestNormalizeBackend(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"pg", "postgres"},
		{" Postgres ", "postgres"},
		{"redis", "redis"},
		{"memory", "memory"},
		{"", "file"},
		{"s3", "file"},
	}
	for _, tt := range tests {
		if got := normalizeBackend(tt.raw); got != tt.want {
			t.Fatalf("normalizeBackend(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}
