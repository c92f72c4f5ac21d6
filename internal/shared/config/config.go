package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIBaseURL   = "http://localhost:8000"
	defaultAPIVersion   = "v1"
	defaultMaxFileSize  = 10 << 20
	defaultAllowedTypes = "pdf,doc,docx,txt"
)

// Config holds application configuration.
type Config struct {
	Env      string
	LogLevel string

	APIBaseURL       string
	APIVersion       string
	MaxFileSize      int64
	AllowedFileTypes []string
	HTTPTimeout      time.Duration

	StorageBackend string
	StateDir       string
	Profile        string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackPort int

	Port            string
	CORSAllowOrigin []string
	RevealInterval  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")
	if path := strings.TrimSpace(os.Getenv("SIGNAWARE_CONFIG")); path != "" {
		if err := applyFile(path); err != nil {
			log.Printf("config file %s ignored: %v", path, err)
		}
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	backend := normalizeBackend(getEnv("STORAGE_BACKEND", "file"))
	dbURL := os.Getenv("DATABASE_URL")

	if backend == "postgres" && dbURL == "" {
		log.Printf("DATABASE_URL is required for the postgres storage backend")
	}

	return Config{
		Env:      env,
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		APIBaseURL:       strings.TrimSuffix(getEnv("API_BASE_URL", defaultAPIBaseURL), "/"),
		APIVersion:       getEnv("API_VERSION", defaultAPIVersion),
		MaxFileSize:      getEnvInt64("MAX_FILE_SIZE", defaultMaxFileSize),
		AllowedFileTypes: normalizeExtensions(splitAndTrim(getEnv("ALLOWED_FILE_TYPES", defaultAllowedTypes))),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", 60*time.Second),

		StorageBackend: backend,
		StateDir:       getEnv("STATE_DIR", defaultStateDir()),
		Profile:        getEnv("PROFILE", "default"),
		DatabaseURL:    dbURL,
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        int(getEnvInt64("REDIS_DB", 0)),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleCallbackPort: int(getEnvInt64("GOOGLE_CALLBACK_PORT", 0)),

		Port:            getEnv("PORT", "8787"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		RevealInterval:  getEnvDuration("REVEAL_INTERVAL", 30*time.Millisecond),
	}
}

// BaseURL returns the versioned API root, e.g. http://localhost:8000/api/v1.
func (c Config) BaseURL() string {
	return c.APIBaseURL + "/api/" + c.APIVersion
}

// getEnv also accepts the NEXT_PUBLIC_ spelling used by the web client's env files.
func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv("NEXT_PUBLIC_" + key)); val != "" {
		return val
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		out = append(out, strings.ToLower(strings.TrimPrefix(e, ".")))
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	case "redis":
		return "redis"
	case "memory":
		return "memory"
	default:
		return "file"
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".signaware"
	}
	return filepath.Join(home, ".signaware")
}
