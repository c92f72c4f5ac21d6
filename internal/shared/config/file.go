package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the optional YAML overlay pointed to by SIGNAWARE_CONFIG.
type fileConfig struct {
	API struct {
		BaseURL          string   `yaml:"baseURL"`
		Version          string   `yaml:"version"`
		MaxFileSize      int64    `yaml:"maxFileSize"`
		AllowedFileTypes []string `yaml:"allowedFileTypes"`
		Timeout          string   `yaml:"timeout"`
	} `yaml:"api"`

	Storage struct {
		Backend     string `yaml:"backend"`
		StateDir    string `yaml:"stateDir"`
		Profile     string `yaml:"profile"`
		DatabaseURL string `yaml:"databaseURL"`
		RedisAddr   string `yaml:"redisAddr"`
	} `yaml:"storage"`

	Google struct {
		ClientID     string `yaml:"clientID"`
		ClientSecret string `yaml:"clientSecret"`
		CallbackPort int    `yaml:"callbackPort"`
	} `yaml:"google"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	LogLevel string `yaml:"logLevel"`
}

// applyFile reads the YAML file and exports its values as environment
// variables that are not already set, so env always overrides the file.
func applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	setDefault("API_BASE_URL", fc.API.BaseURL)
	setDefault("API_VERSION", fc.API.Version)
	if fc.API.MaxFileSize > 0 {
		setDefault("MAX_FILE_SIZE", strconv.FormatInt(fc.API.MaxFileSize, 10))
	}
	if len(fc.API.AllowedFileTypes) > 0 {
		joined := ""
		for i, ext := range fc.API.AllowedFileTypes {
			if i > 0 {
				joined += ","
			}
			joined += ext
		}
		setDefault("ALLOWED_FILE_TYPES", joined)
	}
	setDefault("HTTP_TIMEOUT", fc.API.Timeout)
	setDefault("STORAGE_BACKEND", fc.Storage.Backend)
	setDefault("STATE_DIR", fc.Storage.StateDir)
	setDefault("PROFILE", fc.Storage.Profile)
	setDefault("DATABASE_URL", fc.Storage.DatabaseURL)
	setDefault("REDIS_ADDR", fc.Storage.RedisAddr)
	setDefault("GOOGLE_CLIENT_ID", fc.Google.ClientID)
	setDefault("GOOGLE_CLIENT_SECRET", fc.Google.ClientSecret)
	if fc.Google.CallbackPort > 0 {
		setDefault("GOOGLE_CALLBACK_PORT", strconv.Itoa(fc.Google.CallbackPort))
	}
	setDefault("PORT", fc.Server.Port)
	setDefault("LOG_LEVEL", fc.LogLevel)
	return nil
}

func setDefault(key, val string) {
	if val == "" {
		return
	}
	if _, ok := os.LookupEnv(key); ok {
		return
	}
	_ = os.Setenv(key, val)
}
