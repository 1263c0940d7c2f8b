package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lemedia.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 8080

[mediaserver]
url = "http://localhost:8096"
api_key = "abc123"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.MediaServer == nil || cfg.MediaServer.URL != "http://localhost:8096" {
		t.Errorf("mediaserver not decoded: %+v", cfg.MediaServer)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[mediaserver]
url = "http://localhost:8096"
api_key = "abc123"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 5055 {
		t.Errorf("expected default port 5055, got %d", cfg.Server.Port)
	}
	if cfg.Database.Path != "./data/lemedia.db" {
		t.Errorf("expected default db path, got %s", cfg.Database.Path)
	}
	if cfg.MediaServer.RateLimit != 10 || cfg.MediaServer.RateBurst != 20 {
		t.Errorf("expected default rate limits, got %+v", cfg.MediaServer)
	}
	if cfg.Quota.MovieDays != 7 || cfg.Quota.TVDays != 7 {
		t.Errorf("expected default quota windows, got %+v", cfg.Quota)
	}
	if cfg.Calendar.SourceTimeoutSeconds != 15 {
		t.Errorf("expected default source timeout, got %d", cfg.Calendar.SourceTimeoutSeconds)
	}
	if cfg.Sweep.IntervalMinutes != 30 {
		t.Errorf("expected default sweep interval, got %d", cfg.Sweep.IntervalMinutes)
	}
}

func TestLoad_MissingEnvVar(t *testing.T) {
	os.Unsetenv("LEMEDIA_TEST_MISSING_KEY")
	path := writeConfig(t, `
[mediaserver]
url = "http://localhost:8096"
api_key = "${LEMEDIA_TEST_MISSING_KEY}"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for missing env var")
	}
	if !strings.Contains(err.Error(), "LEMEDIA_TEST_MISSING_KEY") {
		t.Errorf("expected LEMEDIA_TEST_MISSING_KEY in error, got %v", err)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 99999
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
	if !strings.Contains(err.Error(), "server.port") {
		t.Errorf("expected server.port in error, got %v", err)
	}
}

func TestLoad_EnvVarDefault(t *testing.T) {
	os.Unsetenv("LEMEDIA_TEST_OPTIONAL_VAR")
	path := writeConfig(t, `
[server]
host = "${LEMEDIA_TEST_OPTIONAL_VAR:-localhost}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("expected host localhost, got %s", cfg.Server.Host)
	}
}

func TestLoadWithoutValidation(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 99999
`)

	cfg, err := LoadWithoutValidation(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 99999 {
		t.Errorf("expected port 99999, got %d", cfg.Server.Port)
	}
}

func TestConfigError_Message(t *testing.T) {
	err := &ConfigError{
		Path:    "lemedia.toml",
		Missing: []string{"API_KEY"},
		Errors:  []string{"server.port: must be between 1 and 65535, got 99999"},
	}
	msg := err.Error()
	if !strings.Contains(msg, "API_KEY") || !strings.Contains(msg, "server.port") {
		t.Errorf("error message missing detail: %q", msg)
	}
}
