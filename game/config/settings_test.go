package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if s.Port != 8080 || s.Host != "localhost" {
		t.Errorf("Expected localhost:8080, got %s", s.Addr())
	}
	if s.SessionStore != StoreFile {
		t.Errorf("Expected file store, got %s", s.SessionStore)
	}
	if s.SessionTTL != 24*time.Hour {
		t.Errorf("Expected 24h TTL, got %s", s.SessionTTL)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestLoadSettingsFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_STORE", "sqlite")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("NGROK_AUTH_TOKEN", "legacy-token")

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if s.Port != 9090 || s.SessionStore != StoreSQLite || s.SessionTTL != 30*time.Minute {
		t.Errorf("Unexpected settings %+v", s)
	}
	if s.NgrokAuthToken != "legacy-token" {
		t.Errorf("Expected NGROK_AUTH_TOKEN fallback, got %q", s.NgrokAuthToken)
	}
}

func TestLoadSettingsError(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	_, err := LoadSettings()
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Errorf("Expected parse env prefix, got %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *Settings)
	}{
		{"bad port", func(s *Settings) { s.Port = 70000 }},
		{"unknown store", func(s *Settings) { s.SessionStore = "redis" }},
		{"zero ttl", func(s *Settings) { s.SessionTTL = 0 }},
		{"zero sync interval", func(s *Settings) { s.SyncInterval = 0 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, err := LoadSettings()
			if err != nil {
				t.Fatalf("LoadSettings failed: %v", err)
			}
			test.modify(s)
			if err := s.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	loaded, err := LoadDotEnv(filepath.Join(dir, "missing.env"))
	if err != nil || loaded {
		t.Errorf("Missing file should be ignored, got loaded=%v err=%v", loaded, err)
	}

	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("HUARONG_DOTENV_TEST=yes\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("HUARONG_DOTENV_TEST") })

	loaded, err = LoadDotEnv(path)
	if err != nil || !loaded {
		t.Fatalf("Expected env file to load, got loaded=%v err=%v", loaded, err)
	}
	if os.Getenv("HUARONG_DOTENV_TEST") != "yes" {
		t.Error("Expected variable from env file")
	}
}
