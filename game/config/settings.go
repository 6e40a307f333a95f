package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Session store kinds
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Settings holds the server settings read from the environment. Command-line
// flags write into the same struct after it is parsed.
type Settings struct {
	Host      string `env:"HOST" envDefault:"localhost"`
	Port      int    `env:"PORT" envDefault:"8080"`
	ConfigDir string `env:"CONFIG_DIR" envDefault:"configs"`
	Debug     bool   `env:"DEBUG"`

	SessionStore string        `env:"SESSION_STORE" envDefault:"file"`
	SessionsDir  string        `env:"SESSIONS_DIR" envDefault:"sessions"`
	SQLitePath   string        `env:"SQLITE_PATH" envDefault:"sessions.db"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SyncInterval time.Duration `env:"SESSION_SYNC_INTERVAL" envDefault:"5s"`

	// ExternalAPI is probed by the stdio MCP mode before it starts its own server.
	ExternalAPI string `env:"EXTERNAL_API_URL" envDefault:"http://localhost:8080"`

	NgrokEnabled   bool   `env:"NGROK_ENABLED"`
	NgrokAuthToken string `env:"NGROK_AUTHTOKEN"`
	NgrokDomain    string `env:"NGROK_DOMAIN"`
}

// LoadDotEnv loads variables from the given .env files (".env" when none are
// named). A missing file is not an error; loaded reports whether one was read.
func LoadDotEnv(files ...string) (loaded bool, err error) {
	if err := godotenv.Load(files...); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("load .env: %w", err)
	}
	return true, nil
}

// ParseEnv fills target from environment variables
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadSettings reads Settings from the environment
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := ParseEnv(&s); err != nil {
		return nil, err
	}
	if s.NgrokAuthToken == "" {
		s.NgrokAuthToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	return &s, nil
}

// Validate checks the settings after flags have been applied
func (s *Settings) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", s.Port)
	}
	switch s.SessionStore {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("session store must be %q or %q, got %q", StoreFile, StoreSQLite, s.SessionStore)
	}
	if s.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", s.SessionTTL)
	}
	if s.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", s.SyncInterval)
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
