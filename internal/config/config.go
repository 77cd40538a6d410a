package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds the application configuration
type Config struct {
	DataDir        string `env:"DATA_DIR" envDefault:"data"`
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"file"`
	HTTPAddr       string `env:"HTTP_ADDR" envDefault:":8080"`
	// PublicBaseURL prefixes the personal RSVP links sent to guests.
	PublicBaseURL   string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	AdminUsername   string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword   string `env:"ADMIN_PASSWORD"`
	WhatsAppEnabled bool   `env:"WHATSAPP_ENABLED" envDefault:"false"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig loads configuration from environment variables, after merging
// a .env file from the working directory when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Parse()
}

// Parse reads the environment without touching .env
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.PublicBaseURL == "" {
		return errors.New("PUBLIC_BASE_URL must not be empty")
	}
	return nil
}

// StoragePath is where the file or sqlite backend keeps its data
func (c *Config) StoragePath() string {
	if c.StorageBackend == BackendSQLite {
		return filepath.Join(c.DataDir, "guests.db")
	}
	return filepath.Join(c.DataDir, "guests.json")
}
