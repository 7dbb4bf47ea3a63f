// Package container provides dependency injection and lifecycle management
// for the ZoomPay voucher service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	Media    MediaConfig
	Auth     AuthConfig
	OpenAI   OpenAIConfig
	Export   ExportConfig
	Server   ServerConfig
	Worker   WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// SkipMigrations leaves the schema untouched at startup
	SkipMigrations bool
}

// StorageConfig holds blob store settings.
type StorageConfig struct {
	// Driver is "local" or "bolt"
	Driver string

	// BaseDir is the root directory of the local driver
	BaseDir string

	// BoltPath is the database file of the bolt driver
	BoltPath string

	// PublicBaseURL prefixes every stored blob path
	PublicBaseURL string
}

// MediaConfig holds image processing settings.
type MediaConfig struct {
	MaxDimension     int
	JPEGQuality      int
	PreviewDimension int
}

// AuthConfig holds identity settings.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	Issuer     string
	BcryptCost int
}

// OpenAIConfig holds receipt extraction settings. Extraction is off unless Enabled.
type OpenAIConfig struct {
	Enabled         bool
	APIKey          string
	Model           string
	BaseURL         string
	Timeout         time.Duration
	PromptsPath     string
	DefaultCurrency string
}

// ExportConfig holds workbook settings.
type ExportConfig struct {
	Font string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	MaxUploadBytes int64
	Mode           string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	SweepInterval   time.Duration
	OrphanRetention time.Duration
	DeleteOrphans   bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/zoompay.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Driver:        "local",
			BaseDir:       "data/blobs",
			BoltPath:      "data/blobs.bolt",
			PublicBaseURL: "/api/v1/blobs",
		},
		Media: MediaConfig{
			MaxDimension:     2048,
			JPEGQuality:      85,
			PreviewDimension: 1024,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
			Issuer:   "zoompay",
		},
		OpenAI: OpenAIConfig{
			Model:           "gpt-4o-mini",
			Timeout:         60 * time.Second,
			DefaultCurrency: "PKR",
		},
		Export: ExportConfig{
			Font: "Calibri",
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxUploadBytes: 20 << 20,
			Mode:           "release",
		},
		Worker: WorkerConfig{
			SweepInterval:   time.Hour,
			OrphanRetention: 7 * 24 * time.Hour,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir is required")
		}
	case "bolt":
		if c.Storage.BoltPath == "" {
			return fmt.Errorf("storage.bolt_path is required")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required when extraction is enabled")
	}

	return nil
}
