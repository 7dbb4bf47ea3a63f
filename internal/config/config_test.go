package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("ZOOMPAY_JWT_SECRET", "s3cret")

	path := writeConfig(t, `
server:
  port: 9090
storage:
  driver: bolt
worker:
  delete_orphans: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, StorageBolt, cfg.Storage.Driver)
	assert.Equal(t, "data/blobs.bolt", cfg.Storage.BoltPath)
	assert.Equal(t, "/api/v1/blobs", cfg.Storage.PublicBaseURL)
	assert.Equal(t, int64(20<<20), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Worker.DeleteOrphans)
	assert.Equal(t, 7*24*time.Hour, cfg.Worker.OrphanRetention)
	assert.False(t, cfg.OpenAI.Enabled)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("ZOOMPAY_JWT_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, StorageLocal, cfg.Storage.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_ConfigPathEnvOverride(t *testing.T) {
	t.Setenv("ZOOMPAY_JWT_SECRET", "s3cret")
	t.Setenv(ConfigPathEnv, writeConfig(t, "server:\n  port: 7070\n"))

	cfg, err := Load("does-not-matter.yaml")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_SecretsFromEnv(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("ZOOMPAY_JWT_SECRET", "from-env")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := writeConfig(t, "openai:\n  enabled: true\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.True(t, cfg.OpenAI.Enabled)
}

func TestLoad_MissingSecretFails(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("ZOOMPAY_JWT_SECRET", "")

	_, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "zoompay.db"},
		Storage:  StorageConfig{Driver: StorageLocal, BaseDir: "blobs", MaxUploadBytes: 1024},
		Auth:     AuthConfig{JWTSecret: "secret"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }, "jwt_secret"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "s3" }, "storage.driver"},
		{"bolt without path", func(c *Config) { c.Storage.Driver = StorageBolt }, "bolt_path"},
		{"openai without key", func(c *Config) { c.OpenAI.Enabled = true }, "openai.api_key"},
		{"openai with key", func(c *Config) { c.OpenAI.Enabled = true; c.OpenAI.APIKey = "k" }, ""},
		{"zero upload limit", func(c *Config) { c.Storage.MaxUploadBytes = 0 }, "max_upload_bytes"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToContainerConfig(t *testing.T) {
	cfg := validConfig()
	cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}
	cfg.Worker.DeleteOrphans = true

	cc := cfg.ToContainerConfig()
	assert.Equal(t, "blobs", cc.Storage.BaseDir)
	assert.Equal(t, int64(1024), cc.Server.MaxUploadBytes)
	assert.Equal(t, []string{"https://app.example.com"}, cc.Server.AllowedOrigins)
	assert.True(t, cc.Worker.DeleteOrphans)
	assert.NoError(t, cc.Validate())
}
