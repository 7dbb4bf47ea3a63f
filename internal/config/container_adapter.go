package config

import (
	"github.com/garyjia/zoompay/internal/container"
)

// ToContainerConfig converts the file-based Config to a container.Config.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Storage: container.StorageConfig{
			Driver:        c.Storage.Driver,
			BaseDir:       c.Storage.BaseDir,
			BoltPath:      c.Storage.BoltPath,
			PublicBaseURL: c.Storage.PublicBaseURL,
		},
		Media: container.MediaConfig{
			MaxDimension:     c.Media.MaxDimension,
			JPEGQuality:      c.Media.JPEGQuality,
			PreviewDimension: c.Media.PreviewDimension,
		},
		Auth: container.AuthConfig{
			JWTSecret:  c.Auth.JWTSecret,
			TokenTTL:   c.Auth.TokenTTL,
			Issuer:     c.Auth.Issuer,
			BcryptCost: c.Auth.BcryptCost,
		},
		OpenAI: container.OpenAIConfig{
			Enabled:         c.OpenAI.Enabled,
			APIKey:          c.OpenAI.APIKey,
			Model:           c.OpenAI.Model,
			BaseURL:         c.OpenAI.BaseURL,
			Timeout:         c.OpenAI.Timeout,
			PromptsPath:     c.OpenAI.PromptsPath,
			DefaultCurrency: c.OpenAI.DefaultCurrency,
		},
		Export: container.ExportConfig{
			Font: c.Export.Font,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			AllowedOrigins: c.CORS.AllowedOrigins,
			MaxUploadBytes: c.Storage.MaxUploadBytes,
			Mode:           c.Server.Mode,
		},
		Worker: container.WorkerConfig{
			SweepInterval:   c.Worker.SweepInterval,
			OrphanRetention: c.Worker.OrphanRetention,
			DeleteOrphans:   c.Worker.DeleteOrphans,
		},
	}
}
