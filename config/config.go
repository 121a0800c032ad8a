package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/sirupsen/logrus"

	"github.com/warp/benefit-engine/extraction"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Extraction extraction.Config `yaml:"extraction"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return validation.ValidateStruct(&c.Extraction,
		validation.Field(&c.Extraction.TimeoutSecs, validation.Min(0)),
		validation.Field(&c.Extraction.Endpoint, is.URL),
	)
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel string     `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// MaxUploadMB bounds xlsx and image uploads.
	MaxUploadMB int `yaml:"max_upload_mb"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *HTTPConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.AllowedOrigins, validation.Required),
		validation.Field(&c.MaxUploadMB, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

// SQLiteConfig holds the G-table database location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
	// RefreshMinutes is how often the G table is reloaded from the database.
	RefreshMinutes int `yaml:"refresh_minutes"`
}

// RefreshInterval is RefreshMinutes as a duration.
func (c *SQLiteConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshMinutes) * time.Minute
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.RefreshMinutes, validation.Required, validation.Min(1)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: "info",
			HTTP: HTTPConfig{
				Port:           8080,
				AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
				MaxUploadMB:    10,
			},
		},
		SQLite: SQLiteConfig{
			Path:           "./benefit-engine.db",
			RefreshMinutes: 15,
		},
	}
}
