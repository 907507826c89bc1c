package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/pkg/logging"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeJWT      = "jwt"
)

// Storage drivers.
const (
	StorageFS     = "fs"
	StorageSQLite = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	LLM     LLMConfig         `yaml:"llm"`
	Trash   TrashConfig       `yaml:"trash"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Trash.Validate(); err != nil {
		return fmt.Errorf("trash: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
	// Metrics exposes Prometheus metrics at /metrics.
	Metrics bool `yaml:"metrics"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = logging.FormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(logging.FormatJSON, logging.FormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// H2C serves cleartext HTTP/2 next to HTTP/1.1.
	H2C             bool          `yaml:"h2c"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

// StorageConfig selects where the state is persisted.
//
// With driver "fs", Path is a directory holding one JSON document per key.
// With driver "sqlite", Path is the database file.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	// Watch reloads documents edited outside the process (fs driver only).
	Watch bool `yaml:"watch"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = StorageFS
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(StorageFS, StorageSQLite)),
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": static Bearer token; Token must be non-empty.
//   - "jwt": HS256 Bearer tokens signed with JWTSecret.
type AuthConfig struct {
	Mode      string        `yaml:"mode"`
	Token     string        `yaml:"token"`
	JWTSecret string        `yaml:"jwt_secret"`
	JWTIssuer string        `yaml:"jwt_issuer"`
	JWTTTL    time.Duration `yaml:"jwt_ttl"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken, AuthModeJWT)),
	); err != nil {
		return err
	}
	switch c.Mode {
	case AuthModeToken:
		if c.Token == "" {
			return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
		}
	case AuthModeJWT:
		if len(c.JWTSecret) < 16 {
			return fmt.Errorf("auth: mode is %q but jwt_secret is shorter than 16 bytes", AuthModeJWT)
		}
		if c.JWTIssuer == "" {
			c.JWTIssuer = "lifeone"
		}
		if c.JWTTTL <= 0 {
			c.JWTTTL = 30 * 24 * time.Hour
		}
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode != AuthModeDisabled
}

// LLMConfig points at an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// TrashConfig controls how long deleted records are kept.
type TrashConfig struct {
	Retention     time.Duration `yaml:"retention"`
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

// Validate validates the trash configuration.
func (c *TrashConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Retention, validation.Required, validation.Min(time.Hour)),
		validation.Field(&c.PurgeInterval, validation.Required, validation.Min(time.Minute)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: logging.FormatJSON,
			HTTP: HTTPConfig{
				Port:            8080,
				ShutdownTimeout: 10 * time.Second,
			},
			Metrics: true,
		},
		Storage: StorageConfig{
			Driver: StorageFS,
			Path:   "./data",
			Watch:  true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Trash: TrashConfig{
			Retention:     models.TrashRetention,
			PurgeInterval: time.Hour,
		},
	}
}
