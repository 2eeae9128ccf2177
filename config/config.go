package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Auth    AuthConfig    `yaml:"auth"`
	Backend BackendConfig `yaml:"backend"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// Upper bound on concurrent calculations for one batch request.
	BatchWorkers int `yaml:"batch_workers"`
}

// SessionConfig selects the session store.
type SessionConfig struct {
	Driver string `yaml:"driver"` // sqlite, memory
	Path   string `yaml:"path"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	TokenTTL  string `yaml:"token_ttl"`
}

// BackendConfig points at the meal plan backend.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

var validDrivers = []string{"sqlite", "memory"}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"*"},
			BatchWorkers:   8,
		},
		Session: SessionConfig{
			Driver: "sqlite",
			Path:   "nutrition_sessions.db",
		},
		Auth: AuthConfig{
			TokenTTL: "72h",
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: "10s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads .env, then the YAML file at path (if any), then environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}
	if path := os.Getenv("NUTRITION_DB_PATH"); path != "" {
		c.Session.Path = path
	}
	if driver := os.Getenv("NUTRITION_SESSION_DRIVER"); driver != "" {
		c.Session.Driver = driver
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if url := os.Getenv("PLAN_BACKEND_URL"); url != "" {
		c.Backend.BaseURL = url
	}
	if timeout := os.Getenv("PLAN_BACKEND_TIMEOUT"); timeout != "" {
		c.Backend.Timeout = timeout
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetBackendTimeout parses Backend.Timeout, falling back to 10s.
func (c *Config) GetBackendTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Backend.Timeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

// GetTokenTTL parses Auth.TokenTTL, falling back to 72h.
func (c *Config) GetTokenTTL() time.Duration {
	if d, err := time.ParseDuration(c.Auth.TokenTTL); err == nil && d > 0 {
		return d
	}
	return 72 * time.Hour
}

// Validate reports configuration the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port not configured")
	}
	if c.Server.BatchWorkers <= 0 {
		return fmt.Errorf("batch_workers must be positive, got %d", c.Server.BatchWorkers)
	}

	validDriver := false
	for _, d := range validDrivers {
		if c.Session.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid session driver: %s (valid: %v)", c.Session.Driver, validDrivers)
	}
	if c.Session.Driver == "sqlite" && c.Session.Path == "" {
		return fmt.Errorf("session path required for sqlite driver")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret not configured (set JWT_SECRET)")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("plan backend URL not configured (set PLAN_BACKEND_URL)")
	}
	return nil
}
