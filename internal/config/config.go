// Package config loads the fintrack server configuration from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fintrack/internal/session"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Fixtures string         `yaml:"fixtures"`
	SSO      SSOConfig      `yaml:"sso"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	WebDir string `yaml:"web_dir"`
}

// SessionConfig configures cookie sessions.
type SessionConfig struct {
	Secret     string        `yaml:"secret"`
	MaxAge     time.Duration `yaml:"max_age"`
	Production bool          `yaml:"production"`
}

// DatabaseConfig configures PostgreSQL. An empty URL selects the in-memory
// directory seeded from fixtures.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// SSOConfig configures OpenID Connect single sign-on.
type SSOConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Issuer       string `yaml:"issuer"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path (when non-empty), expands ${VAR} references, applies
// defaults and then environment overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		// #nosec G304 -- path is from CLI args, controlled by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return nil, err
		}
	}
	applyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

// Parse decodes YAML config data into cfg after expanding ${VAR} references.
func Parse(data []byte, cfg *Config) error {
	data = []byte(expandEnvVars(string(data)))
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Session.MaxAge <= 0 {
		cfg.Session.MaxAge = session.MaxAge
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("WEB_DIR"); v != "" {
		cfg.Server.WebDir = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("FINTRACK_SESSION_SECRET"); v != "" {
		cfg.Session.Secret = v
	}
	if strings.EqualFold(os.Getenv("APP_ENV"), "production") {
		cfg.Session.Production = true
	}
}

// Validate reports every configuration problem. A missing session secret
// matches session.ErrMissingSecret.
func (c *Config) Validate() error {
	var errs []error

	if c.Session.Secret == "" {
		errs = append(errs, session.ErrMissingSecret)
	}
	if c.SSO.Enabled {
		if c.SSO.Issuer == "" {
			errs = append(errs, errors.New("sso.issuer is required when SSO is enabled"))
		}
		if c.SSO.ClientID == "" {
			errs = append(errs, errors.New("sso.client_id is required when SSO is enabled"))
		}
	}
	if c.Database.URL == "" && c.Fixtures == "" {
		errs = append(errs, errors.New("either database.url or fixtures is required"))
	}
	return errors.Join(errs...)
}
