// Package config loads aura client configuration from YAML with environment
// overrides. The file is optional; every field has a usable default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all aura client configuration.
type Config struct {
	// Backend connectivity
	Backend BackendConfig `yaml:"backend"`

	// Transcript persistence
	Transcript TranscriptConfig `yaml:"transcript"`

	// UI settings
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig configures the wellness backend endpoint.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// TranscriptConfig selects and configures the transcript store adapter.
type TranscriptConfig struct {
	// Adapter is one of: memory, redis, sqlite.
	Adapter string `yaml:"adapter"`

	// Redis settings (adapter: redis)
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`

	// SQLite settings (adapter: sqlite)
	SQLitePath string `yaml:"sqlite_path"`
}

// UIConfig holds presentation preferences.
type UIConfig struct {
	// Theme is "light" or "dark".
	Theme string `yaml:"theme"`
}

// LoggingConfig configures the file logger used by the interactive TUI.
type LoggingConfig struct {
	File    string `yaml:"file"`
	Verbose bool   `yaml:"verbose"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Backend: BackendConfig{
			URL:     "http://127.0.0.1:5000",
			Timeout: 30 * time.Second,
		},
		Transcript: TranscriptConfig{
			Adapter:  "memory",
			RedisTTL: 24 * time.Hour,
		},
		UI: UIConfig{
			Theme: "light",
		},
		Logging: LoggingConfig{
			File: filepath.Join(home, ".aura", "aura.log"),
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "aura.yaml"
	}
	return filepath.Join(home, ".aura", "config.yaml")
}

// Load reads the config file at path, falling back to defaults when the file
// is absent, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file is fine; defaults plus env.
	case err != nil:
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AURA_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("AURA_REDIS_ADDR"); v != "" {
		c.Transcript.Adapter = "redis"
		c.Transcript.RedisAddr = v
	}
	if v := os.Getenv("AURA_THEME"); v != "" {
		c.UI.Theme = v
	}
	if os.Getenv("AURA_VERBOSE") == "1" {
		c.Logging.Verbose = true
	}
}

func (c *Config) validate() error {
	switch c.Transcript.Adapter {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown transcript adapter %q (want memory, redis, or sqlite)", c.Transcript.Adapter)
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("backend url must not be empty")
	}
	return nil
}

// Save writes the config back to path, creating parent directories.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
