package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"juggle/internal/atomicfile"
)

// Environment variables that override file values. A .env file in the
// working directory is loaded by main before Load is called.
const (
	EnvConfigPath = "JUGGLE_CONFIG"
	EnvDataFile   = "JUGGLE_DATA_FILE"
	EnvListen     = "JUGGLE_LISTEN"
	EnvLogLevel   = "JUGGLE_LOG_LEVEL"
)

// FeedConfig controls the periodic .ics publisher.
type FeedConfig struct {
	// Cron is a standard 5-field schedule ("*/15 * * * *"). Empty disables
	// the publisher.
	Cron string `yaml:"cron" json:"cron"`
	// Path is where the .ics file is written.
	Path string `yaml:"path" json:"path"`
}

// Enabled reports whether both a schedule and a target path are set.
func (f FeedConfig) Enabled() bool {
	return f.Cron != "" && f.Path != ""
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used for the agenda and CLI output.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DataFile is the event store. A .yaml/.yml extension selects YAML,
	// anything else JSON.
	DataFile string `yaml:"data_file" json:"data_file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// AgendaDays is the default look-ahead for /api/agenda.
	AgendaDays int `yaml:"agenda_days" json:"agenda_days"`

	Feed FeedConfig `yaml:"feed" json:"feed"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultDir is the per-user directory holding config and data.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "juggle")
	}
	return ".juggle"
}

// DefaultPath is the config file used when neither -config nor
// JUGGLE_CONFIG is given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:     "127.0.0.1:8080",
		Timezone:   "Local",
		DataFile:   filepath.Join(DefaultDir(), "events.json"),
		LogLevel:   "info",
		AgendaDays: 7,
		Feed:       FeedConfig{},
		BasicAuth:  nil,
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.DataFile == "" {
		c.DataFile = def.DataFile
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.AgendaDays <= 0 {
		c.AgendaDays = def.AgendaDays
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

// ApplyEnv overrides values from JUGGLE_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDataFile); v != "" {
		c.DataFile = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read and normalized.
//
// Environment overrides are applied in both cases but never written back.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return atomicfile.Write(path, data, 0o600)
}
