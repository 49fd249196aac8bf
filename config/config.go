// ABOUTME: Configuration for the hailtrack client
// ABOUTME: YAML file under XDG config home, optional .env, and HAILTRACK_* environment overrides
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

const (
	AppName        = "hailtrack"
	ConfigFileName = "config.yaml"

	BackendBadger = "badger"
	BackendCharm  = "charm"
)

// Config holds client settings.
type Config struct {
	DataDir   string `yaml:"data_dir,omitempty"`
	RemoteURL string `yaml:"remote_url,omitempty"`
	APIToken  string `yaml:"api_token,omitempty"`

	// KVBackend selects local storage: badger (default) or charm.
	KVBackend string `yaml:"kv_backend"`
	CharmHost string `yaml:"charm_host,omitempty"`
	AutoSync  bool   `yaml:"auto_sync"`

	ProbeInterval time.Duration `yaml:"probe_interval"`
	RemoteTimeout time.Duration `yaml:"remote_timeout"`
	WorkerTimeout time.Duration `yaml:"worker_timeout"`

	// SyncRate is remote calls per second during a sync pass; 0 is unlimited.
	SyncRate  float64 `yaml:"sync_rate,omitempty"`
	SyncBurst int     `yaml:"sync_burst,omitempty"`

	// MaxSyncAttempts dead-letters a record after this many failures; 0 never does.
	MaxSyncAttempts int `yaml:"max_sync_attempts"`
}

// DefaultConfig returns a new config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:       filepath.Join(xdg.DataHome, AppName),
		KVBackend:     BackendBadger,
		AutoSync:      true,
		ProbeInterval: 15 * time.Second,
		RemoteTimeout: 30 * time.Second,
		WorkerTimeout: 5 * time.Second,
		SyncBurst:     1,
	}
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// LoadDotEnv loads .env from the working directory when present.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads the config file, falling back to defaults when it is missing or
// unreadable, then applies environment overrides.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom is Load for an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		// Invalid config, use defaults
		cfg = DefaultConfig()
		applyEnvOverrides(cfg)
		return cfg, nil //nolint:nilerr // Intentionally returning defaults on parse error
	}

	cfg.fillDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.KVBackend == "" {
		c.KVBackend = def.KVBackend
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = def.ProbeInterval
	}
	if c.RemoteTimeout <= 0 {
		c.RemoteTimeout = def.RemoteTimeout
	}
	if c.WorkerTimeout <= 0 {
		c.WorkerTimeout = def.WorkerTimeout
	}
	if c.SyncBurst <= 0 {
		c.SyncBurst = def.SyncBurst
	}
}

// applyEnvOverrides applies HAILTRACK_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("HAILTRACK_REMOTE_URL"); url != "" {
		cfg.RemoteURL = url
	}
	if token := os.Getenv("HAILTRACK_API_TOKEN"); token != "" {
		cfg.APIToken = token
	}
	if dir := os.Getenv("HAILTRACK_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if backend := os.Getenv("HAILTRACK_KV_BACKEND"); backend != "" {
		cfg.KVBackend = backend
	}
	if autoSync := os.Getenv("HAILTRACK_AUTO_SYNC"); autoSync != "" {
		cfg.AutoSync = autoSync == "true" || autoSync == "1"
	}
	if attempts := os.Getenv("HAILTRACK_MAX_SYNC_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil {
			cfg.MaxSyncAttempts = n
		}
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []string

	if c.KVBackend != BackendBadger && c.KVBackend != BackendCharm {
		errs = append(errs, fmt.Sprintf("kv_backend must be %q or %q", BackendBadger, BackendCharm))
	}
	if c.RemoteURL != "" && !strings.HasPrefix(c.RemoteURL, "http://") && !strings.HasPrefix(c.RemoteURL, "https://") {
		errs = append(errs, "remote_url must start with http:// or https://")
	}
	if c.MaxSyncAttempts < 0 {
		errs = append(errs, "max_sync_attempts must be >= 0")
	}
	if c.SyncRate < 0 {
		errs = append(errs, "sync_rate must be >= 0")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// Save persists the config to Path.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo writes the config with owner-only permissions since it may hold a token.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// QueueDir is where the badger store lives.
func (c *Config) QueueDir() string {
	return filepath.Join(c.DataDir, "store")
}

// LedgerPath is the SQLite sync ledger file.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// Limiter returns the pacing limiter for sync passes, or nil when unlimited.
func (c *Config) Limiter() *rate.Limiter {
	if c.SyncRate <= 0 {
		return nil
	}
	burst := c.SyncBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.SyncRate), burst)
}
