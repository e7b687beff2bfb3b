package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ExternalSource describes a single external ICS calendar merged into the
// subscriber's feed.
type ExternalSource struct {
	// URL is the ICS endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for caching and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label; it becomes the event source tag in
	// merged output when set.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web endpoints.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is a cron-style schedule (e.g. "*/30 * * * *") used to
	// prewarm the external ICS fetch cache.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// FetchTimeoutSeconds bounds each external ICS fetch.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`

	// CacheDir is the base directory for the on-disk ICS fetch cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// FeedTTLSeconds controls how long generated ICS responses are served
	// from the in-memory web cache before being rebuilt.
	FeedTTLSeconds int `yaml:"feed_ttl_seconds" json:"feed_ttl_seconds"`

	// External is the list of external ICS sources merged into /ics/merged.
	External []ExternalSource `yaml:"external" json:"external"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:              "127.0.0.1:8080",
		RefreshCron:         "*/30 * * * *",
		FetchTimeoutSeconds: 15,
		CacheDir:            "./var/ics-cache",
		FeedTTLSeconds:      600,
		External:            []ExternalSource{},
		BasicAuth:           nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/30 * * * *"
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = 15
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/ics-cache"
	}
	if c.FeedTTLSeconds <= 0 {
		c.FeedTTLSeconds = 600
	}
	if c.External == nil {
		c.External = []ExternalSource{}
	}
}

// FetchTimeout returns FetchTimeoutSeconds as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// FeedTTL returns FeedTTLSeconds as a duration.
func (c *Config) FeedTTL() time.Duration {
	return time.Duration(c.FeedTTLSeconds) * time.Second
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, write a default config with 0600 perms
//     (creating the parent directory) and return the defaults.
//   - If the file exists, read YAML, unmarshal and normalize.
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
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename, 0600).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bilical-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
