// Package hostconfig loads the plugin host's configuration from a TOML
// file with environment variable overrides.
package hostconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the plugin host settings.
type Config struct {
	// Paths locates plugin directories and the approval store.
	Paths PathsConfig `toml:"paths"`

	// Registry configures the remote plugin registry.
	Registry RegistryConfig `toml:"registry"`

	// Host identifies the embedding application.
	Host HostConfig `toml:"host"`
}

// PathsConfig locates on-disk state.
type PathsConfig struct {
	// PluginsDir is the third-party plugins directory. Installs are
	// confined beneath it.
	PluginsDir string `toml:"plugins_dir"`

	// BundledDir holds the plugins shipped with the application.
	BundledDir string `toml:"bundled_dir"`

	// ApprovalsDB is the SQLite file holding approval records.
	ApprovalsDB string `toml:"approvals_db"`
}

// RegistryConfig configures catalog fetching.
type RegistryConfig struct {
	URL            string `toml:"url"`
	FetchTimeoutMS int    `toml:"fetch_timeout_ms"`
}

// HostConfig identifies the embedding application.
type HostConfig struct {
	Version  string `toml:"version"`
	LogLevel string `toml:"log_level"`
}

// envMapping maps environment variables onto config fields.
var envMapping = map[string]func(*Config, string){
	"TIBOK_PLUGINS_DIR":  func(c *Config, v string) { c.Paths.PluginsDir = v },
	"TIBOK_BUNDLED_DIR":  func(c *Config, v string) { c.Paths.BundledDir = v },
	"TIBOK_APPROVALS_DB": func(c *Config, v string) { c.Paths.ApprovalsDB = v },
	"TIBOK_REGISTRY_URL": func(c *Config, v string) { c.Registry.URL = v },
	"TIBOK_LOG_LEVEL":    func(c *Config, v string) { c.Host.LogLevel = v },
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Paths: PathsConfig{
			PluginsDir:  filepath.Join(dataDir, "plugins"),
			BundledDir:  filepath.Join(dataDir, "bundled"),
			ApprovalsDB: filepath.Join(dataDir, "approvals.db"),
		},
		Registry: RegistryConfig{
			URL:            "https://registry.tibok.app/catalog.json",
			FetchTimeoutMS: 30000,
		},
		Host: HostConfig{
			Version:  "0.0.0",
			LogLevel: "info",
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tibok")
	}
	return ".tibok"
}

// Load reads configuration from path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Missing file is not an error; defaults apply.
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides fields from TIBOK_* environment variables.
func (c *Config) applyEnv() {
	for key, apply := range envMapping {
		if v := os.Getenv(key); v != "" {
			apply(c, v)
		}
	}
}

// FetchTimeout returns the registry fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	if c.Registry.FetchTimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Registry.FetchTimeoutMS) * time.Millisecond
}
