package hostconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Registry.URL == "" {
		t.Error("default registry URL is empty")
	}
	if cfg.FetchTimeout() != 30*time.Second {
		t.Errorf("FetchTimeout = %v, want 30s", cfg.FetchTimeout())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.toml")
	content := `
[paths]
plugins_dir = "/tmp/plugins"

[registry]
url = "https://example.test/catalog.json"
fetch_timeout_ms = 5000

[host]
version = "2.3.0"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.PluginsDir != "/tmp/plugins" {
		t.Errorf("PluginsDir = %q", cfg.Paths.PluginsDir)
	}
	if cfg.Registry.URL != "https://example.test/catalog.json" {
		t.Errorf("URL = %q", cfg.Registry.URL)
	}
	if cfg.FetchTimeout() != 5*time.Second {
		t.Errorf("FetchTimeout = %v, want 5s", cfg.FetchTimeout())
	}
	if cfg.Host.Version != "2.3.0" {
		t.Errorf("Version = %q", cfg.Host.Version)
	}
	// Unset sections keep defaults.
	if cfg.Paths.ApprovalsDB == "" {
		t.Error("ApprovalsDB default lost")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[paths\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed TOML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TIBOK_REGISTRY_URL", "https://mirror.test/catalog.json")
	t.Setenv("TIBOK_PLUGINS_DIR", "/custom/plugins")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Registry.URL != "https://mirror.test/catalog.json" {
		t.Errorf("URL = %q, env override ignored", cfg.Registry.URL)
	}
	if cfg.Paths.PluginsDir != "/custom/plugins" {
		t.Errorf("PluginsDir = %q, env override ignored", cfg.Paths.PluginsDir)
	}
}
