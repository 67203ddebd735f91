package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkglens/pkglens/pkg/errors"
	"github.com/pkglens/pkglens/pkg/registry"
)

// clearEnv blanks every PKGLENS_* override for the test's duration.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PKGLENS_REGISTRY_URL", "PKGLENS_CACHE_BACKEND", "PKGLENS_CACHE_DIR",
		"PKGLENS_REDIS_ADDR", "PKGLENS_REDIS_PASSWORD", "PKGLENS_SERVE_ADDR",
		"PKGLENS_COMMAND_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Default()

	if cfg.Registry.URL != registry.DefaultBaseURL {
		t.Errorf("registry url = %s", cfg.Registry.URL)
	}
	if cfg.Registry.TTL.Std() != time.Hour {
		t.Errorf("registry ttl = %s, want 1h", cfg.Registry.TTL.Std())
	}
	if cfg.Cache.Backend != BackendFile {
		t.Errorf("cache backend = %s, want file", cfg.Cache.Backend)
	}
	if cfg.Command.Timeout.Std() != 5*time.Minute {
		t.Errorf("command timeout = %s, want 5m", cfg.Command.Timeout.Std())
	}
	if cfg.Search.Size != registry.DefaultSearchSize {
		t.Errorf("search size = %d", cfg.Search.Size)
	}
	if cfg.Search.Debounce.Std() != 300*time.Millisecond {
		t.Errorf("search debounce = %s, want 300ms", cfg.Search.Debounce.Std())
	}
	if cfg.PM.Default != "" {
		t.Errorf("pm default = %q, want empty (detect)", cfg.PM.Default)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadMissingDefaultPathYieldsDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.Backend != BackendFile {
		t.Errorf("cache backend = %s, want file", cfg.Cache.Backend)
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Fatalf("expected FILE_NOT_FOUND, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[registry]
url = "https://registry.example.com"
ttl = "30m"

[cache]
backend = "memory"

[command]
timeout = "90s"

[search]
size = 50

[serve]
addr = ":9000"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Registry.URL != "https://registry.example.com" {
		t.Errorf("registry url = %s", cfg.Registry.URL)
	}
	if cfg.Registry.TTL.Std() != 30*time.Minute {
		t.Errorf("ttl = %s, want 30m", cfg.Registry.TTL.Std())
	}
	if cfg.Cache.Backend != BackendMemory {
		t.Errorf("backend = %s, want memory", cfg.Cache.Backend)
	}
	if cfg.Command.Timeout.Std() != 90*time.Second {
		t.Errorf("timeout = %s, want 90s", cfg.Command.Timeout.Std())
	}
	if cfg.Search.Size != 50 {
		t.Errorf("search size = %d, want 50", cfg.Search.Size)
	}
	if cfg.Serve.Addr != ":9000" {
		t.Errorf("serve addr = %s, want :9000", cfg.Serve.Addr)
	}
	// Untouched sections keep defaults.
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr = %s, want default", cfg.Redis.Addr)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("registry = [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Fatalf("expected INVALID_FORMAT, got %v", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[registry]
url = "https://registry.example.com"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PKGLENS_REGISTRY_URL", "https://mirror.example.com")
	t.Setenv("PKGLENS_CACHE_BACKEND", "none")
	t.Setenv("PKGLENS_COMMAND_TIMEOUT", "45s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Registry.URL != "https://mirror.example.com" {
		t.Errorf("registry url = %s, env should win over file", cfg.Registry.URL)
	}
	if cfg.Cache.Backend != BackendNone {
		t.Errorf("backend = %s, want none", cfg.Cache.Backend)
	}
	if cfg.Command.Timeout.Std() != 45*time.Second {
		t.Errorf("timeout = %s, want 45s", cfg.Command.Timeout.Std())
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"redis backend", func(c *Config) { c.Cache.Backend = BackendRedis }, true},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "disk" }, false},
		{"empty registry url", func(c *Config) { c.Registry.URL = "" }, false},
		{"zero timeout", func(c *Config) { c.Command.Timeout = 0 }, false},
		{"zero search size", func(c *Config) { c.Search.Size = 0 }, false},
		{"oversized search", func(c *Config) { c.Search.Size = registry.MaxSearchSize + 1 }, false},
		{"max search size", func(c *Config) { c.Search.Size = registry.MaxSearchSize }, true},
		{"pm override pnpm", func(c *Config) { c.PM.Default = "pnpm" }, true},
		{"pm override unknown", func(c *Config) { c.PM.Default = "bun" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMergeFileProjectOverlay(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	project := filepath.Join(dir, ProjectFilename)
	content := `
[pm]
default = "yarn"

[search]
size = 5
`
	if err := os.WriteFile(project, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := cfg.MergeFile(project); err != nil {
		t.Fatalf("MergeFile: %v", err)
	}
	if cfg.PM.Default != "yarn" {
		t.Errorf("pm default = %q, want yarn", cfg.PM.Default)
	}
	if cfg.Search.Size != 5 {
		t.Errorf("search size = %d, want 5", cfg.Search.Size)
	}
	// Settings the overlay does not mention keep their values.
	if cfg.Cache.Backend != BackendFile {
		t.Errorf("cache backend = %s, want file", cfg.Cache.Backend)
	}

	// Missing overlay is a no-op.
	if err := cfg.MergeFile(filepath.Join(dir, "missing.toml")); err != nil {
		t.Fatalf("missing overlay should not error: %v", err)
	}
}

func TestDefaultPathUsesXDG(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if got, want := DefaultPath(), filepath.Join(dir, "pkglens", "config.toml"); got != want {
		t.Errorf("DefaultPath = %s, want %s", got, want)
	}

	t.Setenv("XDG_CACHE_HOME", dir)
	if got, want := DefaultCacheDir(), filepath.Join(dir, "pkglens"); got != want {
		t.Errorf("DefaultCacheDir = %s, want %s", got, want)
	}
}
