// Package config loads pkglens configuration from a TOML file with
// environment variable overrides. Every setting has a working default,
// so a missing config file is not an error.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pkglens/pkglens/pkg/errors"
	"github.com/pkglens/pkglens/pkg/pm"
	"github.com/pkglens/pkglens/pkg/registry"
)

// appName is the application name used for directories and env prefixes.
const appName = "pkglens"

// ProjectFilename is the per-project config overlay, looked up in the
// directory a command targets.
const ProjectFilename = ".pkglens.toml"

// Cache backends selectable via cache.backend.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Duration is a time.Duration that unmarshals from TOML strings like
// "30s" or "5m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all pkglens settings.
type Config struct {
	Registry Registry `toml:"registry"`
	Cache    Cache    `toml:"cache"`
	Redis    Redis    `toml:"redis"`
	Command  Command  `toml:"command"`
	Search   Search   `toml:"search"`
	Serve    Serve    `toml:"serve"`
	PM       PM       `toml:"pm"`
}

// Registry configures the npm registry client.
type Registry struct {
	URL    string   `toml:"url"`
	WebURL string   `toml:"web_url"`
	TTL    Duration `toml:"ttl"`
}

// Cache selects and configures the metadata cache backend.
type Cache struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
}

// Redis configures the redis cache backend.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Command configures package-manager command execution.
type Command struct {
	Timeout Duration `toml:"timeout"`
}

// Search configures registry search.
type Search struct {
	Size     int      `toml:"size"`
	Debounce Duration `toml:"debounce"`
}

// Serve configures the HTTP API server.
type Serve struct {
	Addr string `toml:"addr"`
}

// PM overrides package-manager detection.
type PM struct {
	Default string `toml:"default"` // npm, pnpm or yarn; empty means detect
}

// Default returns a Config with every setting at its default.
func Default() *Config {
	return &Config{
		Registry: Registry{
			URL:    registry.DefaultBaseURL,
			WebURL: registry.DefaultWebURL,
			TTL:    Duration(registry.DefaultTTL),
		},
		Cache: Cache{
			Backend: BackendFile,
			Dir:     DefaultCacheDir(),
		},
		Redis: Redis{
			Addr: "localhost:6379",
		},
		Command: Command{
			Timeout: Duration(pm.DefaultTimeout),
		},
		Search: Search{
			Size:     registry.DefaultSearchSize,
			Debounce: Duration(300 * time.Millisecond),
		},
		Serve: Serve{
			Addr: ":7812",
		},
	}
}

// Load reads the config file at path, or the default path when path is
// empty. A missing file at the default path yields defaults; a missing
// explicit path is an error. Environment overrides apply after the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", path)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file, defaults apply
	default:
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read config %s", path)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile overlays the TOML file at path onto the config. A missing
// file is not an error; settings absent from the file keep their
// current values. Used for the per-project .pkglens.toml overlay.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", path)
	}
	return c.Validate()
}

// applyEnv overlays PKGLENS_* environment variables onto the config.
func (c *Config) applyEnv() {
	c.Registry.URL = envOr("PKGLENS_REGISTRY_URL", c.Registry.URL)
	c.Cache.Backend = envOr("PKGLENS_CACHE_BACKEND", c.Cache.Backend)
	c.Cache.Dir = envOr("PKGLENS_CACHE_DIR", c.Cache.Dir)
	c.Redis.Addr = envOr("PKGLENS_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envOr("PKGLENS_REDIS_PASSWORD", c.Redis.Password)
	c.Serve.Addr = envOr("PKGLENS_SERVE_ADDR", c.Serve.Addr)
	if d := envDuration("PKGLENS_COMMAND_TIMEOUT"); d > 0 {
		c.Command.Timeout = Duration(d)
	}
}

// Validate checks settings that have a bounded domain.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendMemory, BackendRedis, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			"unknown cache backend %q (want file, memory, redis or none)", c.Cache.Backend)
	}
	if err := errors.ValidateURL(c.Registry.URL); err != nil {
		return errors.New(errors.ErrCodeInvalidInput, "registry url: %s", errors.UserMessage(err))
	}
	if c.Command.Timeout.Std() <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "command timeout must be positive")
	}
	if c.Search.Size < 1 || c.Search.Size > registry.MaxSearchSize {
		return errors.New(errors.ErrCodeInvalidInput,
			"search size must be between 1 and %d", registry.MaxSearchSize)
	}
	if c.PM.Default != "" {
		if _, err := pm.ParseKind(c.PM.Default); err != nil {
			return errors.New(errors.ErrCodeInvalidInput,
				"unknown package manager %q (want npm, pnpm or yarn)", c.PM.Default)
		}
	}
	return nil
}

// DefaultPath returns the config file location using the XDG standard
// (~/.config/pkglens/config.toml).
func DefaultPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

// DefaultCacheDir returns the cache directory using the XDG standard
// (~/.cache/pkglens/).
func DefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", appName)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
