package cli

import (
	"context"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pkglens/pkglens/pkg/buildinfo"
	"github.com/pkglens/pkglens/pkg/cache"
	"github.com/pkglens/pkglens/pkg/config"
	"github.com/pkglens/pkglens/pkg/locate"
	"github.com/pkglens/pkglens/pkg/pm"
	"github.com/pkglens/pkglens/pkg/registry"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "pkglens"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "pkglens",
		Short:        "Pkglens explores and edits npm dependency trees",
		Long:         `Pkglens reads the package.json of a JavaScript project and shows its dependency tree, resolves installed copies and registry metadata, and adds or removes packages through the project's own package manager (npm, pnpm or yarn).`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/pkglens/config.toml)")

	// Register all subcommands
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.addCommand())
	root.AddCommand(c.removeCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.outdatedCommand())
	root.AddCommand(c.openCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// config loads the configuration once per invocation. Read or validation
// failures degrade to defaults with a warning, never an abort.
func (c *CLI) config() *config.Config {
	if c.cfg != nil {
		return c.cfg
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		c.Logger.Warnf("Config error, using defaults: %v", err)
		cfg = config.Default()
	}
	c.cfg = cfg
	return cfg
}

// projectConfig overlays the per-project .pkglens.toml of dir, when
// present, onto a copy of the loaded configuration.
func (c *CLI) projectConfig(dir string) *config.Config {
	cfg := *c.config()
	path := filepath.Join(dir, config.ProjectFilename)
	if err := cfg.MergeFile(path); err != nil {
		c.Logger.Warnf("Ignoring %s: %v", path, err)
		return c.config()
	}
	return &cfg
}

// =============================================================================
// Workspace Factory
// =============================================================================

// workspace bundles the components a command needs, rooted at the
// directory the command targets.
type workspace struct {
	root     string
	cfg      *config.Config
	store    cache.Cache
	registry *registry.Client
	locator  *locate.Locator
	detector *pm.Detector
	executor *pm.Executor
	override pm.Kind
}

// newWorkspace wires cache, registry client, locator, detector and
// executor for the project at dir.
func (c *CLI) newWorkspace(ctx context.Context, dir string) (*workspace, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	cfg := c.projectConfig(root)
	store := c.newCache(ctx, cfg)
	reg := registry.NewClient(store, cfg.Registry.URL, cfg.Registry.TTL.Std())

	w := &workspace{
		root:     root,
		cfg:      cfg,
		store:    store,
		registry: reg,
		locator:  locate.NewLocator(root, reg),
		detector: pm.NewDetector(),
		executor: pm.NewExecutor(cfg.Command.Timeout.Std()),
	}
	if cfg.PM.Default != "" {
		if kind, err := pm.ParseKind(cfg.PM.Default); err == nil {
			w.override = kind
		}
	}
	return w, nil
}

// Close releases the cache backend.
func (w *workspace) Close() error {
	return w.store.Close()
}

// manager returns the configured package manager override, or the one
// detected for the workspace root.
func (w *workspace) manager() pm.Kind {
	if w.override.Valid() {
		return w.override
	}
	return w.detector.Detect(w.root)
}

// newCache selects the cache backend from the configuration. Backends
// that cannot be opened degrade towards NullCache rather than failing.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config) cache.Cache {
	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache()
	case config.BackendMemory:
		return cache.NewMemoryCache()
	case config.BackendRedis:
		store, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err == nil {
			return store
		}
		c.Logger.Warnf("Redis cache unavailable, falling back to files: %v", err)
	}
	store, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		c.Logger.Warnf("File cache unavailable, caching disabled: %v", err)
		return cache.NewNullCache()
	}
	return store
}

// =============================================================================
// Argument Helpers
// =============================================================================

// dirArg extracts the optional [dir] argument at position pos,
// defaulting to the current directory.
func dirArg(args []string, pos int) string {
	if len(args) > pos {
		return args[pos]
	}
	return "."
}
