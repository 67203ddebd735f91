// Package locate finds the package.json describing the installed copy of
// a dependency, falling back to the registry when no local copy exists.
//
// The host runtime's module resolution is replaced by an explicit walk:
// node_modules/<name> directories are probed from the starting directory
// upward to the workspace root, with pnpm's content-addressed store as an
// additional probe at each level. Local manifests are authoritative and
// always preferred over the network.
package locate

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkglens/pkglens/pkg/pm"
	"github.com/pkglens/pkglens/pkg/registry"
)

// Locator resolves dependency metadata for a workspace.
type Locator struct {
	root     string
	registry *registry.Client
}

// NewLocator creates a locator bounded by the workspace root. The
// registry client may be nil to disable the network fallback.
func NewLocator(root string, reg *registry.Client) *Locator {
	root, _ = filepath.Abs(root)
	return &Locator{root: root, registry: reg}
}

// Root returns the workspace root the locator is bounded by.
func (l *Locator) Root() string { return l.root }

// Locate finds metadata for name, starting from startDir. Strategies in
// priority order, first success wins:
//
//  1. Module-resolution probe: node_modules/<name> from startDir upward
//     to the workspace root, symlink-resolved, plus the pnpm store.
//     Skipped for @types/* names, which commonly lack an entry point.
//  2. Manifest search from the probe's candidate directory (or startDir
//     when the probe found nothing): accept package.json on a name
//     match, checking exactly one level up as well.
//  3. Workspace-root installation: <root>/node_modules/<name>/package.json,
//     accepted unconditionally when present.
//  4. Registry lookup.
//
// Locate never fails: every miss degrades to the next strategy and the
// result is nil when all of them come up empty. Locally resolved
// metadata carries the manifest path in Path; registry results do not.
func (l *Locator) Locate(ctx context.Context, name, startDir string) *registry.PackageMetadata {
	startDir, _ = filepath.Abs(startDir)

	candidate := startDir
	if !pm.IsTypesPackage(name) {
		if dir, ok := l.resolveProbe(name, startDir); ok {
			candidate = dir
		}
	}

	if meta, ok := loadIfNamed(candidate, name); ok {
		return meta
	}
	if meta, ok := loadIfNamed(filepath.Dir(candidate), name); ok {
		return meta
	}

	if meta, ok := loadMetadata(filepath.Join(l.root, "node_modules", filepath.FromSlash(name), "package.json")); ok {
		return meta
	}

	if l.registry != nil {
		if meta, err := l.registry.Metadata(ctx, name, false); err == nil {
			return meta
		}
	}
	return nil
}

// resolveProbe walks node_modules directories from startDir up to the
// workspace root looking for an installed copy of name. The result is
// symlink-resolved so pnpm-linked packages yield their store directory.
func (l *Locator) resolveProbe(name, startDir string) (string, bool) {
	rel := filepath.FromSlash(name)
	dir := startDir
	for {
		nm := filepath.Join(dir, "node_modules")

		candidate := filepath.Join(nm, rel)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			if real, err := filepath.EvalSymlinks(candidate); err == nil {
				return real, true
			}
			return candidate, true
		}

		if store, ok := pnpmStore(nm, name); ok {
			return store, true
		}

		if dir == l.root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir || !within(dir, l.root) {
			break
		}
		dir = parent
	}
	return "", false
}

// within reports whether path is root or a descendant of root.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// pnpmStore probes the content-addressed store for name. pnpm keeps
// packages under node_modules/.pnpm/<name>@<version>/node_modules/<name>,
// encoding "/" in scoped names as "+".
func pnpmStore(nodeModules, name string) (string, bool) {
	encoded := strings.ReplaceAll(name, "/", "+")
	pattern := filepath.Join(nodeModules, ".pnpm", encoded+"@*", "node_modules", filepath.FromSlash(name))
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return "", false
	}
	if info, err := os.Stat(matches[0]); err != nil || !info.IsDir() {
		return "", false
	}
	return matches[0], true
}

// loadIfNamed parses dir/package.json and accepts it only when its name
// field equals name.
func loadIfNamed(dir, name string) (*registry.PackageMetadata, bool) {
	meta, ok := loadMetadata(filepath.Join(dir, "package.json"))
	if !ok || meta.Name != name {
		return nil, false
	}
	return meta, true
}

// loadMetadata parses the manifest at path into display metadata.
func loadMetadata(path string) (*registry.PackageMetadata, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	meta, err := registry.ParsePackageJSON(data)
	if err != nil {
		return nil, false
	}
	meta.Path = path
	return meta, true
}
