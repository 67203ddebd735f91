// Package tree models the dependency tree of a project manifest.
//
// Roots come from the relevant manifest's three dependency groups in
// display order (peer, regular, dev), each preserving manifest key
// order. Children are resolved lazily from the installed copy under the
// owning directory's own node_modules, never from a sibling or parent
// install. Nodes carry no persistent identity: a refresh rebuilds the
// tree from disk.
package tree

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkglens/pkglens/pkg/manifest"
	"github.com/pkglens/pkglens/pkg/registry"
)

// Node is one dependency entry in the tree.
type Node struct {
	Name         string        // package name as declared
	VersionRange string        // declared range, e.g. "^18.2.0"
	Kind         manifest.Kind // group the declaration belongs to
	Dir          string        // directory of the declaring manifest
	Installed    bool          // node_modules/<name> under Dir is a directory
}

// InstalledDir returns the directory the installed copy would occupy,
// whether or not it exists.
func (n Node) InstalledDir() string {
	return filepath.Join(n.Dir, "node_modules", filepath.FromSlash(n.Name))
}

// MetadataProvider resolves detailed metadata for a node, locally or
// from the registry. *locate.Locator satisfies it.
type MetadataProvider interface {
	Locate(ctx context.Context, name, startDir string) *registry.PackageMetadata
}

// Model selects the relevant manifest for the workspace and exposes the
// dependency tree under it. All methods are safe for concurrent use.
type Model struct {
	root string

	mu         sync.Mutex
	path       string // selected manifest path, "" when none
	activeFile string // last reported active editor file
	visible    bool
	provider   MetadataProvider
	nextID     int
	listeners  map[int]func()
}

// NewModel creates a model rooted at the workspace root. The initial
// manifest selection runs with no active file, so it falls back to the
// root manifest when one exists.
func NewModel(root string) *Model {
	root, _ = filepath.Abs(root)
	m := &Model{
		root:      root,
		listeners: make(map[int]func()),
	}
	m.path = m.selectManifest("")
	return m
}

// Root returns the workspace root.
func (m *Model) Root() string { return m.root }

// ManifestPath returns the currently selected manifest, or "" when the
// workspace has none.
func (m *Model) ManifestPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Roots builds the top-level nodes from the selected manifest. The
// manifest is re-read on every call; read or parse failures yield an
// empty tree, never an error.
func (m *Model) Roots() []Node {
	path := m.ManifestPath()
	if path == "" {
		return nil
	}
	mf, err := manifest.Load(path)
	if err != nil {
		return nil
	}

	var nodes []Node
	for _, d := range mf.All() {
		nodes = append(nodes, newNode(d, mf.Dir))
	}
	return nodes
}

// NodeAt builds the node for name owned by dir, stating the install
// status fresh. It re-enters the tree at a known position, e.g. when a
// caller round-trips node coordinates through an API.
func (m *Model) NodeAt(name, dir string) Node {
	return Node{
		Name:      name,
		Dir:       dir,
		Installed: installed(dir, name),
	}
}

// Children resolves the dependencies of n from its installed copy.
// Non-installed nodes are leaves. The children's owning directory is
// the installed copy itself, so grandchildren resolve against that
// package's own node_modules.
func (m *Model) Children(n Node) []Node {
	if !n.Installed {
		return nil
	}
	pkgDir := n.InstalledDir()
	mf, err := manifest.Load(filepath.Join(pkgDir, manifest.Filename))
	if err != nil {
		return nil
	}

	var nodes []Node
	for _, d := range mf.All() {
		nodes = append(nodes, newNode(d, pkgDir))
	}
	return nodes
}

// Refresh signals subscribers that the tree must be rebuilt. Node state
// is never cached, so the next Roots or Children call reads fresh data.
func (m *Model) Refresh() {
	m.notify()
}

// SetMetadataProvider wires the metadata lookup used by Metadata.
func (m *Model) SetMetadataProvider(p MetadataProvider) {
	m.mu.Lock()
	m.provider = p
	m.mu.Unlock()
}

// Metadata resolves detailed metadata for n through the configured
// provider, starting the lookup in n's owning directory. Returns nil
// when no provider is set or the lookup misses everywhere.
func (m *Model) Metadata(ctx context.Context, n Node) *registry.PackageMetadata {
	m.mu.Lock()
	p := m.provider
	m.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Locate(ctx, n.Name, n.Dir)
}

// SetVisible records whether the tree view is shown. Becoming visible
// re-evaluates the manifest selection against the last known active
// file; while hidden, active-file changes are recorded but not acted on.
func (m *Model) SetVisible(visible bool) {
	m.mu.Lock()
	wasVisible := m.visible
	m.visible = visible
	file := m.activeFile
	m.mu.Unlock()

	if visible && !wasVisible {
		m.reselect(file)
	}
}

// SetActiveFile reports the active editor file ("" for none). While the
// view is visible, the manifest selection is re-evaluated and
// subscribers are notified only when the selection actually changed.
func (m *Model) SetActiveFile(path string) {
	m.mu.Lock()
	m.activeFile = path
	visible := m.visible
	m.mu.Unlock()

	if visible {
		m.reselect(path)
	}
}

// Subscribe registers a refresh listener and returns its unsubscribe
// function.
func (m *Model) Subscribe(fn func()) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// reselect applies the relevant-manifest policy and notifies on change.
func (m *Model) reselect(activeFile string) {
	selected := m.selectManifest(activeFile)

	m.mu.Lock()
	changed := selected != m.path
	m.path = selected
	m.mu.Unlock()

	if changed {
		m.notify()
	}
}

// selectManifest resolves the relevant manifest for an active file:
// the nearest manifest walking up from the file within the workspace
// root, else the root's own manifest, else none.
func (m *Model) selectManifest(activeFile string) string {
	if activeFile != "" {
		if path, err := manifest.Nearest(activeFile, m.root); err == nil {
			return path
		}
	}
	rootManifest := filepath.Join(m.root, manifest.Filename)
	if info, err := os.Stat(rootManifest); err == nil && !info.IsDir() {
		return rootManifest
	}
	return ""
}

func (m *Model) notify() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func newNode(d manifest.Dependency, ownerDir string) Node {
	return Node{
		Name:         d.Name,
		VersionRange: d.Spec,
		Kind:         d.Kind,
		Dir:          ownerDir,
		Installed:    installed(ownerDir, d.Name),
	}
}

func installed(ownerDir, name string) bool {
	info, err := os.Stat(filepath.Join(ownerDir, "node_modules", filepath.FromSlash(name)))
	return err == nil && info.IsDir()
}
