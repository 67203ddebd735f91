package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pkglens/pkglens/pkg/errors"
)

// Filename is the manifest file name looked for in every directory.
const Filename = "package.json"

// PnpmWorkspaceFile declares workspace members for pnpm projects.
const PnpmWorkspaceFile = "pnpm-workspace.yaml"

// Nearest returns the manifest owning start: the first package.json found
// walking up from start (a file or directory) toward root. The walk stops
// at root inclusive and never escapes it. Returns a MANIFEST_NOT_FOUND
// error when no manifest exists on the path.
func Nearest(start, root string) (string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve root: %s", root)
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve path: %s", start)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	if !within(dir, root) {
		return "", errors.New(errors.ErrCodeInvalidPath, "path %s is outside workspace %s", start, root)
	}

	for {
		candidate := filepath.Join(dir, Filename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		if dir == root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.New(errors.ErrCodeManifestNotFound, "no package.json between %s and %s", start, root)
}

// within reports whether path is root or a descendant of root.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}

// Workspace is a project root plus its member manifests.
type Workspace struct {
	Root      string      // workspace root directory
	Manifests []*Manifest // root manifest first, then members in glob order
}

// LoadWorkspace loads the manifest at root and expands its workspace
// globs into member manifests. Globs come from the root package.json
// workspaces field and, when present, pnpm-workspace.yaml. Negated
// globs ("!...") are ignored. filepath.Glob covers the common
// "packages/*" form.
func LoadWorkspace(root string) (*Workspace, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve root: %s", root)
	}

	ws := &Workspace{Root: root}
	seen := make(map[string]bool)

	var globs []string
	rootManifest, err := Load(filepath.Join(root, Filename))
	switch {
	case err == nil:
		ws.Manifests = append(ws.Manifests, rootManifest)
		seen[rootManifest.Dir] = true
		globs = append(globs, rootManifest.Workspaces...)
	case errors.Is(err, errors.ErrCodeFileNotFound):
		// pnpm workspaces may omit the root manifest
	default:
		return nil, err
	}

	pnpmGlobs, err := loadPnpmWorkspace(filepath.Join(root, PnpmWorkspaceFile))
	if err != nil {
		return nil, err
	}
	globs = append(globs, pnpmGlobs...)

	for _, glob := range globs {
		if strings.HasPrefix(glob, "!") {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(glob)))
		if err != nil {
			// Malformed pattern, skip it
			continue
		}
		sort.Strings(matches)
		for _, dir := range matches {
			if seen[dir] || filepath.Base(dir) == "node_modules" {
				continue
			}
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				continue
			}
			member, err := Load(filepath.Join(dir, Filename))
			if err != nil {
				continue
			}
			seen[dir] = true
			ws.Manifests = append(ws.Manifests, member)
		}
	}

	if len(ws.Manifests) == 0 {
		return nil, errors.New(errors.ErrCodeManifestNotFound, "no package.json in workspace %s", root)
	}
	return ws, nil
}

// loadPnpmWorkspace parses the packages list from pnpm-workspace.yaml.
// A missing file yields no globs.
func loadPnpmWorkspace(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}

	var doc struct {
		Packages []string `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", path)
	}
	return doc.Packages, nil
}
