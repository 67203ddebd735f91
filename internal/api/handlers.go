package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pkglens/pkglens/pkg/errors"
	"github.com/pkglens/pkglens/pkg/manifest"
	"github.com/pkglens/pkglens/pkg/pm"
	"github.com/pkglens/pkglens/pkg/tree"
)

// maxTreeDepth caps recursive expansion of the tree endpoint.
const maxTreeDepth = 8

type nodeJSON struct {
	Name      string     `json:"name"`
	Range     string     `json:"range,omitempty"`
	Kind      string     `json:"kind,omitempty"`
	Dir       string     `json:"dir"`
	Installed bool       `json:"installed"`
	Children  []nodeJSON `json:"children,omitempty"`
}

func toNodeJSON(n tree.Node) nodeJSON {
	return nodeJSON{
		Name:      n.Name,
		Range:     n.VersionRange,
		Kind:      string(n.Kind),
		Dir:       n.Dir,
		Installed: n.Installed,
	}
}

// handleTree returns the dependency tree for the workspace, optionally
// scoped by ?file= (nearest-manifest selection) and expanded to ?depth=
// levels (default 1).
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	m := s.cfg.Model
	if file := r.URL.Query().Get("file"); file != "" {
		m = tree.NewModel(s.cfg.Root)
		m.SetVisible(true)
		m.SetActiveFile(s.resolveDir(file))
	}

	depth := 1
	if v := r.URL.Query().Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid depth %q", v))
			return
		}
		depth = min(n, maxTreeDepth)
	}

	roots := make([]nodeJSON, 0)
	for _, n := range m.Roots() {
		roots = append(roots, s.expand(m, n, depth))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"manifest": m.ManifestPath(),
		"roots":    roots,
	})
}

func (s *Server) expand(m *tree.Model, n tree.Node, depth int) nodeJSON {
	out := toNodeJSON(n)
	if depth <= 1 || !n.Installed {
		return out
	}
	for _, child := range m.Children(n) {
		out.Children = append(out.Children, s.expand(m, child, depth-1))
	}
	return out
}

// handleChildren expands one node identified by ?name= and ?dir=.
func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	dir := r.URL.Query().Get("dir")
	if name == "" || dir == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "name and dir are required"))
		return
	}

	n := s.cfg.Model.NodeAt(name, s.resolveDir(dir))
	children := make([]nodeJSON, 0)
	for _, child := range s.cfg.Model.Children(n) {
		children = append(children, toNodeJSON(child))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      n.Name,
		"dir":       n.Dir,
		"installed": n.Installed,
		"children":  children,
	})
}

// handlePackage resolves metadata for the package named by the rest of
// the path (wildcard, so scoped names with "/" work).
func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if name == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "package name is required"))
		return
	}

	startDir := s.cfg.Root
	if dir := r.URL.Query().Get("dir"); dir != "" {
		startDir = s.resolveDir(dir)
	}

	meta := s.cfg.Locator.Locate(r.Context(), name, startDir)
	if meta == nil {
		writeError(w, errors.New(errors.ErrCodePackageNotFound, "package %s not found", name))
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// handleSearch proxies the registry search endpoint.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	size := s.cfg.SearchSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid size %q", v))
			return
		}
		size = n
	}

	results, err := s.cfg.Registry.Search(r.Context(), query, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": nonNil(results),
	})
}

type installRequest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Type    string `json:"type"` // "", "dev" or "peer"
	Dir     string `json:"dir"`
}

type removeRequest struct {
	Name string `json:"name"`
	Dir  string `json:"dir"`
}

// runResponse reports one executed package-manager command.
type runResponse struct {
	ID         string `json:"id"`
	Manager    string `json:"manager"`
	Command    string `json:"command"`
	Dir        string `json:"dir"`
	ExitCode   int    `json:"exitCode"`
	TimedOut   bool   `json:"timedOut"`
	Output     string `json:"output,omitempty"`
	DurationMS int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

// handleInstall runs the detect, build, execute path for an install.
func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	var req installRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if req.Name == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "name is required"))
		return
	}
	// Name and version end up in a shell line, so they get the same
	// gate as the CLI arguments.
	if err := errors.ValidateNpmPackageName(req.Name); err != nil {
		writeError(w, err)
		return
	}
	if err := errors.ValidateVersionSpec(req.Version); err != nil {
		writeError(w, err)
		return
	}

	var typ pm.InstallType
	switch req.Type {
	case "", "prod":
		typ = pm.InstallDefault
	case "dev":
		typ = pm.InstallDev
	case "peer":
		typ = pm.InstallPeer
	default:
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "unknown install type %q", req.Type))
		return
	}

	dir, err := s.projectDir(req.Dir)
	if err != nil {
		writeError(w, err)
		return
	}

	// The companion probe is skipped when it could not apply anyway:
	// peer installs never take one, and @types packages have none.
	includeTypes := false
	if typ != pm.InstallPeer && !pm.IsTypesPackage(req.Name) {
		includeTypes = s.cfg.Locator.Locate(r.Context(), pm.TypesCompanion(req.Name), dir) != nil
	}

	kind := s.manager(dir)
	command := pm.BuildInstall(kind, pm.Package{Name: req.Name, Version: req.Version}, typ, includeTypes)
	s.runCommand(w, r, kind, dir, command)
}

// handleRemove runs the removal, taking the @types companion with it
// when the project manifest declares one.
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if req.Name == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "name is required"))
		return
	}
	if err := errors.ValidateNpmPackageName(req.Name); err != nil {
		writeError(w, err)
		return
	}

	dir, err := s.projectDir(req.Dir)
	if err != nil {
		writeError(w, err)
		return
	}

	hasTypes := false
	if !pm.IsTypesPackage(req.Name) {
		if mf, loadErr := manifest.Load(filepath.Join(dir, manifest.Filename)); loadErr == nil {
			hasTypes = mf.Has(pm.TypesCompanion(req.Name))
		}
	}

	kind := s.manager(dir)
	command := pm.BuildRemove(kind, req.Name, hasTypes)
	s.runCommand(w, r, kind, dir, command)
}

func (s *Server) runCommand(w http.ResponseWriter, r *http.Request, kind pm.Kind, dir, command string) {
	res, err := s.cfg.Executor.Run(r.Context(), kind, dir, command)

	resp := runResponse{
		ID:         res.ID.String(),
		Manager:    kind.String(),
		Command:    res.Command,
		Dir:        res.Dir,
		ExitCode:   res.ExitCode,
		TimedOut:   res.TimedOut,
		Output:     res.Output,
		DurationMS: res.Duration.Milliseconds(),
	}

	status := http.StatusOK
	if err != nil {
		resp.Error = errors.UserMessage(err)
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

// projectDir resolves a request directory against the workspace root
// and rejects escapes. Empty means the root itself.
func (s *Server) projectDir(dir string) (string, error) {
	resolved := s.resolveDir(dir)
	rel, err := filepath.Rel(s.cfg.Root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New(errors.ErrCodeInvalidPath, "directory %s is outside the workspace", dir)
	}
	return resolved, nil
}

func (s *Server) resolveDir(dir string) string {
	if dir == "" {
		return s.cfg.Root
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(s.cfg.Root, dir)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
