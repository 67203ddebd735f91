// Package manifest parses package.json files and resolves which manifest
// owns a given file in a workspace.
//
// Parsing preserves the key order of each dependency group. encoding/json
// maps discard insertion order, so groups are scanned token-by-token with
// a json.Decoder instead. Order matters: the dependency tree displays
// packages in the order they appear in the manifest.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkglens/pkglens/pkg/errors"
)

// Kind identifies a dependency group in package.json.
type Kind string

// Dependency groups, named after their manifest keys.
const (
	KindDependency Kind = "dependencies"
	KindDev        Kind = "devDependencies"
	KindPeer       Kind = "peerDependencies"
)

// Label returns a short human-readable name for the group.
func (k Kind) Label() string {
	switch k {
	case KindDependency:
		return "dependencies"
	case KindDev:
		return "dev"
	case KindPeer:
		return "peer"
	default:
		return string(k)
	}
}

// GroupOrder returns dependency groups in display order:
// peer dependencies first, then regular, then dev.
func GroupOrder() []Kind {
	return []Kind{KindPeer, KindDependency, KindDev}
}

// Dependency is a single entry in a dependency group.
type Dependency struct {
	Name string // package name, e.g. "react" or "@types/node"
	Spec string // version range as written, e.g. "^18.2.0"
	Kind Kind   // group the entry belongs to
}

// Manifest is a parsed package.json.
type Manifest struct {
	Path           string // absolute path to package.json
	Dir            string // directory containing the manifest
	Name           string
	Version        string
	Description    string
	PackageManager string   // raw packageManager field, e.g. "pnpm@8.6.0"
	Workspaces     []string // workspace globs, if declared

	groups map[Kind][]Dependency
}

// Load reads and parses the package.json at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest not found: %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read manifest: %s", path)
	}
	return Parse(data, path)
}

// Parse parses package.json content. The path is recorded on the result
// and used in error messages; it may be empty for in-memory data.
func Parse(data []byte, path string) (*Manifest, error) {
	m := &Manifest{
		Path:   path,
		Dir:    filepath.Dir(path),
		groups: make(map[Kind][]Dependency, 3),
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse manifest: %s", path)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "manifest is not a JSON object: %s", path)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse manifest: %s", path)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidManifest, "unexpected token in manifest: %s", path)
		}

		switch key {
		case "name":
			err = decodeString(dec, &m.Name)
		case "version":
			err = decodeString(dec, &m.Version)
		case "description":
			err = decodeString(dec, &m.Description)
		case "packageManager":
			err = decodeString(dec, &m.PackageManager)
		case "workspaces":
			err = decodeWorkspaces(dec, &m.Workspaces)
		case "dependencies":
			err = decodeGroup(dec, m, KindDependency)
		case "devDependencies":
			err = decodeGroup(dec, m, KindDev)
		case "peerDependencies":
			err = decodeGroup(dec, m, KindPeer)
		default:
			err = skipValue(dec)
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse manifest field %q: %s", key, path)
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse manifest: %s", path)
	}
	return m, nil
}

// Group returns the entries of a dependency group in manifest key order.
func (m *Manifest) Group(kind Kind) []Dependency {
	return m.groups[kind]
}

// All returns every dependency in display order: the peer group first,
// then regular dependencies, then dev. Within a group, manifest key
// order is preserved.
func (m *Manifest) All() []Dependency {
	var out []Dependency
	for _, kind := range GroupOrder() {
		out = append(out, m.groups[kind]...)
	}
	return out
}

// Lookup finds a dependency by name across all groups. If a name appears
// in several groups, the first group in display order wins.
func (m *Manifest) Lookup(name string) (Dependency, bool) {
	for _, kind := range GroupOrder() {
		for _, d := range m.groups[kind] {
			if d.Name == name {
				return d, true
			}
		}
	}
	return Dependency{}, false
}

// Has reports whether name is declared in any dependency group.
func (m *Manifest) Has(name string) bool {
	_, ok := m.Lookup(name)
	return ok
}

// DisplayName returns the manifest's name, falling back to the directory
// base name when the name field is missing.
func (m *Manifest) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return filepath.Base(m.Dir)
}

func decodeString(dec *json.Decoder, dst *string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	s, ok := tok.(string)
	if !ok {
		return fmt.Errorf("expected string, got %v", tok)
	}
	*dst = s
	return nil
}

// decodeGroup reads a dependency object preserving key order. Duplicate
// keys follow JSON object semantics in JavaScript: the first occurrence
// keeps its position, the last occurrence wins the value.
func decodeGroup(dec *json.Decoder, m *Manifest, kind Kind) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%s is not an object", kind)
	}

	var entries []Dependency
	index := make(map[string]int)
	for dec.More() {
		nameTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := nameTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key in %s", kind)
		}

		var spec string
		if err := decodeString(dec, &spec); err != nil {
			return fmt.Errorf("%s[%q]: %w", kind, name, err)
		}

		if i, seen := index[name]; seen {
			entries[i].Spec = spec
			continue
		}
		index[name] = len(entries)
		entries = append(entries, Dependency{Name: name, Spec: spec, Kind: kind})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	m.groups[kind] = entries
	return nil
}

// decodeWorkspaces handles both forms of the workspaces field: a plain
// array of globs, or the yarn object form {"packages": [...]}.
func decodeWorkspaces(dec *json.Decoder, dst *[]string) error {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	var globs []string
	if err := json.Unmarshal(raw, &globs); err == nil {
		*dst = globs
		return nil
	}

	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("workspaces: %w", err)
	}
	*dst = obj.Packages
	return nil
}

// skipValue consumes a single JSON value of any shape.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
