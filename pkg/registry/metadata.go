package registry

import (
	"encoding/json"
	"strings"
)

// PackageMetadata is the display metadata of one package version, used
// for tooltips, the info panel, and the registry fallback of the
// locator. Absent fields stay empty and are omitted from rendering.
type PackageMetadata struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Description      string            `json:"description,omitempty"`
	Keywords         []string          `json:"keywords,omitempty"`
	Author           string            `json:"author,omitempty"`
	License          string            `json:"license,omitempty"`
	Homepage         string            `json:"homepage,omitempty"`
	Repository       string            `json:"repository,omitempty"`
	Bugs             string            `json:"bugs,omitempty"`
	Deprecated       string            `json:"deprecated,omitempty"`
	Latest           string            `json:"latest,omitempty"` // latest dist-tag at fetch time
	Path             string            `json:"path,omitempty"`   // local manifest path; empty for registry results
	Dependencies     map[string]string `json:"dependencies,omitempty"`
	DevDependencies  map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies map[string]string `json:"peerDependencies,omitempty"`
}

// registryResponse is the full package document returned by
// GET {registry}/{name}.
type registryResponse struct {
	Name     string                `json:"name"`
	DistTags distTags              `json:"dist-tags"`
	Versions map[string]packageDoc `json:"versions"`
}

type distTags struct {
	Latest string `json:"latest"`
}

// packageDoc is one version manifest: the shape shared by
// GET {registry}/{name}/{version}, the per-version entries of the full
// document, and an installed package.json on disk. The author, license,
// repository and bugs fields may each be a plain string or an object.
type packageDoc struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Description      string            `json:"description"`
	Keywords         []string          `json:"keywords"`
	License          any               `json:"license"`
	Author           any               `json:"author"`
	Repository       any               `json:"repository"`
	Homepage         string            `json:"homepage"`
	Bugs             any               `json:"bugs"`
	Deprecated       string            `json:"deprecated"`
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
}

func (d *packageDoc) metadata() *PackageMetadata {
	return &PackageMetadata{
		Name:             d.Name,
		Version:          d.Version,
		Description:      d.Description,
		Keywords:         d.Keywords,
		Author:           extractField(d.Author, "name"),
		License:          extractField(d.License, "type"),
		Homepage:         d.Homepage,
		Repository:       NormalizeRepoURL(extractField(d.Repository, "url")),
		Bugs:             extractField(d.Bugs, "url"),
		Deprecated:       d.Deprecated,
		Dependencies:     d.Dependencies,
		DevDependencies:  d.DevDependencies,
		PeerDependencies: d.PeerDependencies,
	}
}

// ParsePackageJSON parses an installed package.json into display
// metadata. The locator uses this for locally resolved packages so that
// local and registry results share one shape.
func ParsePackageJSON(data []byte) (*PackageMetadata, error) {
	var doc packageDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.metadata(), nil
}

// extractField reads a value that may be a plain string or an object
// holding the string under field (npm allows both forms for author,
// license, repository and bugs).
func extractField(v any, field string) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if s, ok := val[field].(string); ok {
			return s
		}
	}
	return ""
}

var repoURLReplacer = strings.NewReplacer(
	"git@github.com:", "https://github.com/",
	"git://github.com/", "https://github.com/",
)

// NormalizeRepoURL converts various repository URL formats to canonical
// HTTPS form. Handles git@, git://, and git+ prefixes, and removes .git
// suffixes. Returns empty string if raw is empty.
func NormalizeRepoURL(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "git+")
	s = repoURLReplacer.Replace(s)
	return strings.TrimSuffix(s, ".git")
}
