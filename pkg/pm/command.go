package pm

import "strings"

// InstallType selects the dependency group an install targets.
type InstallType int

// Install targets.
const (
	InstallDefault InstallType = iota // regular dependency
	InstallDev                        // devDependencies
	InstallPeer                       // peerDependencies
)

// Package is a name plus an optional exact version to install.
type Package struct {
	Name    string
	Version string
}

// Spec returns the install argument: "name@version", or just the name
// when no version is pinned.
func (p Package) Spec() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "@" + p.Version
}

// TypesCompanion returns the name of the type-declaration package for name.
func TypesCompanion(name string) string {
	return "@types/" + name
}

// IsTypesPackage reports whether name is itself a type-declaration package.
func IsTypesPackage(name string) bool {
	return strings.HasPrefix(name, "@types/")
}

// BuildInstall produces the shell command line installing pkg with the
// given manager. When includeTypes is set, a second install of the
// @types companion is appended with "&&" so it only runs if the primary
// install succeeds. The companion is always installed as a dev
// dependency and never carries a version pin. Peer installs skip the
// companion entirely, even when requested.
func BuildInstall(k Kind, pkg Package, typ InstallType, includeTypes bool) string {
	cmd := installCommand(k, typ, pkg.Spec())
	if includeTypes && typ != InstallPeer {
		cmd += " && " + installCommand(k, InstallDev, TypesCompanion(pkg.Name))
	}
	return cmd
}

// BuildRemove produces the shell command line removing name. When
// hasTypes is set, the @types companion is removed in the same line,
// joined with "&&".
func BuildRemove(k Kind, name string, hasTypes bool) string {
	cmd := removeCommand(k, name)
	if hasTypes {
		cmd += " && " + removeCommand(k, TypesCompanion(name))
	}
	return cmd
}

// installCommand renders one install invocation from the per-manager
// verb and flag table.
func installCommand(k Kind, typ InstallType, spec string) string {
	var parts []string
	switch k {
	case Npm:
		parts = []string{"npm", "install"}
		switch typ {
		case InstallDev:
			parts = append(parts, "--save-dev")
		case InstallPeer:
			parts = append(parts, "--save-peer")
		}
	case Pnpm, Yarn:
		parts = []string{k.String(), "add"}
		switch typ {
		case InstallDev:
			parts = append(parts, "-D")
		case InstallPeer:
			parts = append(parts, "-P")
		}
	}
	parts = append(parts, spec)
	return strings.Join(parts, " ")
}

func removeCommand(k Kind, name string) string {
	if k == Npm {
		return "npm uninstall " + name
	}
	return k.String() + " remove " + name
}
