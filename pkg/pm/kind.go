// Package pm detects the package manager of a JavaScript project and
// builds and runs the shell commands that add or remove dependencies.
//
// Detection never fails: every signal source (manifest field, lockfiles,
// PATH probes) degrades silently to the next one, and the chain bottoms
// out at npm. Command construction is a pure string operation so it can
// be tested without touching a shell.
package pm

import (
	"fmt"
	"strings"
)

// Kind identifies a package manager.
type Kind string

// Supported package managers.
const (
	Npm  Kind = "npm"
	Pnpm Kind = "pnpm"
	Yarn Kind = "yarn"
)

// String returns the executable name of the manager.
func (k Kind) String() string { return string(k) }

// Valid reports whether k is a supported manager.
func (k Kind) Valid() bool {
	switch k {
	case Npm, Pnpm, Yarn:
		return true
	}
	return false
}

// ParseKind parses a manager name. It accepts the value of a manifest's
// packageManager field, so anything after the first "@" is ignored
// (e.g. "pnpm@8.6.0" parses as pnpm).
func ParseKind(s string) (Kind, error) {
	name, _, _ := strings.Cut(strings.TrimSpace(s), "@")
	k := Kind(strings.ToLower(name))
	if !k.Valid() {
		return "", fmt.Errorf("unknown package manager %q", s)
	}
	return k, nil
}

// Lockfile returns the lockfile name written by the manager.
func (k Kind) Lockfile() string {
	switch k {
	case Pnpm:
		return "pnpm-lock.yaml"
	case Yarn:
		return "yarn.lock"
	default:
		return "package-lock.json"
	}
}
