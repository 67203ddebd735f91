package pm

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkglens/pkglens/pkg/manifest"
)

// Detector resolves which package manager a project uses.
type Detector struct {
	// lookPath probes for an executable on PATH. Overridable in tests.
	lookPath func(name string) (string, error)
}

// NewDetector creates a detector probing the real PATH.
func NewDetector() *Detector {
	return &Detector{lookPath: exec.LookPath}
}

// Detect determines the package manager for projectDir. Strategies in
// strict priority order, first match wins:
//
//  1. The packageManager field of projectDir/package.json.
//  2. Lockfiles in projectDir: pnpm-lock.yaml, then yarn.lock, then
//     package-lock.json.
//  3. Executables on PATH: pnpm, then yarn.
//  4. npm.
//
// Detection never fails. Read or parse errors on the manifest and probe
// failures fall through to the next strategy.
func (d *Detector) Detect(projectDir string) Kind {
	if k, ok := d.fromManifest(projectDir); ok {
		return k
	}
	if k, ok := d.fromLockfiles(projectDir); ok {
		return k
	}
	if k, ok := d.fromPath(); ok {
		return k
	}
	return Npm
}

func (d *Detector) fromManifest(projectDir string) (Kind, bool) {
	m, err := manifest.Load(filepath.Join(projectDir, manifest.Filename))
	if err != nil || m.PackageManager == "" {
		return "", false
	}
	k, err := ParseKind(m.PackageManager)
	if err != nil {
		return "", false
	}
	return k, true
}

func (d *Detector) fromLockfiles(projectDir string) (Kind, bool) {
	for _, k := range []Kind{Pnpm, Yarn, Npm} {
		info, err := os.Stat(filepath.Join(projectDir, k.Lockfile()))
		if err == nil && !info.IsDir() {
			return k, true
		}
	}
	return "", false
}

func (d *Detector) fromPath() (Kind, bool) {
	for _, k := range []Kind{Pnpm, Yarn} {
		if _, err := d.lookPath(k.String()); err == nil {
			return k, true
		}
	}
	return "", false
}
