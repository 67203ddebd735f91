package pm

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"npm", Npm, false},
		{"pnpm@8.6.0", Pnpm, false},
		{"yarn@3.2.1+sha224.abc", Yarn, false},
		{"PNPM@8.0.0", Pnpm, false},
		{"bun@1.0.0", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseKind(%q) should fail", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKind(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

// noPath is a lookPath stub where no executable resolves.
func noPath(string) (string, error) {
	return "", os.ErrNotExist
}

// onlyOnPath resolves just the named executables.
func onlyOnPath(names ...string) func(string) (string, error) {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) (string, error) {
		if set[name] {
			return "/usr/bin/" + name, nil
		}
		return "", os.ErrNotExist
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectManifestFieldWins(t *testing.T) {
	// packageManager beats any lockfile
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name": "x", "packageManager": "pnpm@8.0.0"}`)
	writeFile(t, dir, "yarn.lock", "")
	writeFile(t, dir, "package-lock.json", "{}")

	d := NewDetector()
	d.lookPath = noPath
	if got := d.Detect(dir); got != Pnpm {
		t.Errorf("Detect = %s, want pnpm", got)
	}
}

func TestDetectLockfilePriority(t *testing.T) {
	tests := []struct {
		name      string
		lockfiles []string
		want      Kind
	}{
		{"pnpm beats all", []string{"pnpm-lock.yaml", "yarn.lock", "package-lock.json"}, Pnpm},
		{"yarn beats npm", []string{"yarn.lock", "package-lock.json"}, Yarn},
		{"npm lockfile alone", []string{"package-lock.json"}, Npm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "package.json", `{"name": "x"}`)
			for _, lf := range tt.lockfiles {
				writeFile(t, dir, lf, "")
			}

			d := NewDetector()
			d.lookPath = noPath
			if got := d.Detect(dir); got != tt.want {
				t.Errorf("Detect = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetectInvalidManagerFieldFallsThrough(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name": "x", "packageManager": "bun@1.0.0"}`)
	writeFile(t, dir, "yarn.lock", "")

	d := NewDetector()
	d.lookPath = noPath
	if got := d.Detect(dir); got != Yarn {
		t.Errorf("Detect = %s, want yarn (invalid field skipped)", got)
	}
}

func TestDetectMalformedManifestFallsThrough(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name": `)
	writeFile(t, dir, "package-lock.json", "{}")

	d := NewDetector()
	d.lookPath = noPath
	if got := d.Detect(dir); got != Npm {
		t.Errorf("Detect = %s, want npm", got)
	}
}

func TestDetectPathProbe(t *testing.T) {
	tests := []struct {
		name string
		path func(string) (string, error)
		want Kind
	}{
		{"pnpm preferred", onlyOnPath("pnpm", "yarn", "npm"), Pnpm},
		{"yarn when no pnpm", onlyOnPath("yarn", "npm"), Yarn},
		{"npm default", noPath, Npm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir() // no manifest, no lockfiles
			d := NewDetector()
			d.lookPath = tt.path
			if got := d.Detect(dir); got != tt.want {
				t.Errorf("Detect = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetectEmptyDirDefaultsNpm(t *testing.T) {
	d := NewDetector()
	d.lookPath = noPath
	if got := d.Detect(t.TempDir()); got != Npm {
		t.Errorf("Detect = %s, want npm", got)
	}
}
