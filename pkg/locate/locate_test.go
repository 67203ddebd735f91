package locate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkglens/pkglens/pkg/cache"
	"github.com/pkglens/pkglens/pkg/registry"
)

// installPackage writes a minimal installed package under dir/node_modules.
func installPackage(t *testing.T, dir, name, version string) string {
	t.Helper()
	pkgDir := filepath.Join(dir, "node_modules", filepath.FromSlash(name))
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{"name": "` + name + `", "version": "` + version + `", "description": "test fixture"}`
	if err := os.WriteFile(filepath.Join(pkgDir, "package.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return pkgDir
}

func TestLocateInstalledAtRoot(t *testing.T) {
	root := t.TempDir()
	installPackage(t, root, "lodash", "4.17.21")

	l := NewLocator(root, nil)
	meta := l.Locate(context.Background(), "lodash", root)
	if meta == nil {
		t.Fatal("Locate returned nil for installed package")
	}
	if meta.Name != "lodash" || meta.Version != "4.17.21" {
		t.Errorf("meta = %s@%s", meta.Name, meta.Version)
	}
	if meta.Path == "" {
		t.Error("local result should carry the manifest path")
	}
}

func TestLocatePrefersNearestInstall(t *testing.T) {
	// The same package installed at two levels: the copy nearest to the
	// starting directory wins.
	root := t.TempDir()
	installPackage(t, root, "debug", "4.0.0")

	appDir := filepath.Join(root, "packages", "app")
	installPackage(t, appDir, "debug", "3.0.0")

	l := NewLocator(root, nil)
	meta := l.Locate(context.Background(), "debug", appDir)
	if meta == nil {
		t.Fatal("Locate returned nil")
	}
	if meta.Version != "3.0.0" {
		t.Errorf("Version = %s, want the nested 3.0.0", meta.Version)
	}
}

func TestLocateHoistedFromNestedStart(t *testing.T) {
	// Dependency declared in a workspace member but hoisted to the root.
	root := t.TempDir()
	installPackage(t, root, "react", "18.2.0")

	appDir := filepath.Join(root, "packages", "app")
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		t.Fatal(err)
	}

	l := NewLocator(root, nil)
	meta := l.Locate(context.Background(), "react", appDir)
	if meta == nil {
		t.Fatal("Locate returned nil for hoisted package")
	}
	if meta.Version != "18.2.0" {
		t.Errorf("Version = %s", meta.Version)
	}
}

func TestLocateScopedPackage(t *testing.T) {
	root := t.TempDir()
	installPackage(t, root, "@acme/utils", "2.1.0")

	l := NewLocator(root, nil)
	meta := l.Locate(context.Background(), "@acme/utils", root)
	if meta == nil {
		t.Fatal("Locate returned nil for scoped package")
	}
	if meta.Name != "@acme/utils" {
		t.Errorf("Name = %s", meta.Name)
	}
}

func TestLocateThroughSymlink(t *testing.T) {
	// pnpm-style layout: node_modules/<name> is a symlink into the store.
	root := t.TempDir()
	storeDir := filepath.Join(root, "node_modules", ".pnpm", "foo@1.0.0", "node_modules", "foo")
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{"name": "foo", "version": "1.0.0"}`
	if err := os.WriteFile(filepath.Join(storeDir, "package.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	link := filepath.Join(root, "node_modules", "foo")
	if err := os.Symlink(storeDir, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	l := NewLocator(root, nil)
	meta := l.Locate(context.Background(), "foo", root)
	if meta == nil {
		t.Fatal("Locate returned nil through symlink")
	}
	if meta.Version != "1.0.0" {
		t.Errorf("Version = %s", meta.Version)
	}
	// Path should point into the resolved store directory
	if resolved, err := filepath.EvalSymlinks(meta.Path); err != nil || resolved != meta.Path {
		t.Errorf("Path should be symlink-resolved: %s", meta.Path)
	}
}

func TestLocatePnpmStoreWithoutLink(t *testing.T) {
	// Package present only in the content-addressed store.
	root := t.TempDir()
	storeDir := filepath.Join(root, "node_modules", ".pnpm", "bar@2.0.0", "node_modules", "bar")
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{"name": "bar", "version": "2.0.0"}`
	if err := os.WriteFile(filepath.Join(storeDir, "package.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLocator(root, nil)
	meta := l.Locate(context.Background(), "bar", root)
	if meta == nil {
		t.Fatal("Locate returned nil for store-only package")
	}
	if meta.Version != "2.0.0" {
		t.Errorf("Version = %s", meta.Version)
	}
}

func TestLocateSelfManifest(t *testing.T) {
	// Looking up the project by its own name from inside the project.
	root := t.TempDir()
	content := `{"name": "@acme/app", "version": "0.1.0"}`
	if err := os.WriteFile(filepath.Join(root, "package.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	srcDir := filepath.Join(root, "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatal(err)
	}

	l := NewLocator(root, nil)
	meta := l.Locate(context.Background(), "@acme/app", srcDir)
	if meta == nil {
		t.Fatal("Locate returned nil for own manifest one level up")
	}
	if meta.Version != "0.1.0" {
		t.Errorf("Version = %s", meta.Version)
	}
}

func TestLocateOneLevelBoundOnly(t *testing.T) {
	// The upward manifest search checks exactly one level, not a full walk.
	root := t.TempDir()
	content := `{"name": "@acme/app", "version": "0.1.0"}`
	if err := os.WriteFile(filepath.Join(root, "package.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "src", "components")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	l := NewLocator(root, nil)
	if meta := l.Locate(context.Background(), "@acme/app", deep); meta != nil {
		t.Errorf("manifest two levels up must not match, got %s", meta.Name)
	}
}

func TestLocateSkipsProbeForTypesPackages(t *testing.T) {
	// An @types package findable only by the upward probe must not be
	// found: the probe is skipped for @types/* names.
	root := t.TempDir()
	nested := filepath.Join(root, "packages", "app")
	installPackage(t, nested, "@types/node", "20.1.0")

	l := NewLocator(root, nil)
	deepStart := filepath.Join(nested, "src")
	if err := os.MkdirAll(deepStart, 0o755); err != nil {
		t.Fatal(err)
	}
	if meta := l.Locate(context.Background(), "@types/node", deepStart); meta != nil {
		t.Errorf("probe should be skipped for @types names, got %s@%s", meta.Name, meta.Version)
	}

	// The workspace-root fallback still finds @types packages.
	installPackage(t, root, "@types/node", "20.2.0")
	meta := l.Locate(context.Background(), "@types/node", deepStart)
	if meta == nil {
		t.Fatal("workspace-root fallback should find @types package")
	}
	if meta.Version != "20.2.0" {
		t.Errorf("Version = %s, want the root copy", meta.Version)
	}
}

func TestLocateRegistryFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/left-pad" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{
			"name": "left-pad",
			"dist-tags": {"latest": "1.3.0"},
			"versions": {"1.3.0": {"name": "left-pad", "version": "1.3.0", "description": "pads left"}}
		}`))
	}))
	defer server.Close()

	reg := registry.NewClient(cache.NewMemoryCache(), server.URL, time.Hour)
	root := t.TempDir()

	l := NewLocator(root, reg)
	meta := l.Locate(context.Background(), "left-pad", root)
	if meta == nil {
		t.Fatal("registry fallback should return metadata")
	}
	if meta.Version != "1.3.0" {
		t.Errorf("Version = %s", meta.Version)
	}
	if meta.Path != "" {
		t.Errorf("registry result must not carry a local path: %s", meta.Path)
	}
}

func TestLocateNothingFound(t *testing.T) {
	l := NewLocator(t.TempDir(), nil)
	if meta := l.Locate(context.Background(), "ghost", t.TempDir()); meta != nil {
		t.Errorf("expected nil, got %+v", meta)
	}
}
