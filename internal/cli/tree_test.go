package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkglens/pkglens/pkg/manifest"
	"github.com/pkglens/pkglens/pkg/tree"
)

func writeTreeFixture(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWriteTreeJSON(t *testing.T) {
	root := t.TempDir()
	writeTreeFixture(t, filepath.Join(root, "package.json"), `{
		"name": "app",
		"dependencies": {"react": "^18.2.0"},
		"devDependencies": {"vitest": "^1.0.0"}
	}`)
	writeTreeFixture(t, filepath.Join(root, "node_modules", "react", "package.json"), `{
		"name": "react",
		"version": "18.2.0",
		"dependencies": {"scheduler": "^0.23.0"}
	}`)

	model := tree.NewModel(root)
	mf, err := manifest.Load(model.ManifestPath())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := writeTreeJSON(&buf, model, mf, 2); err != nil {
		t.Fatal(err)
	}

	var doc treeDocJSON
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}

	if doc.Name != "app" {
		t.Errorf("name = %q, want %q", doc.Name, "app")
	}
	if doc.Manifest != mf.Path {
		t.Errorf("manifest = %q, want %q", doc.Manifest, mf.Path)
	}
	if len(doc.Packages) != 2 {
		t.Fatalf("packages = %d, want 2", len(doc.Packages))
	}

	react := doc.Packages[0]
	if react.Name != "react" || !react.Installed || react.Kind != "dependencies" {
		t.Errorf("first package = %+v", react)
	}
	if react.Range != "^18.2.0" {
		t.Errorf("range = %q", react.Range)
	}
	if len(react.Dependencies) != 1 || react.Dependencies[0].Name != "scheduler" {
		t.Errorf("react dependencies = %+v", react.Dependencies)
	}
	if react.Dependencies[0].Installed {
		t.Error("scheduler has no installed copy, should not be marked installed")
	}

	vitest := doc.Packages[1]
	if vitest.Name != "vitest" || vitest.Installed || vitest.Kind != "dev" {
		t.Errorf("second package = %+v", vitest)
	}
}

func TestWriteTreeJSONDepthOne(t *testing.T) {
	root := t.TempDir()
	writeTreeFixture(t, filepath.Join(root, "package.json"), `{
		"name": "app",
		"dependencies": {"react": "^18.2.0"}
	}`)
	writeTreeFixture(t, filepath.Join(root, "node_modules", "react", "package.json"), `{
		"name": "react",
		"version": "18.2.0",
		"dependencies": {"scheduler": "^0.23.0"}
	}`)

	model := tree.NewModel(root)
	mf, err := manifest.Load(model.ManifestPath())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := writeTreeJSON(&buf, model, mf, 1); err != nil {
		t.Fatal(err)
	}

	var doc treeDocJSON
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Packages) != 1 {
		t.Fatalf("packages = %d, want 1", len(doc.Packages))
	}
	if doc.Packages[0].Dependencies != nil {
		t.Errorf("depth 1 should not expand children, got %+v", doc.Packages[0].Dependencies)
	}
}
