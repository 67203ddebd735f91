package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkglens/pkglens/pkg/manifest"
	"github.com/pkglens/pkglens/pkg/tree"
)

// treeCommand creates the tree command for printing the dependency tree.
func (c *CLI) treeCommand() *cobra.Command {
	var (
		depth  int
		file   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "tree [dir]",
		Short: "Print the dependency tree of a project",
		Long: `Print the dependency tree of a project.

The tree starts at the project's package.json and expands installed
packages through their node_modules copies. Packages that are declared
but not installed show as leaves marked "(not installed)".

Use --file to select the manifest nearest a specific file instead of
the project root, mirroring what an editor with that file open would
show. Use --depth to expand transitive dependencies.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTree(cmd.Context(), dirArg(args, 0), depth, file, asJSON)
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 1, "dependency levels to print")
	cmd.Flags().StringVar(&file, "file", "", "select the manifest nearest this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the tree as JSON")

	return cmd
}

// runTree resolves the manifest and prints the tree.
func (c *CLI) runTree(ctx context.Context, dir string, depth int, file string, asJSON bool) error {
	ws, err := c.newWorkspace(ctx, dir)
	if err != nil {
		return err
	}
	defer ws.Close()

	model := tree.NewModel(ws.root)
	if file != "" {
		model.SetActiveFile(file)
	}

	path := model.ManifestPath()
	if path == "" {
		printWarning("No %s found under %s", manifest.Filename, ws.root)
		return nil
	}

	mf, err := manifest.Load(path)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	if asJSON {
		return writeTreeJSON(os.Stdout, model, mf, depth)
	}

	fmt.Println(StyleTitle.Render(mf.DisplayName()))
	printDetail("%s", path)
	printNewline()

	roots := model.Roots()
	if len(roots) == 0 {
		printInfo("No dependencies declared")
		return nil
	}

	var stats treeStats
	for i, n := range roots {
		printNode(model, n, "", i == len(roots)-1, depth, &stats)
	}

	printNewline()
	printStats(stats.total, stats.installed)
	printNextStep("Explore interactively", appName+" browse")
	return nil
}

// treeStats accumulates counts across the printed tree.
type treeStats struct {
	total     int
	installed int
}

// printNode prints one node line and recurses into children while depth
// allows. prefix carries the box-drawing columns of the ancestors.
func printNode(m *tree.Model, n tree.Node, prefix string, last bool, depth int, stats *treeStats) {
	stats.total++
	if n.Installed {
		stats.installed++
	}

	connector := "├── "
	childPrefix := prefix + "│   "
	if last {
		connector = "└── "
		childPrefix = prefix + "    "
	}

	name := StyleValue.Render(n.Name)
	if !n.Installed {
		name = StyleDim.Render(n.Name)
	}

	line := prefix + StyleDim.Render(connector) + name
	if n.VersionRange != "" {
		line += " " + StyleDim.Render(n.VersionRange)
	}
	if badge := kindBadge(n.Kind.Label()); badge != "" {
		line += " " + badge
	}
	if !n.Installed {
		line += " " + StyleWarning.Render("(not installed)")
	}
	fmt.Println(line)

	if depth <= 1 {
		return
	}
	children := m.Children(n)
	for i, child := range children {
		printNode(m, child, childPrefix, i == len(children)-1, depth-1, stats)
	}
}

// treeNodeJSON is one package in the JSON tree.
type treeNodeJSON struct {
	Name         string         `json:"name"`
	Range        string         `json:"range,omitempty"`
	Kind         string         `json:"kind,omitempty"`
	Installed    bool           `json:"installed"`
	Dependencies []treeNodeJSON `json:"dependencies,omitempty"`
}

// treeDocJSON is the top-level JSON document.
type treeDocJSON struct {
	Name     string         `json:"name"`
	Manifest string         `json:"manifest"`
	Packages []treeNodeJSON `json:"packages"`
}

// writeTreeJSON emits the tree as indented JSON.
func writeTreeJSON(w io.Writer, m *tree.Model, mf *manifest.Manifest, depth int) error {
	doc := treeDocJSON{
		Name:     mf.DisplayName(),
		Manifest: mf.Path,
	}
	for _, n := range m.Roots() {
		doc.Packages = append(doc.Packages, buildTreeJSON(m, n, depth))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// buildTreeJSON converts a node and its children up to depth levels.
func buildTreeJSON(m *tree.Model, n tree.Node, depth int) treeNodeJSON {
	out := treeNodeJSON{
		Name:      n.Name,
		Range:     n.VersionRange,
		Kind:      n.Kind.Label(),
		Installed: n.Installed,
	}
	if depth <= 1 {
		return out
	}
	for _, child := range m.Children(n) {
		out.Dependencies = append(out.Dependencies, buildTreeJSON(m, child, depth-1))
	}
	return out
}
