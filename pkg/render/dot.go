package render

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/pkglens/pkglens/pkg/errors"
	"github.com/pkglens/pkglens/pkg/manifest"
	"github.com/pkglens/pkglens/pkg/tree"
)

// DefaultDepth bounds expansion when Options.Depth is not set.
const DefaultDepth = 4

// projectRoot is the virtual node the manifest's own groups hang off.
const projectRoot = "__project__"

// Options configures DOT generation.
type Options struct {
	// Depth is the maximum expansion depth; roots are depth 1.
	// Zero or negative means DefaultDepth.
	Depth int
	// Detailed adds the declared version range to node labels.
	Detailed bool
}

// ToDOT walks the tree model into Graphviz DOT. Installed packages that
// appear at the same filesystem location are emitted once and share
// incoming edges; uninstalled dependencies render dashed. The resulting
// DOT string can be rendered with [ToSVG].
func ToDOT(m *tree.Model, opts Options) string {
	depth := opts.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}

	var buf bytes.Buffer
	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.15,0.08\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,filled,bold\", fillcolor=lightgrey];\n",
		projectRoot, projectLabel(m))

	w := &walker{model: m, buf: &buf, opts: opts, emitted: make(map[string]bool)}
	for _, n := range m.Roots() {
		id := w.emit(n)
		fmt.Fprintf(&buf, "  %q -> %q%s;\n", projectRoot, id, edgeAttrs(n.Kind))
		w.walk(n, 1, depth)
	}

	buf.WriteString("}\n")
	return buf.String()
}

type walker struct {
	model   *tree.Model
	buf     *bytes.Buffer
	opts    Options
	emitted map[string]bool
}

func (w *walker) walk(n tree.Node, depth, limit int) {
	if depth >= limit || !n.Installed {
		return
	}
	from := nodeID(n)
	for _, child := range w.model.Children(n) {
		id := nodeID(child)
		seen := w.emitted[id]
		w.emit(child)
		fmt.Fprintf(w.buf, "  %q -> %q%s;\n", from, id, edgeAttrs(child.Kind))
		if !seen {
			w.walk(child, depth+1, limit)
		}
	}
}

func (w *walker) emit(n tree.Node) string {
	id := nodeID(n)
	if w.emitted[id] {
		return id
	}
	w.emitted[id] = true
	fmt.Fprintf(w.buf, "  %q [%s];\n", id, strings.Join(nodeAttrs(n, w.opts.Detailed), ", "))
	return id
}

// nodeID keys a node by the install location it resolves to, so the
// same physical package collapses into one DOT node.
func nodeID(n tree.Node) string {
	return filepath.ToSlash(n.InstalledDir())
}

func nodeAttrs(n tree.Node, detailed bool) []string {
	label := n.Name
	if detailed && n.VersionRange != "" {
		label = n.Name + "\n" + n.VersionRange
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case !n.Installed:
		attrs = append(attrs, `style="rounded,dashed"`, "fontcolor=gray40", "color=gray40")
	case n.Kind == manifest.KindDev:
		attrs = append(attrs, "fillcolor=lightcyan")
	case n.Kind == manifest.KindPeer:
		attrs = append(attrs, "fillcolor=lightyellow")
	}
	return attrs
}

func edgeAttrs(kind manifest.Kind) string {
	switch kind {
	case manifest.KindPeer:
		return " [style=dashed]"
	case manifest.KindDev:
		return " [color=gray50]"
	default:
		return ""
	}
}

func projectLabel(m *tree.Model) string {
	path := m.ManifestPath()
	if path == "" {
		return "(no manifest)"
	}
	mf, err := manifest.Load(path)
	if err != nil {
		return filepath.Base(filepath.Dir(path))
	}
	return mf.DisplayName()
}

// ToSVG renders a DOT graph to SVG using Graphviz.
func ToSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render SVG")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the svg element to a zero-origin viewBox
// with explicit pixel dimensions, which embeds cleanly in web views.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
