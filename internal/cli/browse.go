package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pkglens/pkglens/pkg/manifest"
	"github.com/pkglens/pkglens/pkg/registry"
	"github.com/pkglens/pkglens/pkg/tree"
)

// browseCommand creates the browse command for the interactive tree.
func (c *CLI) browseCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "browse [dir]",
		Short: "Browse the dependency tree interactively",
		Long: `Browse the dependency tree interactively.

Navigate declared dependencies with the arrow keys, expand installed
packages into their own dependencies, and inspect registry metadata
without leaving the terminal.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBrowse(cmd.Context(), dirArg(args, 0), file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "select the manifest nearest this file")

	return cmd
}

// runBrowse wires the tree model to the TUI and runs it.
func (c *CLI) runBrowse(ctx context.Context, dir, file string) error {
	ws, err := c.newWorkspace(ctx, dir)
	if err != nil {
		return err
	}
	defer ws.Close()

	model := tree.NewModel(ws.root)
	if file != "" {
		model.SetActiveFile(file)
	}
	if model.ManifestPath() == "" {
		printWarning("No %s found under %s", manifest.Filename, ws.root)
		return nil
	}
	model.SetMetadataProvider(ws.locator)
	model.SetVisible(true)
	defer model.SetVisible(false)

	title := appName
	if mf, err := manifest.Load(model.ManifestPath()); err == nil {
		title = mf.DisplayName()
	}

	p := tea.NewProgram(newBrowseModel(model, title))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	return nil
}

// =============================================================================
// browseModel - Interactive dependency tree
// =============================================================================

// browseRow is one visible line of the flattened tree.
type browseRow struct {
	node  tree.Node
	depth int
}

// browseDetailMsg delivers metadata fetched for the inspected row.
type browseDetailMsg struct {
	key  string
	meta *registry.PackageMetadata
}

// browseModel is the bubbletea model for the dependency browser.
type browseModel struct {
	model    *tree.Model
	title    string
	rows     []browseRow
	expanded map[string]bool
	cursor   int
	offset   int
	height   int
	width    int

	showDetail    bool
	loadingDetail bool
	detail        *registry.PackageMetadata
	detailFor     string
	status        string
}

// newBrowseModel creates a browser over the given tree model.
func newBrowseModel(model *tree.Model, title string) browseModel {
	m := browseModel{
		model:    model,
		title:    title,
		expanded: make(map[string]bool),
		height:   15,
	}
	m.rows = flattenTree(model, m.expanded)
	return m
}

// rowKey identifies a node by its coordinates in the tree.
func rowKey(n tree.Node) string {
	return n.Dir + "\x00" + n.Name
}

// flattenTree walks the tree into visible rows, descending only into
// expanded nodes.
func flattenTree(model *tree.Model, expanded map[string]bool) []browseRow {
	var rows []browseRow
	var walk func(n tree.Node, depth int)
	walk = func(n tree.Node, depth int) {
		rows = append(rows, browseRow{node: n, depth: depth})
		if expanded[rowKey(n)] {
			for _, child := range model.Children(n) {
				walk(child, depth+1)
			}
		}
	}
	for _, n := range model.Roots() {
		walk(n, 0)
	}
	return rows
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.status = ""
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.showDetail {
				m.showDetail = false
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter", " ", "right", "l":
			if len(m.rows) == 0 {
				break
			}
			row := m.rows[m.cursor]
			if !row.node.Installed {
				m.status = row.node.Name + " is not installed"
				break
			}
			key := rowKey(row.node)
			if m.expanded[key] {
				delete(m.expanded, key)
			} else {
				m.expanded[key] = true
				if len(m.model.Children(row.node)) == 0 {
					m.status = row.node.Name + " has no dependencies"
				}
			}
			m.rows = flattenTree(m.model, m.expanded)
		case "left", "h":
			if len(m.rows) == 0 {
				break
			}
			row := m.rows[m.cursor]
			key := rowKey(row.node)
			if m.expanded[key] {
				delete(m.expanded, key)
				m.rows = flattenTree(m.model, m.expanded)
				break
			}
			for i := m.cursor - 1; i >= 0; i-- {
				if m.rows[i].depth < row.depth {
					m.cursor = i
					if m.cursor < m.offset {
						m.offset = m.cursor
					}
					break
				}
			}
		case "i":
			if len(m.rows) == 0 {
				break
			}
			row := m.rows[m.cursor]
			key := rowKey(row.node)
			if m.showDetail && m.detailFor == key {
				m.showDetail = false
				break
			}
			m.showDetail = true
			if m.detailFor == key && m.detail != nil {
				break
			}
			m.detailFor = key
			m.detail = nil
			m.loadingDetail = true
			return m, fetchDetailCmd(m.model, row.node)
		case "r":
			m.model.Refresh()
			m.rows = flattenTree(m.model, m.expanded)
			if m.cursor >= len(m.rows) {
				m.cursor = len(m.rows) - 1
			}
			if m.cursor < 0 {
				m.cursor = 0
			}
			m.status = "Refreshed"
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height - 6
		if m.height < 5 {
			m.height = 5
		}
	case browseDetailMsg:
		if msg.key == m.detailFor {
			m.detail = msg.meta
			m.loadingDetail = false
		}
	}
	return m, nil
}

// fetchDetailCmd resolves metadata for a node off the update loop.
func fetchDetailCmd(model *tree.Model, n tree.Node) tea.Cmd {
	key := rowKey(n)
	return func() tea.Msg {
		return browseDetailMsg{key: key, meta: model.Metadata(context.Background(), n)}
	}
}

func (m browseModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ expand  i inspect  r refresh  q quit"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(listDimStyle.Render("  No dependencies declared"))
		b.WriteString("\n")
		return b.String()
	}

	end := m.offset + m.height
	if end > len(m.rows) {
		end = len(m.rows)
	}

	for i := m.offset; i < end; i++ {
		row := m.rows[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}

		marker := "  "
		if row.node.Installed {
			if m.expanded[rowKey(row.node)] {
				marker = "▾ "
			} else {
				marker = "▸ "
			}
		}

		indent := strings.Repeat("  ", row.depth)
		if i == m.cursor {
			line := cursor + indent + marker + row.node.Name
			if row.node.VersionRange != "" {
				line += " " + row.node.VersionRange
			}
			if label := row.node.Kind.Label(); label == "dev" || label == "peer" {
				line += " " + label
			}
			if !row.node.Installed {
				line += " (not installed)"
			}
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			line := cursor + indent + listDimStyle.Render(marker)
			if row.node.Installed {
				line += listNormalStyle.Render(row.node.Name)
			} else {
				line += listDimStyle.Render(row.node.Name)
			}
			if row.node.VersionRange != "" {
				line += " " + listDimStyle.Render(row.node.VersionRange)
			}
			if badge := kindBadge(row.node.Kind.Label()); badge != "" {
				line += " " + badge
			}
			if !row.node.Installed {
				line += " " + StyleWarning.Render("(not installed)")
			}
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	if m.showDetail {
		b.WriteString("\n")
		b.WriteString(m.detailView())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	footer := fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.rows))
	if m.status != "" {
		footer += "  " + m.status
	}
	b.WriteString(listDimStyle.Render(footer))

	return b.String()
}

// detailView renders the metadata panel for the inspected row.
func (m browseModel) detailView() string {
	boxWidth := 64
	if m.width > 0 && m.width-4 < boxWidth {
		boxWidth = m.width - 4
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorDim).
		Padding(0, 1).
		Width(boxWidth)

	if m.loadingDetail {
		return box.Render(listDimStyle.Render("Loading metadata..."))
	}
	if m.detail == nil {
		return box.Render(listDimStyle.Render("No metadata available"))
	}

	d := m.detail
	var lines []string
	header := d.Name
	if d.Version != "" {
		header += "@" + d.Version
	}
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(colorWhite).Render(header))
	if d.Deprecated != "" {
		lines = append(lines, StyleWarning.Render("Deprecated: "+d.Deprecated))
	}
	if d.Description != "" {
		lines = append(lines, listNormalStyle.Render(d.Description))
	}
	if d.License != "" {
		lines = append(lines, listDimStyle.Render("License: ")+listNormalStyle.Render(d.License))
	}
	if d.Homepage != "" {
		lines = append(lines, listDimStyle.Render("Homepage: ")+StyleLink.Render(d.Homepage))
	}
	counts := fmt.Sprintf("%d deps · %d dev · %d peer",
		len(d.Dependencies), len(d.DevDependencies), len(d.PeerDependencies))
	lines = append(lines, listDimStyle.Render(counts))

	return box.Render(strings.Join(lines, "\n"))
}
