package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/pkglens/pkglens/pkg/cache"
	"github.com/pkglens/pkglens/pkg/manifest"
	"github.com/pkglens/pkglens/pkg/registry"
	"github.com/pkglens/pkglens/pkg/tree"
)

// outdatedCommand creates the outdated command for the version report.
func (c *CLI) outdatedCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "outdated [dir]",
		Short: "Compare installed versions against the registry",
		Long: `Compare installed versions against the registry.

Each declared dependency is listed with its declared range, the version
actually installed in node_modules, and the latest published version.
Registry lookups go through the cache; use --refresh to fetch fresh
documents.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOutdated(cmd.Context(), dirArg(args, 0), refresh)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the metadata cache")

	return cmd
}

// outdatedState classifies one row of the report.
type outdatedState int

const (
	stateCurrent outdatedState = iota
	stateOutdated
	stateMissing  // declared but not installed
	stateNotFound // not in the registry
	stateError    // registry lookup failed
)

// outdatedRow is one package line of the report.
type outdatedRow struct {
	name      string
	declared  string
	installed string
	latest    string
	state     outdatedState
}

// runOutdated builds the version report and renders it as a table.
func (c *CLI) runOutdated(ctx context.Context, dir string, refresh bool) error {
	ws, err := c.newWorkspace(ctx, dir)
	if err != nil {
		return err
	}
	defer ws.Close()

	model := tree.NewModel(ws.root)
	if model.ManifestPath() == "" {
		printWarning("No %s found under %s", manifest.Filename, ws.root)
		return nil
	}
	roots := model.Roots()
	if len(roots) == 0 {
		printInfo("No dependencies declared")
		return nil
	}

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Checking versions...")
	spinner.Start()

	rows := make([]outdatedRow, 0, len(roots))
	for _, n := range roots {
		if ctx.Err() != nil {
			spinner.Stop()
			return ctx.Err()
		}
		spinner.UpdateMessage(fmt.Sprintf("Checking %s...", n.Name))

		var latest string
		meta, lookupErr := ws.registry.Metadata(ctx, n.Name, refresh)
		if lookupErr == nil {
			latest = meta.Version
		}
		installed := installedVersion(n)

		rows = append(rows, outdatedRow{
			name:      n.Name,
			declared:  n.VersionRange,
			installed: installed,
			latest:    latest,
			state:     classifyOutdated(n.Installed, installed, latest, lookupErr),
		})
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Checked %d packages", len(rows)))

	printOutdatedTable(rows)

	var outdated, current, missing, failed int
	for _, r := range rows {
		switch r.state {
		case stateOutdated:
			outdated++
		case stateCurrent:
			current++
		case stateMissing:
			missing++
		default:
			failed++
		}
	}
	printNewline()
	line := fmt.Sprintf("%d outdated · %d current", outdated, current)
	if missing > 0 {
		line += fmt.Sprintf(" · %d not installed", missing)
	}
	if failed > 0 {
		line += fmt.Sprintf(" · %d not resolved", failed)
	}
	printDetail("%s", line)
	if outdated > 0 {
		printNextStep("Update a package", appName+" add <package>@<version>")
	}
	return nil
}

// classifyOutdated decides the report state for one dependency.
func classifyOutdated(isInstalled bool, installed, latest string, err error) outdatedState {
	switch {
	case cache.IsNotFound(err):
		return stateNotFound
	case err != nil:
		return stateError
	case !isInstalled || installed == "":
		return stateMissing
	case installed == latest:
		return stateCurrent
	default:
		return stateOutdated
	}
}

// stateIcon returns the styled status icon for a row.
func stateIcon(s outdatedState) string {
	switch s {
	case stateCurrent:
		return styleIconSuccess.Render(iconSuccess)
	case stateOutdated:
		return styleIconWarning.Render(iconOutdated)
	case stateMissing:
		return styleIconWarning.Render(iconWarning)
	default:
		return styleIconError.Render(iconError)
	}
}

// installedVersion reads the version of the installed copy, "" when the
// package is not installed or its manifest cannot be read.
func installedVersion(n tree.Node) string {
	if !n.Installed {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(n.InstalledDir(), manifest.Filename))
	if err != nil {
		return ""
	}
	meta, err := registry.ParsePackageJSON(data)
	if err != nil {
		return ""
	}
	return meta.Version
}

// printOutdatedTable renders the report rows.
func printOutdatedTable(rows []outdatedRow) {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		installed := r.installed
		if installed == "" {
			installed = "—"
		}
		latest := r.latest
		if latest == "" {
			latest = "—"
		}
		cells = append(cells, []string{stateIcon(r.state), r.name, r.declared, installed, latest})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Package", "Declared", "Installed", "Latest").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row >= len(rows) {
				return lipgloss.NewStyle()
			}
			switch rows[row].state {
			case stateOutdated:
				if col == 4 {
					return lipgloss.NewStyle().Foreground(colorYellow)
				}
				return lipgloss.NewStyle().Foreground(colorWhite)
			case stateCurrent:
				return lipgloss.NewStyle().Foreground(colorGray)
			default:
				return lipgloss.NewStyle().Foreground(colorDim)
			}
		})

	fmt.Println(t.Render())
}
