package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkglens/pkglens/pkg/errors"
	"github.com/pkglens/pkglens/pkg/manifest"
	"github.com/pkglens/pkglens/pkg/render"
	"github.com/pkglens/pkglens/pkg/tree"
)

// exportCommand creates the export command for graph output.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		output   string
		format   string
		depth    int
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Export the dependency graph as DOT or SVG",
		Long: `Export the dependency graph as DOT or SVG.

The graph is rooted at the project manifest and expands installed
packages up to --depth levels. DOT output goes to stdout unless
--output is set; SVG rendering always writes a file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateExportFormat(format); err != nil {
				return err
			}
			return c.runExport(cmd.Context(), dirArg(args, 0), output, format, depth, detailed)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout for dot)")
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot, svg")
	cmd.Flags().IntVar(&depth, "depth", render.DefaultDepth, "levels of dependencies to include")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include declared ranges in node labels")

	return cmd
}

// validateExportFormat checks the --format value.
func validateExportFormat(format string) error {
	switch format {
	case "dot", "svg":
		return nil
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q (want dot or svg)", format)
	}
}

// runExport generates the graph and writes it out.
func (c *CLI) runExport(ctx context.Context, dir, output, format string, depth int, detailed bool) error {
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

	dot := render.ToDOT(model, render.Options{Depth: depth, Detailed: detailed})

	if format == "dot" {
		if output == "" {
			fmt.Print(dot)
			return nil
		}
		if err := os.WriteFile(output, []byte(dot), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		printSuccess("Exported DOT graph")
		printFile(output)
		return nil
	}

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Rendering SVG...")
	spinner.Start()

	svg, err := render.ToSVG(ctx, dot)
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return err
		}
		spinner.StopWithError("Rendering failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Rendered %d bytes of SVG", len(svg)))

	if output == "" {
		output = "dependencies.svg"
	}
	if err := os.WriteFile(output, svg, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printSuccess("Exported SVG graph")
	printFile(output)
	return nil
}
