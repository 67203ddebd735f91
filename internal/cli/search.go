package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the registry for packages",
		Long: `Search the registry for packages.

Results come from the registry's full-text search endpoint, ordered by
its relevance score.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd.Context(), args[0], size)
		},
	}

	cmd.Flags().IntVarP(&size, "size", "n", 0, "number of results (default from config)")

	return cmd
}

// runSearch queries the registry and prints the hits.
func (c *CLI) runSearch(ctx context.Context, query string, size int) error {
	ws, err := c.newWorkspace(ctx, ".")
	if err != nil {
		return err
	}
	defer ws.Close()

	if size <= 0 {
		size = ws.cfg.Search.Size
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Searching for %q...", query))
	spinner.Start()

	results, err := ws.registry.Search(ctx, query, size)
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return err
		}
		spinner.StopWithError("Search failed")
		return err
	}
	spinner.Stop()

	if len(results) == 0 {
		printInfo("No packages match %q", query)
		return nil
	}

	fmt.Println(StyleTitle.Render(fmt.Sprintf("Results for %q", query)))
	printNewline()
	for _, r := range results {
		line := "  " + StyleValue.Render(r.Name)
		if r.Version != "" {
			line += " " + StyleDim.Render(r.Version)
		}
		if r.Publisher != "" {
			line += " " + StyleDim.Render("by "+r.Publisher)
		}
		fmt.Println(line)
		if r.Description != "" {
			printDetail("%s", truncate(r.Description, 72))
		}
	}
	printNewline()
	printDetail("%d results", len(results))
	printNextStep("Install one", appName+" add <package>")
	return nil
}
