package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pkglens/pkglens/pkg/cache"
	"github.com/pkglens/pkglens/pkg/errors"
	"github.com/pkglens/pkglens/pkg/pm"
	"github.com/pkglens/pkglens/pkg/registry"
)

// infoCommand creates the info command for package metadata.
func (c *CLI) infoCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "info <package> [dir]",
		Short: "Show metadata for a package",
		Long: `Show metadata for a package.

Metadata comes from the installed copy when the package is present in
node_modules, falling back to the npm registry otherwise. Use --refresh
to bypass both and fetch the latest registry document.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInfo(cmd.Context(), args[0], dirArg(args, 1), refresh)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch fresh metadata from the registry")

	return cmd
}

// runInfo resolves metadata locally or from the registry and prints it.
func (c *CLI) runInfo(ctx context.Context, name, dir string, refresh bool) error {
	if err := errors.ValidateNpmPackageName(name); err != nil {
		return err
	}

	ws, err := c.newWorkspace(ctx, dir)
	if err != nil {
		return err
	}
	defer ws.Close()

	var meta *registry.PackageMetadata
	if refresh {
		meta, err = ws.registry.Metadata(ctx, name, true)
		if err != nil && !cache.IsNotFound(err) {
			return err
		}
	} else {
		meta = ws.locator.Locate(ctx, name, ws.root)
	}
	if meta == nil {
		printWarning("No information found for %s", name)
		return nil
	}

	fmt.Println(StyleTitle.Render(meta.Name) + " " + StyleNumber.Render(meta.Version))
	if meta.Deprecated != "" {
		printWarning("Deprecated: %s", meta.Deprecated)
	}
	printNewline()

	if meta.Description != "" {
		printKeyValue("Description", meta.Description)
	}
	if len(meta.Keywords) > 0 {
		printKeyValue("Keywords", strings.Join(meta.Keywords, ", "))
	}
	if meta.Author != "" {
		printKeyValue("Author", meta.Author)
	}
	if meta.License != "" {
		printKeyValue("License", meta.License)
	}
	if meta.Homepage != "" {
		printKeyValue("Homepage", StyleLink.Render(meta.Homepage))
	}
	if meta.Repository != "" {
		printKeyValue("Repository", StyleLink.Render(meta.Repository))
	}
	if meta.Bugs != "" {
		printKeyValue("Bugs", StyleLink.Render(meta.Bugs))
	}
	if meta.Latest != "" && meta.Latest != meta.Version {
		printKeyValue("Latest", styleIconWarning.Render(iconOutdated)+" "+meta.Latest)
	}

	if n := len(meta.Dependencies) + len(meta.DevDependencies) + len(meta.PeerDependencies); n > 0 {
		printKeyValue("Dependencies", fmt.Sprintf("%d deps · %d dev · %d peer",
			len(meta.Dependencies), len(meta.DevDependencies), len(meta.PeerDependencies)))
	}

	if !pm.IsTypesPackage(name) {
		if ok, err := ws.registry.HasTypes(ctx, name); err == nil && ok {
			printKeyValue("Types", StyleSuccess.Render(pm.TypesCompanion(name)))
		}
	}

	printNewline()
	printSource(meta.Path != "")
	if meta.Path != "" {
		printFile(meta.Path)
	}
	return nil
}
