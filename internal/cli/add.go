package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkglens/pkglens/pkg/errors"
	"github.com/pkglens/pkglens/pkg/pm"
)

// addCommand creates the add command for installing packages.
func (c *CLI) addCommand() *cobra.Command {
	var (
		dev  bool
		peer bool
	)

	cmd := &cobra.Command{
		Use:   "add [package[@version]] [dir]",
		Short: "Install a package with the project's package manager",
		Long: `Install a package with the project's package manager.

The manager is detected from the project's lockfile (npm, pnpm, or
yarn). When a @types companion exists for the package, it is installed
alongside as a dev dependency.

With no package argument an interactive registry search opens instead.`,
		Example: `  pkglens add react
  pkglens add lodash@4.17.21 --dev
  pkglens add`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dev && peer {
				return errors.New(errors.ErrCodeInvalidInput, "--dev and --peer are mutually exclusive")
			}
			typ := pm.InstallDefault
			if dev {
				typ = pm.InstallDev
			}
			if peer {
				typ = pm.InstallPeer
			}
			var spec string
			if len(args) > 0 {
				spec = args[0]
			}
			return c.runAdd(cmd.Context(), spec, dirArg(args, 1), typ)
		},
	}

	cmd.Flags().BoolVarP(&dev, "dev", "D", false, "install as a dev dependency")
	cmd.Flags().BoolVar(&peer, "peer", false, "install as a peer dependency")

	return cmd
}

// runAdd resolves the package, builds the install line, and runs it.
func (c *CLI) runAdd(ctx context.Context, spec, dir string, typ pm.InstallType) error {
	ws, err := c.newWorkspace(ctx, dir)
	if err != nil {
		return err
	}
	defer ws.Close()

	var pkg pm.Package
	if spec == "" {
		choice, err := runSearchPicker(ws)
		if err != nil {
			return err
		}
		if choice == nil {
			printInfo("Nothing selected")
			return nil
		}
		pkg = pm.Package{Name: choice.Name}
	} else {
		pkg, err = parsePackageArg(spec)
		if err != nil {
			return err
		}
	}

	manager := ws.manager()
	c.Logger.Debug("Detected package manager", "manager", manager)

	includeTypes := false
	if typ != pm.InstallPeer && !pm.IsTypesPackage(pkg.Name) {
		ok, err := ws.registry.HasTypes(ctx, pkg.Name)
		if err != nil {
			c.Logger.Warnf("Types lookup failed for %s: %v", pkg.Name, err)
		}
		includeTypes = ok
	}

	command := pm.BuildInstall(manager, pkg, typ, includeTypes)
	printCommand(command)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Installing %s...", pkg.Spec()))
	spinner.Start()

	res, err := ws.executor.Run(ctx, manager, ws.root, command)
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return err
		}
		spinner.StopWithError(fmt.Sprintf("Install failed (exit %d)", res.ExitCode))
		printOutputTail(res.Output)
		return err
	}
	if res.TimedOut {
		spinner.StopWithWarning(fmt.Sprintf("Timed out after %s, install may still be running", ws.executor.Timeout()))
		return nil
	}

	spinner.StopWithSuccess(fmt.Sprintf("Installed %s", pkg.Spec()))
	if includeTypes {
		printDetail("with %s", pm.TypesCompanion(pkg.Name))
	}
	printDetail("%s · %s", manager, res.Duration.Round(time.Millisecond))
	return nil
}

// parsePackageArg splits a "name@version" argument. The version part is
// optional, and scoped names keep their leading @.
func parsePackageArg(arg string) (pm.Package, error) {
	name, version := arg, ""
	if i := strings.LastIndex(arg, "@"); i > 0 {
		name, version = arg[:i], arg[i+1:]
	}
	if err := errors.ValidateNpmPackageName(name); err != nil {
		return pm.Package{}, err
	}
	if err := errors.ValidateVersionSpec(version); err != nil {
		return pm.Package{}, err
	}
	return pm.Package{Name: name, Version: version}, nil
}
