package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkglens/pkglens/pkg/errors"
	"github.com/pkglens/pkglens/pkg/manifest"
	"github.com/pkglens/pkglens/pkg/pm"
)

// removeCommand creates the remove command for uninstalling packages.
func (c *CLI) removeCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <package> [dir]",
		Short: "Remove a package with the project's package manager",
		Long: `Remove a package with the project's package manager.

When the manifest also declares the @types companion, both are removed
in one command line. Removal asks for confirmation unless --yes is
given.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRemove(cmd.Context(), cmd.InOrStdin(), args[0], dirArg(args, 1), yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

// runRemove checks the manifest, confirms, and runs the removal.
func (c *CLI) runRemove(ctx context.Context, in io.Reader, name, dir string, yes bool) error {
	if err := errors.ValidateNpmPackageName(name); err != nil {
		return err
	}

	ws, err := c.newWorkspace(ctx, dir)
	if err != nil {
		return err
	}
	defer ws.Close()

	hasTypes := false
	mf, err := manifest.Load(filepath.Join(ws.root, manifest.Filename))
	switch {
	case err != nil:
		printWarning("Could not read %s: %v", manifest.Filename, err)
	case !mf.Has(name):
		printWarning("%s is not declared in %s", name, mf.Path)
	default:
		if !pm.IsTypesPackage(name) {
			hasTypes = mf.Has(pm.TypesCompanion(name))
		}
	}

	if !yes && !confirm(in, fmt.Sprintf("Remove %s?", name)) {
		printInfo("Aborted")
		return nil
	}

	manager := ws.manager()
	command := pm.BuildRemove(manager, name, hasTypes)
	printCommand(command)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Removing %s...", name))
	spinner.Start()

	res, err := ws.executor.Run(ctx, manager, ws.root, command)
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return err
		}
		spinner.StopWithError(fmt.Sprintf("Remove failed (exit %d)", res.ExitCode))
		printOutputTail(res.Output)
		return err
	}
	if res.TimedOut {
		spinner.StopWithWarning(fmt.Sprintf("Timed out after %s, removal may still be running", ws.executor.Timeout()))
		return nil
	}

	spinner.StopWithSuccess(fmt.Sprintf("Removed %s", name))
	if hasTypes {
		printDetail("with %s", pm.TypesCompanion(name))
	}
	printDetail("%s · %s", manager, res.Duration.Round(time.Millisecond))
	return nil
}

// confirm prompts and reads a yes/no answer from in.
func confirm(in io.Reader, prompt string) bool {
	fmt.Print(prompt + " [y/N] ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
