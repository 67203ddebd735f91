package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pkglens/pkglens/pkg/errors"
	"github.com/pkglens/pkglens/pkg/manifest"
)

// openCommand creates the open command for jumping to a package.
func (c *CLI) openCommand() *cobra.Command {
	var web bool

	cmd := &cobra.Command{
		Use:   "open <package> [dir]",
		Short: "Locate a package's declaration or open its registry page",
		Long: `Locate a package's declaration or open its registry page.

By default the declaring line in package.json is printed, falling back
to the installed copy under node_modules. With --registry the package
page on the registry website opens in the browser instead.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOpen(cmd.Context(), args[0], dirArg(args, 1), web)
		},
	}

	cmd.Flags().BoolVar(&web, "registry", false, "open the registry web page")

	return cmd
}

// runOpen resolves the requested location and reports or opens it.
func (c *CLI) runOpen(ctx context.Context, name, dir string, web bool) error {
	if err := errors.ValidateNpmPackageName(name); err != nil {
		return err
	}

	ws, err := c.newWorkspace(ctx, dir)
	if err != nil {
		return err
	}
	defer ws.Close()

	if web {
		pageURL := strings.TrimRight(ws.cfg.Registry.WebURL, "/") + "/" + name
		printKeyValue("URL", StyleLink.Render(pageURL))
		if err := openBrowser(pageURL); err != nil {
			printDetail("Copy the URL above and paste it in your browser")
			return nil
		}
		printDetail("Opening browser...")
		return nil
	}

	if mf, err := manifest.Load(filepath.Join(ws.root, manifest.Filename)); err == nil {
		if dep, ok := mf.Lookup(name); ok {
			loc := mf.Path
			if line := declarationLine(mf.Path, name); line > 0 {
				loc = fmt.Sprintf("%s:%d", mf.Path, line)
			}
			printSuccess("%s is declared in %s", name, mf.DisplayName())
			printFile(loc)
			printKeyValue("Declared", StyleHighlight.Render(dep.Spec))
			printKeyValue("Group", dep.Kind.Label())
			return nil
		}
	}

	if meta := ws.locator.Locate(ctx, name, ws.root); meta != nil && meta.Path != "" {
		printInfo("%s is not declared here, but an installed copy exists", name)
		printFile(meta.Path)
		return nil
	}

	printWarning("No declaration or installed copy found for %s", name)
	return nil
}

// declarationLine scans a manifest for the line declaring name as a
// dependency key. Returns the 1-based line number, 0 when not found.
func declarationLine(path, name string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	needle := `"` + name + `"`
	for i, line := range strings.Split(string(data), "\n") {
		idx := strings.Index(line, needle)
		if idx < 0 {
			continue
		}
		rest := strings.TrimLeft(line[idx+len(needle):], " \t")
		if strings.HasPrefix(rest, ":") {
			return i + 1
		}
	}
	return 0
}

// openBrowser opens rawURL with the platform opener.
func openBrowser(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "linux":
		cmd = exec.Command("xdg-open", rawURL)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", rawURL)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
