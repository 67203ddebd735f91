package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkglens/pkglens/internal/api"
	"github.com/pkglens/pkglens/pkg/tree"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve the dependency tree over HTTP",
		Long: `Serve the dependency tree over HTTP.

The API exposes the tree, package metadata, registry search, and
install/remove operations for the project, so editors and other tools
can drive pkglens remotely.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), dirArg(args, 0), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

// runServe assembles the server and runs it until the context ends.
func (c *CLI) runServe(ctx context.Context, dir, addr string) error {
	ws, err := c.newWorkspace(ctx, dir)
	if err != nil {
		return err
	}
	defer ws.Close()

	if addr == "" {
		addr = ws.cfg.Serve.Addr
	}

	model := tree.NewModel(ws.root)
	model.SetMetadataProvider(ws.locator)
	model.SetVisible(true)
	defer model.SetVisible(false)

	server := api.NewServer(api.Config{
		Root:       ws.root,
		Logger:     c.Logger,
		Model:      model,
		Locator:    ws.locator,
		Registry:   ws.registry,
		Detector:   ws.detector,
		Executor:   ws.executor,
		Override:   ws.override,
		SearchSize: ws.cfg.Search.Size,
	})

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	c.Logger.Info("Serving", "addr", addr, "root", ws.root)
	printSuccess("Listening on %s", addr)
	printDetail("Root: %s", ws.root)
	printDetail("Press Ctrl+C to stop")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		printNewline()
		printInfo("Server stopped")
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}
