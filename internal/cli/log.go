// Package cli implements the pkglens command-line interface.
//
// This package provides commands for inspecting a JavaScript project's
// dependency tree, looking up registry metadata, and installing or
// removing packages through the project's own package manager. The CLI
// is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - tree: Print the dependency tree of a project
//   - browse: Explore the tree interactively
//   - add / remove: Install and remove packages
//   - info / search / outdated: Registry metadata lookups
//   - export: Emit the graph as DOT or SVG
//   - serve: Expose the tree and commands over HTTP
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. User
// output goes to stdout through lipgloss-styled printers; the logger
// writes diagnostics to stderr so piped output stays clean.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with
// elapsed duration. Timing goes to the debug channel so it only shows up
// under --verbose. It is safe for sequential use by a single goroutine.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
// The returned progress should call done when the operation completes.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// The duration is rounded to the nearest millisecond.
// Example output: "Checked 42 packages (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Debugf("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
