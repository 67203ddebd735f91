package pm

import (
	"context"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/pkglens/pkglens/pkg/errors"
	"github.com/pkglens/pkglens/pkg/observability"
)

// DefaultTimeout bounds a single package-manager command.
const DefaultTimeout = 5 * time.Minute

// Result describes one finished command execution.
type Result struct {
	ID       uuid.UUID     // operation id, used in logs and hooks
	Command  string        // exact line handed to the shell
	Dir      string        // working directory
	ExitCode int           // -1 when the process did not exit normally
	TimedOut bool          // deadline elapsed; process state unknown
	Output   string        // combined stdout and stderr
	Duration time.Duration
}

// Success reports whether the command ran to completion with exit code 0.
func (r *Result) Success() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// Executor runs package-manager command lines through the system shell.
//
// Executions are bounded by a fixed timeout. When the deadline passes,
// the operation is treated as complete: the result reports TimedOut with
// no error, and the process is killed via the context. Concurrent calls
// are not serialized; overlapping installs into the same project are the
// caller's concern.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an executor with the given per-command timeout.
// A non-positive timeout selects DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Timeout returns the per-command timeout.
func (e *Executor) Timeout() time.Duration { return e.timeout }

// Run executes command in dir and captures its combined output.
// A non-zero exit returns the populated result alongside a
// COMMAND_FAILED error so callers can show output and classify the
// failure in one place.
func (e *Executor) Run(ctx context.Context, manager Kind, dir, command string) (*Result, error) {
	res := &Result{
		ID:       uuid.New(),
		Command:  command,
		Dir:      dir,
		ExitCode: -1,
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	observability.Command().OnCommandStart(ctx, manager.String(), command)
	start := time.Now()

	cmd := shellCommand(cctx, command)
	cmd.Dir = dir
	out, runErr := cmd.CombinedOutput()

	res.Duration = time.Since(start)
	res.Output = string(out)
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case cctx.Err() == context.DeadlineExceeded:
		// Treated as complete: the caller gets a result, not an error
		res.TimedOut = true
		observability.Command().OnCommandTimeout(ctx, manager.String(), command, e.timeout)
		return res, nil

	case ctx.Err() != nil:
		observability.Command().OnCommandComplete(ctx, manager.String(), command, res.ExitCode, res.Duration, ctx.Err())
		return res, ctx.Err()

	case runErr == nil:
		res.ExitCode = 0
		observability.Command().OnCommandComplete(ctx, manager.String(), command, 0, res.Duration, nil)
		return res, nil
	}

	var err error
	if _, ok := runErr.(*exec.ExitError); ok {
		err = errors.New(errors.ErrCodeCommandFailed, "%s exited with code %d", command, res.ExitCode)
	} else {
		err = errors.Wrap(errors.ErrCodeCommandFailed, runErr, "run %s", command)
	}
	observability.Command().OnCommandComplete(ctx, manager.String(), command, res.ExitCode, res.Duration, err)
	return res, err
}

// shellCommand wraps a command line for the platform shell. The line may
// contain "&&" chains, so it cannot be exec'd directly.
func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}
