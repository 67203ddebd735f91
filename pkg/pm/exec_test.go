package pm

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pkglens/pkglens/pkg/errors"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test uses sh semantics")
	}
}

func TestExecutorRunSuccess(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor(0)
	if e.Timeout() != DefaultTimeout {
		t.Errorf("zero timeout should select default, got %v", e.Timeout())
	}

	res, err := e.Run(context.Background(), Npm, t.TempDir(), "echo hello && echo world")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !res.Success() {
		t.Errorf("Success = false: %+v", res)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d", res.ExitCode)
	}
	if !strings.Contains(res.Output, "hello") || !strings.Contains(res.Output, "world") {
		t.Errorf("Output = %q", res.Output)
	}
	if res.ID == uuid.Nil {
		t.Error("Result.ID should be set")
	}
	if res.Duration <= 0 {
		t.Error("Duration should be positive")
	}
}

func TestExecutorRunFailure(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor(time.Minute)

	res, err := e.Run(context.Background(), Yarn, t.TempDir(), "echo oops >&2; exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !errors.Is(err, errors.ErrCodeCommandFailed) {
		t.Errorf("error code = %s, want COMMAND_FAILED", errors.GetCode(err))
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.Success() {
		t.Error("Success should be false")
	}
	if !strings.Contains(res.Output, "oops") {
		t.Errorf("stderr should be captured: %q", res.Output)
	}
}

func TestExecutorRunWorkingDirectory(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	e := NewExecutor(time.Minute)

	res, err := e.Run(context.Background(), Npm, dir, "pwd")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	// MacOS tempdirs may resolve through /private symlinks, compare suffix
	if !strings.Contains(res.Output, dir[strings.LastIndex(dir, "/"):]) {
		t.Errorf("command should run in %s, pwd printed %q", dir, res.Output)
	}
}

func TestExecutorTimeoutTreatedAsComplete(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor(100 * time.Millisecond)

	res, err := e.Run(context.Background(), Npm, t.TempDir(), "sleep 5")
	if err != nil {
		t.Fatalf("timeout must not surface as error: %v", err)
	}
	if !res.TimedOut {
		t.Error("TimedOut should be true")
	}
	if res.Success() {
		t.Error("a timed out run is not a success")
	}
}

func TestExecutorCanceledContext(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, Npm, t.TempDir(), "echo never")
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
