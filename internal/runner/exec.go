package runner

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
)

// buildCommand wraps a running build tool and ensures the process is
// reaped when the reader is closed. Reads return the child's stdout and
// stderr merged in the order the tool produced them.
type buildCommand struct {
	io.Reader
	cmd       *exec.Cmd
	ctx       context.Context
	exitCode  int
	closeOnce sync.Once
}

// startCommand launches argv with stdout and stderr joined into a single
// pipe. The child runs in its own process group so cancellation can take
// down the whole tool, file watchers and reload servers included.
func startCommand(ctx context.Context, argv []string) (*buildCommand, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("no command given")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// The default cancel signals only the direct child; a shell
		// wrapper's children would keep the pipe open.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	// Both streams share the pipe's write end, so interleaving follows
	// the tool's own write order.
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}

	return &buildCommand{
		Reader: stdout,
		cmd:    cmd,
		ctx:    ctx,
	}, nil
}

// Close waits for the command to complete and records its exit code.
// If the context was canceled the entire process group is killed first,
// so no orphaned watcher processes are left behind. Close is safe for
// concurrent calls; only the first call performs cleanup.
func (c *buildCommand) Close() error {
	c.closeOnce.Do(func() {
		if closer, ok := c.Reader.(io.Closer); ok {
			_ = closer.Close()
		}

		if c.cmd != nil && c.cmd.Process != nil {
			// Capture the PID before Wait invalidates the process state.
			pid := c.cmd.Process.Pid

			if c.ctx != nil && c.ctx.Err() != nil {
				// Negative PID targets the whole group. Errors are
				// ignored; the process may already be gone.
				_ = syscall.Kill(-pid, syscall.SIGKILL)
			}

			err := c.cmd.Wait()
			if err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					c.exitCode = exitErr.ExitCode()
				} else {
					c.exitCode = -1
				}
			}
		}
	})

	return nil
}

// ExitCode returns the child's exit status. Only valid after Close:
// 0 when the tool succeeded, -1 when it was killed or could not be
// waited on, the tool's own code otherwise.
func (c *buildCommand) ExitCode() int {
	return c.exitCode
}
