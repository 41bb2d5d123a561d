package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"github.com/specialistvlad/zkparallel/internal/task"
)

// StartGoroutine runs a worker in a goroutine, connected to the returned
// client through a pair of pipes.
func StartGoroutine(ctx context.Context, name string, runner task.Runner) *Client {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	done := make(chan error, 1)

	go func() {
		err := Serve(ctx, runner, reqR, respW)
		_ = respW.CloseWithError(err)
		_ = reqR.Close()
		done <- err
	}()

	return newClient(name, reqW, respR, func() error {
		return <-done
	})
}

// StartProcess launches `path args...` as a worker subprocess speaking the
// protocol on its stdin and stdout. The child's stderr is passed through.
func StartProcess(ctx context.Context, name, path string, args ...string) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("worker", name)

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker process: %w", err)
	}
	logger.Debug("Worker process started.", "pid", cmd.Process.Pid)

	return newClient(name, stdin, stdout, func() error {
		err := cmd.Wait()
		logger.Debug("Worker process exited.", "error", err)
		return err
	}), nil
}
