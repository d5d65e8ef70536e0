package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/foxseedlab/jimaku/internal/process"
)

type ExecRunner struct{}

func NewExecRunner() process.Runner {
	return &ExecRunner{}
}

// Spawn starts the command with its own stdout/stderr pipes. Reaping the process must not
// close the read ends; the pipeline drains them after exit.
func (r *ExecRunner) Spawn(_ context.Context, c process.Command) (process.Handle, error) {
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdoutR.Close()
		_ = stdoutW.Close()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	cmd := exec.Command(c.Name, c.Args...)
	cmd.Stdin = c.Stdin
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW)
		return nil, fmt.Errorf("start %s: %w", c.Name, err)
	}
	// The child holds its own copies of the write ends.
	closeAll(stdoutW, stderrW)

	h := &execHandle{
		cmd:    cmd,
		stdout: stdoutR,
		stderr: stderrR,
		exited: make(chan struct{}),
	}
	go h.wait()
	slog.Debug("process spawned", "command", c.Name, "pid", cmd.Process.Pid)
	return h, nil
}

type execHandle struct {
	cmd    *exec.Cmd
	stdout *os.File
	stderr *os.File

	exited  chan struct{}
	waitErr error

	closeOnce sync.Once
}

func (h *execHandle) wait() {
	err := h.cmd.Wait()
	h.waitErr = normalizeWaitErr(err)
	close(h.exited)
}

func (h *execHandle) Pid() int {
	return h.cmd.Process.Pid
}

func (h *execHandle) Stdout() io.Reader { return h.stdout }
func (h *execHandle) Stderr() io.Reader { return h.stderr }

func (h *execHandle) Exited() <-chan struct{} { return h.exited }

func (h *execHandle) Err() error {
	select {
	case <-h.exited:
		return h.waitErr
	default:
		return nil
	}
}

func (h *execHandle) Kill() error {
	err := killProcessGroup(h.cmd.Process)
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-h.exited
	h.closeOnce.Do(func() {
		closeAll(h.stdout, h.stderr)
	})
	return nil
}

// normalizeWaitErr treats a non-zero exit (including being killed) as a normal exit.
func normalizeWaitErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
