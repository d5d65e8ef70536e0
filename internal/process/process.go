package process

import (
	"context"
	"io"
)

// Command describes an external program to spawn.
type Command struct {
	Name  string
	Args  []string
	Stdin io.Reader
}

// Handle is a running process. Stdout and Stderr stay readable after the process exits
// until the buffered output is drained.
type Handle interface {
	Pid() int
	Stdout() io.Reader
	Stderr() io.Reader
	// Kill terminates the process. Killing an already exited process is not an error.
	Kill() error
	// Exited is closed once the process has been reaped.
	Exited() <-chan struct{}
	// Err returns the wait error after Exited is closed.
	Err() error
}

type Runner interface {
	Spawn(ctx context.Context, cmd Command) (Handle, error)
}
