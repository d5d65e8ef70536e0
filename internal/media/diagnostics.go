package media

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	maxDiagnosticLines = 50
	// maxLineBytes caps one retained line. Longer output is split into several lines.
	maxLineBytes = 4096
)

// Diagnostics drains a process's stderr on its own goroutine so that a chatty
// process never blocks on a full pipe, keeping the most recent lines for teardown logs.
type Diagnostics struct {
	name string

	mu    sync.Mutex
	lines []string
	done  chan struct{}
}

func watchDiagnostics(name string, pid int, r io.Reader) *Diagnostics {
	d := &Diagnostics{
		name:  name,
		lines: make([]string, 0, maxDiagnosticLines),
		done:  make(chan struct{}),
	}
	go d.run(pid, r)
	return d
}

func (d *Diagnostics) run(pid int, r io.Reader) {
	defer close(d.done)
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in stderr reader", "process", d.name, "panic", rec)
		}
	}()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, maxLineBytes), 4*maxLineBytes)
	scanner.Split(scanProgressLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		d.mu.Lock()
		if len(d.lines) >= maxDiagnosticLines {
			d.lines = d.lines[1:]
		}
		d.lines = append(d.lines, line)
		d.mu.Unlock()
		slog.Debug("process stderr", "process", d.name, "pid", pid, "line", line)
	}
	if err := scanner.Err(); err != nil {
		slog.Debug("stderr scanner stopped; discarding the rest", "process", d.name, "pid", pid, "error", err)
		// The process blocks on a full stderr pipe unless it is drained until EOF.
		_, _ = io.Copy(io.Discard, r)
	}
}

// scanProgressLines splits on '\n' or '\r', since progress output rewrites its line with '\r'
// only. Tokens longer than maxLineBytes are cut.
func scanProgressLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 && i <= maxLineBytes {
		return i + 1, data[:i], nil
	}
	if len(data) >= maxLineBytes {
		return maxLineBytes, data[:maxLineBytes], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Tail returns a copy of the retained stderr lines, oldest first.
func (d *Diagnostics) Tail() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}

// Done is closed once stderr reaches EOF.
func (d *Diagnostics) Done() <-chan struct{} {
	return d.done
}
