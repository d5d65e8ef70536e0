package pipeline

import "strings"

const DefaultContextWindowSize = 3

// ContextWindow keeps the most recent transcript texts, oldest first. It is owned by the
// pipeline loop and is not safe for concurrent use.
type ContextWindow struct {
	size  int
	lines []string
}

func NewContextWindow(size int) *ContextWindow {
	if size < 0 {
		size = 0
	}
	return &ContextWindow{size: size, lines: make([]string, 0, size)}
}

// Snapshot returns a copy of the retained texts.
func (w *ContextWindow) Snapshot() []string {
	out := make([]string, len(w.lines))
	copy(out, w.lines)
	return out
}

// Push appends text and evicts the oldest entries beyond the window size.
func (w *ContextWindow) Push(text string) {
	if w.size == 0 {
		return
	}
	w.lines = append(w.lines, text)
	if over := len(w.lines) - w.size; over > 0 {
		w.lines = append(w.lines[:0], w.lines[over:]...)
	}
}

func (w *ContextWindow) Reset() {
	w.lines = w.lines[:0]
}

func (w *ContextWindow) Len() int {
	return len(w.lines)
}

// BuildContextText joins the prior texts and the current one with newlines. The current text is
// always the last line.
func BuildContextText(prior []string, current string) string {
	lines := make([]string, 0, len(prior)+1)
	lines = append(lines, prior...)
	lines = append(lines, current)
	return strings.Join(lines, "\n")
}
