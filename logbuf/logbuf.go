// Package logbuf keeps the most recent log lines in memory so the HTTP
// surface can expose them without tailing files.
package logbuf

import (
	"strings"
	"sync"
)

const DefaultCapacity = 500

// Buffer is a fixed-capacity ring of log lines. It implements io.Writer
// so it can sit behind a zerolog.MultiLevelWriter next to stderr.
type Buffer struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{lines: make([]string, capacity)}
}

// Write stores each newline-terminated line in p, evicting the oldest
// once the ring is full. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		b.lines[b.next] = line
		b.next = (b.next + 1) % len(b.lines)
		if b.next == 0 {
			b.full = true
		}
	}
	return len(p), nil
}

// Lines returns the buffered lines oldest first.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []string
	if b.full {
		out = append(out, b.lines[b.next:]...)
	}
	out = append(out, b.lines[:b.next]...)
	return out
}
