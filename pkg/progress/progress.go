// Package progress holds the narrow interface that discovery, archive and bulk-copy
// steps use to report human-readable progress lines to whoever started the job.
package progress

import "sync"

// Sink receives progress lines in the order they are produced.
type Sink interface {
	Progress(line string)
}

// Func adapts a plain function to a Sink.
type Func func(line string)

func (f Func) Progress(line string) {
	f(line)
}

// Discard drops every line.
var Discard Sink = Func(func(string) {})

// Recorder keeps every reported line. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *Recorder) Progress(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

// Lines returns a copy of the lines recorded so far.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)

	return out
}
