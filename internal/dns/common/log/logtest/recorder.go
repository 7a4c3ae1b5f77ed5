// Package logtest provides an in-memory logger for asserting on log output.
package logtest

import (
	"sync"

	"github.com/haukened/lbdns/internal/dns/common/log"
)

// Entry is one captured log line.
type Entry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

// Recorder is a concurrency-safe log.Logger that keeps every entry in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	fields  map[string]any
	parent  *Recorder
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(level string, fields map[string]any, msg string) {
	merged := make(map[string]any, len(r.fields)+len(fields))
	for k, v := range r.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	root := r
	if r.parent != nil {
		root = r.parent
	}
	root.mu.Lock()
	root.entries = append(root.entries, Entry{Level: level, Msg: msg, Fields: merged})
	root.mu.Unlock()
}

func (r *Recorder) Info(fields map[string]any, msg string)  { r.record("info", fields, msg) }
func (r *Recorder) Error(fields map[string]any, msg string) { r.record("error", fields, msg) }
func (r *Recorder) Debug(fields map[string]any, msg string) { r.record("debug", fields, msg) }
func (r *Recorder) Warn(fields map[string]any, msg string)  { r.record("warn", fields, msg) }
func (r *Recorder) Panic(fields map[string]any, msg string) { r.record("panic", fields, msg) }
func (r *Recorder) Fatal(fields map[string]any, msg string) { r.record("fatal", fields, msg) }

func (r *Recorder) With(fields map[string]any) log.Logger {
	merged := make(map[string]any, len(r.fields)+len(fields))
	for k, v := range r.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	root := r
	if r.parent != nil {
		root = r.parent
	}
	return &Recorder{fields: merged, parent: root}
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	root := r
	if r.parent != nil {
		root = r.parent
	}
	root.mu.Lock()
	defer root.mu.Unlock()
	out := make([]Entry, len(root.entries))
	copy(out, root.entries)
	return out
}

// Events returns the entries that carry the given event name.
func (r *Recorder) Events(ev log.Event) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Fields[log.EventKey] == string(ev) {
			out = append(out, e)
		}
	}
	return out
}

var _ log.Logger = (*Recorder)(nil)
