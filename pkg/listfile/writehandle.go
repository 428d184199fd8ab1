// Package listfile implements the binary archive writer: a zip-format
// envelope containing one entry, listfile.mvlclst, whose content is the
// magic bytes, a preamble SystemEvent embedding the YAML crate config, the
// concatenated raw readout-buffer payloads, and a closing end-of-file
// SystemEvent.
package listfile

import (
	"sync"
	"time"
)

// WriteHandle is the single operation every concrete sink implements:
// write raw bytes, return how many were written or an error. A bare
// io.Writer-shaped contract so zip, lz4, and passthrough sinks can be
// swapped behind it.
type WriteHandle interface {
	Write(p []byte) (int, error)
}

// Counters are the listfile writer's monotonic stats.
type Counters struct {
	Writes       int64
	BytesWritten int64
	TStart       time.Time
	TEnd         time.Time
}

// CountingHandle wraps a WriteHandle and maintains Counters under lock —
// the writer is owned by a single thread (the readout worker), but
// Counters() is read from the controlling thread.
type CountingHandle struct {
	inner WriteHandle

	mu       sync.Mutex
	counters Counters
}

// NewCountingHandle wraps inner, starting the TStart clock immediately.
func NewCountingHandle(inner WriteHandle) *CountingHandle {
	return &CountingHandle{inner: inner, counters: Counters{TStart: time.Now()}}
}

// Write forwards to inner and updates counters. A negative-length write is
// never produced by Go implementations (errors are returned instead); the
// sentinel-negative-return convention only resurfaces at the internal/ffi
// boundary, translated from a Go error.
func (h *CountingHandle) Write(p []byte) (int, error) {
	n, err := h.inner.Write(p)

	h.mu.Lock()
	h.counters.Writes++
	h.counters.BytesWritten += int64(n)
	h.counters.TEnd = time.Now()
	h.mu.Unlock()

	return n, err
}

// Counters returns a snapshot of the writer's counters.
func (h *CountingHandle) Counters() Counters {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counters
}
