// Package transport implements the byte-stream abstraction over the two
// physical links to the controller — USB bulk and Ethernet/UDP — unified
// behind a single timeout-bounded Read.
package transport

import (
	"errors"
	"time"
)

// ErrTimeout is returned by Read when no data arrived within the requested
// timeout. It is an expected, retried-silently condition, never fatal.
var ErrTimeout = errors.New("transport: read timed out")

// Transport is the unified byte-stream contract both USB and Ethernet
// links satisfy.
type Transport interface {
	// Read attempts to fill dst, returning as soon as any data is
	// available or timeout elapses. A short read is not an error; ErrTimeout
	// is returned only when zero bytes arrived.
	Read(dst []byte, timeout time.Duration) (int, error)

	// Close releases the underlying link.
	Close() error
}

// CommandPipe is the bidirectional link a stack program is uploaded over
// and its response read back from. USB exposes this on the same pipe Read
// streams data from; Ethernet exposes it as the separate command socket.
type CommandPipe interface {
	Read(dst []byte, timeout time.Duration) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// PipeCounters are the per-pipe receive counters common to every
// transport. ETH transports extend this with UDP-specific fields
// (see EthPipeCounters).
type PipeCounters struct {
	BytesRead int64
	Reads     int64
	Timeouts  int64
	ShortReads int64
}
