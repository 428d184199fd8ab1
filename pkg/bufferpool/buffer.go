// Package bufferpool implements the fixed-size readout buffer pool and the
// bounded double queue that hands buffers between the readout worker and
// the readout parser.
package bufferpool

import "encoding/binary"

// TransportType tags which transport produced a buffer's bytes, so the
// parser knows how to split its payload into frames (whole USB frames vs.
// whole UDP packets).
type TransportType uint8

const (
	TransportUnknown TransportType = iota
	TransportUSB
	TransportETH
)

// DefaultCapacity is the default fixed byte capacity of a ReadoutBuffer (1 MiB).
const DefaultCapacity = 1 << 20

// DefaultCount is the default number of buffers allocated in a pool.
const DefaultCount = 100

// ReadoutBuffer is a fixed-capacity byte region carrying one or more whole
// transport-level frames (USB) or whole UDP packets (ETH) — never a
// half-frame split across the boundary.
type ReadoutBuffer struct {
	number int64
	typ    TransportType
	data   []byte // len == capacity, Used tracks the filled prefix
	used   int
}

// NewReadoutBuffer allocates a buffer with the given byte capacity.
func NewReadoutBuffer(capacity int) *ReadoutBuffer {
	return &ReadoutBuffer{data: make([]byte, capacity)}
}

// Number returns the buffer's monotonic sequence number, assigned by the
// worker when it fills the buffer.
func (b *ReadoutBuffer) Number() int64 { return b.number }

// SetNumber assigns the buffer's sequence number.
func (b *ReadoutBuffer) SetNumber(n int64) { b.number = n }

// Type reports which transport produced this buffer's contents.
func (b *ReadoutBuffer) Type() TransportType { return b.typ }

// SetType sets the transport tag.
func (b *ReadoutBuffer) SetType(t TransportType) { b.typ = t }

// Used returns the number of valid bytes currently in the buffer.
func (b *ReadoutBuffer) Used() int { return b.used }

// Capacity returns the buffer's fixed byte capacity.
func (b *ReadoutBuffer) Capacity() int { return len(b.data) }

// Bytes returns the valid (used) prefix of the underlying storage.
func (b *ReadoutBuffer) Bytes() []byte { return b.data[:b.used] }

// Free returns the unused suffix of the underlying storage, available for
// the next append.
func (b *ReadoutBuffer) Free() []byte { return b.data[b.used:] }

// Grow records that n additional bytes (already written into the tail of
// Free()) are now valid.
func (b *ReadoutBuffer) Grow(n int) { b.used += n }

// SetUsed truncates or (if never exceeding capacity) extends the valid
// length directly — used when trimming to a whole-frame boundary.
func (b *ReadoutBuffer) SetUsed(n int) { b.used = n }

// Reset empties the buffer for reuse, keeping its allocated storage.
func (b *ReadoutBuffer) Reset() { b.used = 0 }

// Empty reports whether the buffer carries no data — the sentinel
// condition the parser treats as end-of-stream.
func (b *ReadoutBuffer) Empty() bool { return b.used == 0 }

// Words returns the buffer's valid bytes reinterpreted as little-endian
// 32-bit words.
func (b *ReadoutBuffer) Words() []uint32 {
	n := b.used / 4
	words := make([]uint32, n)
	for i := 0; i < n; i++ {
		words[i] = binary.LittleEndian.Uint32(b.data[i*4:])
	}
	return words
}
