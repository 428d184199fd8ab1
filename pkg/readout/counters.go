package readout

import "time"

// Counters is the readout worker's monotonic stats ensemble.
type Counters struct {
	BytesRead          int64
	BuffersRead        int64
	BuffersFlushed     int64
	ReadTimeouts       int64
	SnoopMissedBuffers int64
	UsbFramingErrors   int64
	UsbTempMovedBytes  int64
	EthShortReads      int64

	TStart          time.Time
	TTerminateStart time.Time

	// StackHits/StackErrors are keyed by stack (event) index.
	StackHits   map[int]int64
	StackErrors map[int]int64
}

func newCounters() Counters {
	return Counters{
		StackHits:   make(map[int]int64),
		StackErrors: make(map[int]int64),
	}
}
