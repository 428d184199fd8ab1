package readout

import (
	"encoding/binary"

	"mvlcdaq/pkg/mvlcproto"
)

// maxUSBCarry bounds the "tempMovedBytes" carry region: the trailing
// partial frame of a USB read, moved to the front of the next buffer.
// No frame can legally exceed one maximum-length frame, so a carry past
// this bound means the stream is corrupt rather than merely split.
const maxUSBCarry = (mvlcproto.MaxFrameLen + 1) * 4

// trimUSBFrameBoundary scans data as a sequence of framing words and
// returns the byte length of the longest whole-frame-aligned prefix,
// along with the trailing partial-frame bytes to carry into the next
// buffer. It does not validate frame contents beyond the header's length
// field — fully validating parse happens downstream in pkg/parser.
func trimUSBFrameBoundary(data []byte) (usedBytes int, carry []byte) {
	words := len(data) / 4
	pos := 0
	for pos < words {
		w := binary.LittleEndian.Uint32(data[pos*4:])
		hdr := mvlcproto.ParseFrameHeader(w)
		end := pos + 1 + int(hdr.Length)
		if end > words {
			break
		}
		pos = end
	}
	usedBytes = pos * 4
	return usedBytes, data[usedBytes:]
}
