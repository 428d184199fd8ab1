//go:build unix

package transport

import (
	"encoding/binary"
	"testing"
)

func ethPacket(seq, wordCount uint32, payload ...uint32) []byte {
	buf := make([]byte, 8+len(payload)*4)
	binary.LittleEndian.PutUint32(buf[0:4], seq)
	binary.LittleEndian.PutUint32(buf[4:8], wordCount)
	for i, w := range payload {
		binary.LittleEndian.PutUint32(buf[8+i*4:], w)
	}
	return buf
}

func TestTrackSequenceDetectsLoss(t *testing.T) {
	p := &EthPipe{}

	p.trackSequence(ethPacket(5, 1, 0xAAAA))
	if p.counters.LostPackets != 0 {
		t.Fatalf("first packet should not count as loss")
	}

	p.trackSequence(ethPacket(7, 1, 0xBBBB)) // gap of 1 (seq 6 missing)
	if p.counters.LostPackets != 1 {
		t.Errorf("lostPackets = %d, want 1", p.counters.LostPackets)
	}
}

func TestTrackSequenceWrapsModulus(t *testing.T) {
	p := &EthPipe{}
	p.trackSequence(ethPacket(seqModulus-1, 1, 0))
	p.trackSequence(ethPacket(0, 1, 0)) // wraps, no loss
	if p.counters.LostPackets != 0 {
		t.Errorf("lostPackets = %d, want 0 across wraparound", p.counters.LostPackets)
	}
}

func TestTrackSequenceShortPacket(t *testing.T) {
	p := &EthPipe{}
	p.trackSequence([]byte{0x01, 0x02})
	if p.counters.ShortPackets != 1 || p.counters.NoHeader != 1 {
		t.Errorf("counters = %+v, want ShortPackets=1 NoHeader=1", p.counters)
	}
}
