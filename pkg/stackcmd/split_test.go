package stackcmd

import (
	"errors"
	"testing"

	"mvlcdaq/pkg/mvlcproto"
)

func TestSplitNoBatching(t *testing.T) {
	cmds := []Command{
		MakeVMERead(0x6000, mvlcproto.AmodA32UserData, mvlcproto.D16),
		MakeVMERead(0x6004, mvlcproto.AmodA32UserData, mvlcproto.D16),
	}
	parts, err := Split(cmds, Options{NoBatching: true}, 1000)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	for i, p := range parts {
		if len(p) != 1 {
			t.Errorf("part %d has %d commands, want 1", i, len(p))
		}
	}
}

func TestSplitRoundTrip(t *testing.T) {
	var cmds []Command
	for i := 0; i < 50; i++ {
		cmds = append(cmds, MakeVMERead(uint32(0x6000+4*i), mvlcproto.AmodA32UserData, mvlcproto.D16))
	}

	const maxStackSize = 20 // forces multiple parts
	parts, err := Split(cmds, Options{}, maxStackSize)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	var flattened []Command
	for _, p := range parts {
		size := 2
		for _, c := range p {
			size += c.EncodedSize()
		}
		if size > maxStackSize {
			t.Errorf("part encodes to %d words, exceeds max %d", size, maxStackSize)
		}
		flattened = append(flattened, p...)
	}

	if len(flattened) != len(cmds) {
		t.Fatalf("round trip lost commands: got %d, want %d", len(flattened), len(cmds))
	}
	for i := range cmds {
		if flattened[i] != cmds[i] {
			t.Errorf("command %d mismatch after split round trip", i)
		}
	}
}

func TestSplitSoftwareDelayStandsAlone(t *testing.T) {
	cmds := []Command{
		MakeVMERead(0x6000, mvlcproto.AmodA32UserData, mvlcproto.D16),
		{Kind: SoftwareDelay, Millis: 10},
		MakeVMERead(0x6004, mvlcproto.AmodA32UserData, mvlcproto.D16),
	}

	parts, err := Split(cmds, Options{}, 1000)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3 (delay must stand alone), parts=%v", len(parts), parts)
	}
	if len(parts[1]) != 1 || parts[1][0].Kind != SoftwareDelay {
		t.Errorf("part 1 = %v, want lone SoftwareDelay", parts[1])
	}
}

func TestSplitCommandTooLarge(t *testing.T) {
	oversized := Command{Kind: VMEWrite, Address: 0x6000}
	_, err := Split([]Command{oversized}, Options{}, 2) // 2 words leaves no room for a 3-word VMEWrite
	var tooLarge *ErrCommandTooLarge
	if !errors.As(err, &tooLarge) {
		t.Fatalf("Split err = %v, want *ErrCommandTooLarge", err)
	}
}
