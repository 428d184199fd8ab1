// Package stackcmd models the controller-resident "stack" program: an
// ordered list of commands that executes on a trigger and emits a response
// frame stream. It implements command encoding, size-bounded splitting
// (Split), and response parsing (ParseResponse).
package stackcmd

import (
	"fmt"

	"mvlcdaq/pkg/mvlcproto"
)

// Kind tags the variant a StackCommand holds.
type Kind uint8

const (
	Invalid Kind = iota
	StackStart
	StackEnd
	SoftwareDelay
	VMERead
	VMEWrite
	WriteMarker
	WriteSpecial
)

func (k Kind) String() string {
	switch k {
	case StackStart:
		return "StackStart"
	case StackEnd:
		return "StackEnd"
	case SoftwareDelay:
		return "SoftwareDelay"
	case VMERead:
		return "VMERead"
	case VMEWrite:
		return "VMEWrite"
	case WriteMarker:
		return "WriteMarker"
	case WriteSpecial:
		return "WriteSpecial"
	default:
		return "Invalid"
	}
}

// Command is a single tagged stack command record. Only the fields that
// apply to Kind are meaningful.
type Command struct {
	Kind Kind

	// VMERead / VMEWrite
	Address      uint32
	Amod         mvlcproto.AddressModifier
	Width        mvlcproto.DataWidth
	Value        uint32 // VMEWrite only
	MaxTransfers uint16 // VMERead block mode only, 0 = unbounded (read-until-BERR)

	// SoftwareDelay
	Millis uint32

	// WriteMarker
	Marker uint32

	// WriteSpecial
	Special mvlcproto.WriteSpecialKind
}

// IsSoftwareDelay reports whether cmd is a SoftwareDelay command.
func (cmd Command) IsSoftwareDelay() bool { return cmd.Kind == SoftwareDelay }

// EncodedSize returns the command's fixed encoded size in words.
func (cmd Command) EncodedSize() int {
	switch cmd.Kind {
	case StackStart, StackEnd:
		return 1
	case SoftwareDelay:
		return 1
	case VMERead:
		return 2
	case VMEWrite:
		return 3
	case WriteMarker:
		return 2
	case WriteSpecial:
		return 2
	default:
		return 0
	}
}

// Encode serializes cmd into its opcode-stream representation, used when
// writing a stack to controller memory.
func (cmd Command) Encode() ([]mvlcproto.Word, error) {
	switch cmd.Kind {
	case StackStart:
		return []mvlcproto.Word{mvlcproto.Word(mvlcproto.OpcodeStackStart) << 24}, nil
	case StackEnd:
		return []mvlcproto.Word{mvlcproto.Word(mvlcproto.OpcodeStackEnd) << 24}, nil
	case SoftwareDelay:
		return []mvlcproto.Word{mvlcproto.Word(mvlcproto.OpcodeSoftwareDelay)<<24 | (cmd.Millis & 0xFFFFFF)}, nil
	case VMERead:
		w0 := mvlcproto.Word(mvlcproto.OpcodeVMERead)<<24 | mvlcproto.Word(cmd.Amod)<<16 | mvlcproto.Word(cmd.Width)<<8
		if cmd.Amod.IsBlockMode() {
			w0 |= mvlcproto.Word(cmd.MaxTransfers) & 0xFF
		}
		return []mvlcproto.Word{w0, cmd.Address}, nil
	case VMEWrite:
		w0 := mvlcproto.Word(mvlcproto.OpcodeVMEWrite)<<24 | mvlcproto.Word(cmd.Amod)<<16 | mvlcproto.Word(cmd.Width)<<8
		return []mvlcproto.Word{w0, cmd.Address, cmd.Value}, nil
	case WriteMarker:
		return []mvlcproto.Word{mvlcproto.Word(mvlcproto.OpcodeWriteMarker) << 24, cmd.Marker}, nil
	case WriteSpecial:
		return []mvlcproto.Word{mvlcproto.Word(mvlcproto.OpcodeWriteSpecial)<<24 | mvlcproto.Word(cmd.Special), 0}, nil
	default:
		return nil, fmt.Errorf("stackcmd: invalid command kind %v", cmd.Kind)
	}
}

// MakeVMERead builds a VMERead command.
func MakeVMERead(addr uint32, amod mvlcproto.AddressModifier, width mvlcproto.DataWidth) Command {
	return Command{Kind: VMERead, Address: addr, Amod: amod, Width: width}
}

// MakeVMEBlockRead builds a block-mode VMERead command.
func MakeVMEBlockRead(addr uint32, amod mvlcproto.AddressModifier, width mvlcproto.DataWidth, maxTransfers uint16) Command {
	return Command{Kind: VMERead, Address: addr, Amod: amod, Width: width, MaxTransfers: maxTransfers}
}

// MakeVMEWrite builds a VMEWrite command.
func MakeVMEWrite(addr uint32, amod mvlcproto.AddressModifier, width mvlcproto.DataWidth, value uint32) Command {
	return Command{Kind: VMEWrite, Address: addr, Amod: amod, Width: width, Value: value}
}
