package mvlcproto

// AddressModifier selects VME bus transfer semantics for a single VME
// command.
type AddressModifier uint8

const (
	AmodA32UserData  AddressModifier = 0x09
	AmodA32UserBlock AddressModifier = 0x0B
	AmodA32UserBLT64 AddressModifier = 0x08
	AmodA24UserData  AddressModifier = 0x39
	AmodA24UserBlock AddressModifier = 0x3B
	AmodMBLT64       AddressModifier = 0x0C
)

// IsBlockMode reports whether amod selects a block-transfer (BLT/MBLT)
// address modifier, as opposed to a single-word transfer.
func (a AddressModifier) IsBlockMode() bool {
	switch a {
	case AmodA32UserBlock, AmodA32UserBLT64, AmodA24UserBlock, AmodMBLT64:
		return true
	default:
		return false
	}
}

// DataWidth is the VME data transfer width for a single (non-block) read
// or write.
type DataWidth uint8

const (
	D16 DataWidth = 16
	D32 DataWidth = 32
)

// Stack command opcodes, as encoded in the first word of each command's
// wire representation.
const (
	OpcodeStackStart     uint8 = 0xF1
	OpcodeStackEnd       uint8 = 0xF2
	OpcodeVMERead        uint8 = 0x12
	OpcodeVMEWrite       uint8 = 0x23
	OpcodeWriteMarker    uint8 = 0xC2
	OpcodeWriteSpecial   uint8 = 0xC1
	OpcodeSoftwareDelay  uint8 = 0xC4
)

// WriteSpecialKind enumerates the fixed set of WriteSpecial payload kinds.
type WriteSpecialKind uint8

const (
	SpecialTimestamp WriteSpecialKind = iota
	SpecialAccuCounter
	SpecialAccuValue
)
