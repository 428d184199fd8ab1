package parser

import (
	"reflect"
	"testing"

	"mvlcdaq/pkg/bufferpool"
	"mvlcdaq/pkg/cratecfg"
	"mvlcdaq/pkg/mvlcproto"
	"mvlcdaq/pkg/stackcmd"
)

func oneEventOneModuleCfg() cratecfg.CrateConfig {
	b := stackcmd.NewBuilder()
	b.AddGroup("mod0")
	b.AddCommand(0, stackcmd.MakeVMERead(0x1000, mvlcproto.AmodA32UserData, mvlcproto.DataWidth(0)))
	b.AddCommand(0, stackcmd.MakeVMEBlockRead(0x1004, mvlcproto.AmodA32UserBlock, mvlcproto.DataWidth(0), 0))
	b.AddCommand(0, stackcmd.MakeVMERead(0x1008, mvlcproto.AmodA32UserData, mvlcproto.DataWidth(0)))

	return cratecfg.CrateConfig{
		Stacks: []cratecfg.StackConfig{
			{Name: "event0", Trigger: 1, Builder: b},
		},
	}
}

// buildEventWords constructs one complete StackFrame for event index 0: a
// prefix word, a BlockRead frame of 3 words, and a suffix word.
func buildEventWords() []uint32 {
	var words []uint32

	block := []uint32{0xAAAA0001, 0xAAAA0002, 0xAAAA0003}
	blockHdr := mvlcproto.FrameHeader{Type: mvlcproto.FrameBlockRead, Length: uint16(len(block))}
	inner := []uint32{0xDEAD0001}
	inner = append(inner, blockHdr.Encode())
	inner = append(inner, block...)
	inner = append(inner, 0xBEEF0001)

	stackHdr := mvlcproto.FrameHeader{Type: mvlcproto.FrameStack, Stack: 1, Length: uint16(len(inner))}
	words = append(words, stackHdr.Encode())
	words = append(words, inner...)
	return words
}

func collectEvents(t *testing.T, cfg cratecfg.CrateConfig, feed func(state *ReadoutParserState, cb Callbacks, counters *Counters)) []ModuleData {
	t.Helper()
	var got []ModuleData
	cb := Callbacks{
		EventData: func(eventIndex int, modules []ModuleData) {
			for _, m := range modules {
				cp := ModuleData{
					Prefix:  append([]uint32(nil), m.Prefix...),
					Dynamic: append([]uint32(nil), m.Dynamic...),
					Suffix:  append([]uint32(nil), m.Suffix...),
				}
				got = append(got, cp)
			}
		},
	}
	state := NewState(cfg)
	counters := NewCounters()
	feed(state, cb, &counters)
	return got
}

func TestParseBufferWholeStream(t *testing.T) {
	cfg := oneEventOneModuleCfg()
	words := buildEventWords()

	got := collectEvents(t, cfg, func(state *ReadoutParserState, cb Callbacks, counters *Counters) {
		ParseBuffer(state, cb, counters, bufferpool.TransportUSB, 1, words)
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 module event, got %d", len(got))
	}
	want := ModuleData{
		Prefix:  []uint32{0xDEAD0001},
		Dynamic: []uint32{0xAAAA0001, 0xAAAA0002, 0xAAAA0003},
		Suffix:  []uint32{0xBEEF0001},
	}
	if !reflect.DeepEqual(got[0], want) {
		t.Fatalf("got %+v, want %+v", got[0], want)
	}
}

// TestParseBufferSplitAtEveryBoundary verifies that splitting the producer's
// word stream into two buffers at any word boundary and feeding them through
// separate ParseBuffer calls against one resumable state produces the same
// callback result as feeding the whole stream in a single call.
func TestParseBufferSplitAtEveryBoundary(t *testing.T) {
	cfg := oneEventOneModuleCfg()
	words := buildEventWords()

	want := collectEvents(t, cfg, func(state *ReadoutParserState, cb Callbacks, counters *Counters) {
		ParseBuffer(state, cb, counters, bufferpool.TransportUSB, 1, words)
	})

	for split := 1; split < len(words); split++ {
		split := split
		got := collectEvents(t, cfg, func(state *ReadoutParserState, cb Callbacks, counters *Counters) {
			ParseBuffer(state, cb, counters, bufferpool.TransportUSB, 1, words[:split])
			ParseBuffer(state, cb, counters, bufferpool.TransportUSB, 2, words[split:])
		})
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("split at %d: got %+v, want %+v", split, got, want)
		}
	}
}

// TestParseBufferEthGapAcrossBufferBoundaryResyncs reproduces a packet gap
// detected in the buffer that continues an event left open by the previous
// ParseBuffer call. abandon must tear down the top-level cursor so the
// stale actionEvent/nil-modules cursor is never fed to continueEvent, and
// parsing must resync cleanly on the next header rather than panic or
// replay a spurious event.
func TestParseBufferEthGapAcrossBufferBoundaryResyncs(t *testing.T) {
	cfg := oneEventOneModuleCfg()

	ethPacket := func(seq uint32, payload ...uint32) []uint32 {
		out := []uint32{seq, uint32(len(payload))}
		return append(out, payload...)
	}

	openHdr := mvlcproto.FrameHeader{Type: mvlcproto.FrameStack, Stack: 1, Length: 6}
	buf1 := ethPacket(0, openHdr.Encode())

	buf2 := ethPacket(2, buildEventWords()...) // seq 1 skipped: a gap

	got := collectEvents(t, cfg, func(state *ReadoutParserState, cb Callbacks, counters *Counters) {
		ParseBuffer(state, cb, counters, bufferpool.TransportETH, 1, buf1)
		ParseBuffer(state, cb, counters, bufferpool.TransportETH, 2, buf2)
	})

	if len(got) != 1 {
		t.Fatalf("expected exactly 1 module event after the resync, got %d: %+v", len(got), got)
	}
	want := ModuleData{
		Prefix:  []uint32{0xDEAD0001},
		Dynamic: []uint32{0xAAAA0001, 0xAAAA0002, 0xAAAA0003},
		Suffix:  []uint32{0xBEEF0001},
	}
	if !reflect.DeepEqual(got[0], want) {
		t.Fatalf("got %+v, want %+v", got[0], want)
	}
}

func TestParseBufferSystemEvent(t *testing.T) {
	cfg := oneEventOneModuleCfg()
	hdr := mvlcproto.FrameHeader{Type: mvlcproto.FrameSystemEvent, Length: 2}
	words := []uint32{hdr.Encode(), uint32(mvlcproto.SystemEventTimetick), 0x1}

	var gotSubtype uint8
	var gotContents []uint32
	cb := Callbacks{
		SystemEvent: func(subtype uint8, contents []uint32) {
			gotSubtype = subtype
			gotContents = append([]uint32(nil), contents...)
		},
	}
	state := NewState(cfg)
	counters := NewCounters()
	ParseBuffer(state, cb, &counters, bufferpool.TransportUSB, 1, words)

	if gotSubtype != uint8(mvlcproto.SystemEventTimetick) {
		t.Fatalf("got subtype %d, want %d", gotSubtype, mvlcproto.SystemEventTimetick)
	}
	if !reflect.DeepEqual(gotContents, []uint32{0x1}) {
		t.Fatalf("got contents %+v", gotContents)
	}
	if counters.SystemEventTypes[mvlcproto.SystemEventTimetick] != 1 {
		t.Fatalf("system event counter not incremented")
	}
}

func TestAssembleEthStreamDetectsLoss(t *testing.T) {
	cfg := oneEventOneModuleCfg()
	state := NewState(cfg)
	counters := NewCounters()

	packet := func(seq uint32, payload ...uint32) []uint32 {
		out := []uint32{seq, uint32(len(payload))}
		return append(out, payload...)
	}

	words := append(packet(0, 0x1), packet(2, 0x2)...) // seq 1 skipped

	_ = state.assembleEthStream(words, &counters)
	if counters.EthPacketLoss != 1 {
		t.Fatalf("expected 1 lost packet, got %d", counters.EthPacketLoss)
	}
	if counters.EthPacketsProcessed != 2 {
		t.Fatalf("expected 2 packets processed, got %d", counters.EthPacketsProcessed)
	}
}
