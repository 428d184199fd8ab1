package stackcmd

import (
	"reflect"
	"testing"

	"mvlcdaq/pkg/mvlcproto"
)

// A single VMERead response, masked to its declared data width.
func TestParseResponseSingleVMERead(t *testing.T) {
	cmds := []Command{
		{Kind: StackStart},
		MakeVMERead(0x6000, mvlcproto.AmodA32UserData, mvlcproto.D16),
		{Kind: StackEnd},
	}

	hdr := mvlcproto.FrameHeader{Type: mvlcproto.FrameStack, Length: 1}.Encode()
	response := []mvlcproto.Word{hdr, 0x1234abcd}

	results, err := ParseResponse(cmds, response)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if got := results[0].Response; !reflect.DeepEqual(got, []mvlcproto.Word{0x1234}) {
		t.Errorf("response = %#x, want [0x1234] (D16 masked)", got)
	}
}

// A block read whose payload is split across a StackContinuation frame.
func TestParseResponseBlockAcrossContinuation(t *testing.T) {
	cmds := []Command{
		{Kind: StackStart},
		MakeVMEBlockRead(0x6100, mvlcproto.AmodA32UserBlock, mvlcproto.D32, 8),
		{Kind: StackEnd},
	}

	block1 := mvlcproto.FrameHeader{Type: mvlcproto.FrameBlockRead, Length: 4, Flags: mvlcproto.FlagContinue}.Encode()
	frame1Hdr := mvlcproto.FrameHeader{Type: mvlcproto.FrameStack, Length: 5, Flags: mvlcproto.FlagContinue}.Encode()
	frame1 := []mvlcproto.Word{frame1Hdr, block1, 1, 2, 3, 4}

	block2 := mvlcproto.FrameHeader{Type: mvlcproto.FrameBlockRead, Length: 4}.Encode()
	frame2Hdr := mvlcproto.FrameHeader{Type: mvlcproto.FrameStackContinuation, Length: 5}.Encode()
	frame2 := []mvlcproto.Word{frame2Hdr, block2, 5, 6, 7, 8}

	response := append(append([]mvlcproto.Word{}, frame1...), frame2...)

	results, err := ParseResponse(cmds, response)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if got := len(results[0].Response); got != 8 {
		t.Fatalf("response has %d words, want 8", got)
	}
	want := []mvlcproto.Word{1, 2, 3, 4, 5, 6, 7, 8}
	if !reflect.DeepEqual(results[0].Response, want) {
		t.Errorf("response = %v, want %v", results[0].Response, want)
	}
}

func TestParseResponseDeterministicLength(t *testing.T) {
	cmds := []Command{
		{Kind: StackStart},
		MakeVMERead(0x6000, mvlcproto.AmodA32UserData, mvlcproto.D16),
		MakeVMEWrite(0x6004, mvlcproto.AmodA32UserData, mvlcproto.D16, 0xabcd),
		{Kind: SoftwareDelay, Millis: 5},
		{Kind: StackEnd},
	}
	hdr := mvlcproto.FrameHeader{Type: mvlcproto.FrameStack, Length: 1}.Encode()
	response := []mvlcproto.Word{hdr, 0x1234}

	results, err := ParseResponse(cmds, response)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	// VMERead, VMEWrite, SoftwareDelay each produce one Result.
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Cmd.Kind != VMERead || results[1].Cmd.Kind != VMEWrite || results[2].Cmd.Kind != SoftwareDelay {
		t.Errorf("results out of order: %+v", results)
	}
}

func TestParseGroupedResponseAttachesExecErrors(t *testing.T) {
	b := NewBuilder()
	g0 := b.AddGroup("event0")
	b.AddCommand(g0, MakeVMERead(0x6000, mvlcproto.AmodA32UserData, mvlcproto.D16))
	g1 := b.AddGroup("event1")
	b.AddCommand(g1, MakeVMERead(0x6004, mvlcproto.AmodA32UserData, mvlcproto.D16))

	hdr := mvlcproto.FrameHeader{Type: mvlcproto.FrameStack, Length: 2}.Encode()
	response := []mvlcproto.Word{hdr, 0x1111, 0x2222}

	execErr := errTest("stack exec failed")
	grouped, err := ParseGroupedResponse(b, response, []error{nil, execErr})
	if err != nil {
		t.Fatalf("ParseGroupedResponse: %v", err)
	}
	if len(grouped.Groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(grouped.Groups))
	}
	if grouped.Groups[0].Results[0].Err != nil {
		t.Errorf("group 0 result err = %v, want nil", grouped.Groups[0].Results[0].Err)
	}
	if grouped.Groups[1].Results[0].Err != execErr {
		t.Errorf("group 1 result err = %v, want %v", grouped.Groups[1].Results[0].Err, execErr)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
