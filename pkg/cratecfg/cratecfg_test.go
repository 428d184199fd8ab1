package cratecfg

import (
	"testing"

	"mvlcdaq/pkg/mvlcproto"
	"mvlcdaq/pkg/stackcmd"
)

func TestYAMLRoundTrip(t *testing.T) {
	b := stackcmd.NewBuilder()
	gi := b.AddGroup("event0")
	b.AddCommand(gi, stackcmd.Command{Kind: stackcmd.StackStart})
	b.AddCommand(gi, stackcmd.MakeVMERead(0x6000, mvlcproto.AmodA32UserData, mvlcproto.D16))
	b.AddCommand(gi, stackcmd.Command{Kind: stackcmd.StackEnd})

	cfg := CrateConfig{
		Transport: TransportConfig{Kind: TransportETH, ETHHost: "mvlc-0007"},
		Stacks: []StackConfig{
			{Name: "event0", Trigger: 1, Builder: b},
		},
		InitCommands:  stackcmd.NewBuilder(),
		InitTriggerIO: stackcmd.NewBuilder(),
	}

	data, err := ToYAML(cfg)
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}

	got, err := FromYAML(data)
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}

	if got.Transport.Kind != TransportETH || got.Transport.ETHHost != "mvlc-0007" {
		t.Errorf("transport round trip mismatch: %+v", got.Transport)
	}
	if len(got.Stacks) != 1 || got.Stacks[0].Name != "event0" || got.Stacks[0].Trigger != 1 {
		t.Fatalf("stacks round trip mismatch: %+v", got.Stacks)
	}
	cmds := got.Stacks[0].Builder.Commands()
	if len(cmds) != 3 || cmds[1].Kind != stackcmd.VMERead || cmds[1].Address != 0x6000 {
		t.Errorf("stack commands round trip mismatch: %+v", cmds)
	}
}
