// Package cratecfg models the crate configuration: the bundle of per-stack
// readout programs, trigger sources, init stacks, and transport selection
// that a YAML file on disk deserializes into. YAML parsing itself is an
// external collaborator's concern; this package only owns the
// in-memory shape and the round-trip needed to re-embed the config in a
// listfile preamble.
package cratecfg

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"mvlcdaq/pkg/stackcmd"
)

// TransportKind selects how the CLI reaches the controller.
type TransportKind string

const (
	TransportUSB TransportKind = "usb"
	TransportETH TransportKind = "eth"
)

// TransportConfig names which USB device or Ethernet host to connect to.
type TransportConfig struct {
	Kind TransportKind `yaml:"kind"`

	// USB selectors, at most one set.
	USBIndex  int    `yaml:"usb_index,omitempty"`
	USBSerial string `yaml:"usb_serial,omitempty"`

	// ETH selector.
	ETHHost string `yaml:"eth_host,omitempty"`
}

// StackConfig is the per-stack program plus the trigger word that arms it.
type StackConfig struct {
	Name    string       `yaml:"name"`
	Trigger uint32       `yaml:"trigger"`
	Builder *stackcmd.Builder `yaml:"-"`

	// Commands is the YAML-facing flat encoding of Builder, converted to
	// and from Builder by FromYAML/ToYAML.
	Commands []yamlCommand `yaml:"commands"`
}

// CrateConfig bundles everything needed to initialize and run a readout.
type CrateConfig struct {
	Transport TransportConfig `yaml:"transport"`

	// Stacks is the per-stack readout program, one StackConfig per
	// triggered event group.
	Stacks []StackConfig `yaml:"stacks"`

	// InitCommands runs once at connect time.
	InitCommands *stackcmd.Builder `yaml:"-"`
	InitCommandsYAML []yamlCommand `yaml:"init_commands"`

	// InitTriggerIO configures the trigger/IO module, run once at connect.
	InitTriggerIO *stackcmd.Builder `yaml:"-"`
	InitTriggerIOYAML []yamlCommand `yaml:"init_trigger_io"`
}

// yamlCommand is the flat, YAML-tagged mirror of stackcmd.Command.
type yamlCommand struct {
	Kind    string `yaml:"kind"`
	Address uint32 `yaml:"address,omitempty"`
	Amod    uint8  `yaml:"amod,omitempty"`
	Width   uint8  `yaml:"width,omitempty"`
	Value   uint32 `yaml:"value,omitempty"`
	MaxTransfers uint16 `yaml:"max_transfers,omitempty"`
	Millis  uint32 `yaml:"millis,omitempty"`
	Marker  uint32 `yaml:"marker,omitempty"`
	Special uint8  `yaml:"special,omitempty"`
}

// FromYAML deserializes a CrateConfig from its on-disk YAML representation.
func FromYAML(data []byte) (CrateConfig, error) {
	var cfg CrateConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CrateConfig{}, fmt.Errorf("cratecfg: unmarshal: %w", err)
	}
	for i := range cfg.Stacks {
		cfg.Stacks[i].Builder = builderFromYAML(cfg.Stacks[i].Name, cfg.Stacks[i].Commands)
	}
	cfg.InitCommands = builderFromYAML("init", cfg.InitCommandsYAML)
	cfg.InitTriggerIO = builderFromYAML("init_trigger_io", cfg.InitTriggerIOYAML)
	return cfg, nil
}

// ToYAML re-serializes cfg, the form embedded in the listfile preamble.
func ToYAML(cfg CrateConfig) ([]byte, error) {
	out := cfg
	for i := range out.Stacks {
		out.Stacks[i].Commands = yamlFromBuilder(out.Stacks[i].Builder)
	}
	out.InitCommandsYAML = yamlFromBuilder(out.InitCommands)
	out.InitTriggerIOYAML = yamlFromBuilder(out.InitTriggerIO)

	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("cratecfg: marshal: %w", err)
	}
	return data, nil
}

func builderFromYAML(groupName string, cmds []yamlCommand) *stackcmd.Builder {
	b := stackcmd.NewBuilder()
	gi := b.AddGroup(groupName)
	for _, yc := range cmds {
		b.AddCommand(gi, commandFromYAML(yc))
	}
	return b
}

func yamlFromBuilder(b *stackcmd.Builder) []yamlCommand {
	if b == nil {
		return nil
	}
	var out []yamlCommand
	for _, cmd := range b.Commands() {
		out = append(out, commandToYAML(cmd))
	}
	return out
}

func commandFromYAML(yc yamlCommand) stackcmd.Command {
	cmd := stackcmd.Command{
		Address:      yc.Address,
		Amod:         amodFromByte(yc.Amod),
		Width:        widthFromByte(yc.Width),
		Value:        yc.Value,
		MaxTransfers: yc.MaxTransfers,
		Millis:       yc.Millis,
		Marker:       yc.Marker,
		Special:      specialFromByte(yc.Special),
	}
	switch yc.Kind {
	case "StackStart":
		cmd.Kind = stackcmd.StackStart
	case "StackEnd":
		cmd.Kind = stackcmd.StackEnd
	case "SoftwareDelay":
		cmd.Kind = stackcmd.SoftwareDelay
	case "VMERead":
		cmd.Kind = stackcmd.VMERead
	case "VMEWrite":
		cmd.Kind = stackcmd.VMEWrite
	case "WriteMarker":
		cmd.Kind = stackcmd.WriteMarker
	case "WriteSpecial":
		cmd.Kind = stackcmd.WriteSpecial
	default:
		cmd.Kind = stackcmd.Invalid
	}
	return cmd
}

func commandToYAML(cmd stackcmd.Command) yamlCommand {
	return yamlCommand{
		Kind:         cmd.Kind.String(),
		Address:      cmd.Address,
		Amod:         uint8(cmd.Amod),
		Width:        uint8(cmd.Width),
		Value:        cmd.Value,
		MaxTransfers: cmd.MaxTransfers,
		Millis:       cmd.Millis,
		Marker:       cmd.Marker,
		Special:      uint8(cmd.Special),
	}
}
