package stackcmd

// Group is one named, ordered list of commands — conceptually one "event"
// in the readout.
type Group struct {
	Name     string
	Commands []Command
}

// Builder is an ordered list of named Groups describing a full stack
// program.
type Builder struct {
	Groups []Group
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddGroup appends a new named group and returns its index.
func (b *Builder) AddGroup(name string) int {
	b.Groups = append(b.Groups, Group{Name: name})
	return len(b.Groups) - 1
}

// AddCommand appends cmd to the group at groupIndex.
func (b *Builder) AddCommand(groupIndex int, cmd Command) {
	b.Groups[groupIndex].Commands = append(b.Groups[groupIndex].Commands, cmd)
}

// Commands flattens all groups into a single ordered command list, the form
// consumed by Split and ParseResponse.
func (b *Builder) Commands() []Command {
	var out []Command
	for _, g := range b.Groups {
		out = append(out, g.Commands...)
	}
	return out
}

// GroupSizes returns the command count of each group, in order.
func (b *Builder) GroupSizes() []int {
	sizes := make([]int, len(b.Groups))
	for i, g := range b.Groups {
		sizes[i] = len(g.Commands)
	}
	return sizes
}
