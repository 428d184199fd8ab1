package readout

import "mvlcdaq/pkg/stackcmd"

// Controller is the command-execution and trigger-control surface the
// worker drives during its start and stop sequences. A concrete
// implementation talks to the physical controller over the command pipe;
// tests supply a fake. Kept as a narrow interface rather than a concrete
// VME client, since the controller-side wire protocol for stack upload
// and trigger arming is outside this module's scope.
type Controller interface {
	// RunStack executes group's commands immediately (the init and
	// init-trigger-IO stacks) and returns the per-group results.
	RunStack(group *stackcmd.Builder) (*stackcmd.GroupedResults, error)

	// WriteStackProgram uploads group to controller memory as the
	// program for stackIndex, to be triggered later by ArmTrigger.
	WriteStackProgram(stackIndex int, group *stackcmd.Builder) error

	// ArmTrigger arms stackIndex's trigger source.
	ArmTrigger(stackIndex int, trigger uint32) error

	// DisableTriggers disarms every stack trigger.
	DisableTriggers() error

	// EnableDataOutput switches the controller into streaming mode.
	EnableDataOutput() error
}
