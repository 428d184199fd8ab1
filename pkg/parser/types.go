// Package parser implements the resumable readout parser: it walks
// ReadoutBuffers in order, reconstructs per-event module data from the
// StackFrame/BlockRead/SystemEvent framing, and invokes callbacks as each
// event completes.
package parser

// ModuleData is one front-end module's contribution to an event: the
// fixed pre-block words, the variable block-read payload, and the fixed
// post-block words. The parser copies each event's words into slices it
// allocates for that event; they are not views into the source buffer.
type ModuleData struct {
	Prefix  []uint32
	Dynamic []uint32
	Suffix  []uint32
}

// Callbacks receives assembled readout data as the parser walks a buffer.
type Callbacks struct {
	EventData   func(eventIndex int, modules []ModuleData)
	SystemEvent func(subtype uint8, contents []uint32)
}
