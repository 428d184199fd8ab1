package parser

import (
	"mvlcdaq/pkg/cratecfg"
	"mvlcdaq/pkg/mvlcproto"
	"mvlcdaq/pkg/stackcmd"
)

// blockCursor tracks the remaining words of the BlockRead frame currently
// being consumed for a module's dynamic part, and whether another
// BlockRead frame continues it.
type blockCursor struct {
	active    bool
	wordsLeft int
	continues bool
}

// stepKind classifies one VMERead command within a module's group as
// contributing to the module's prefix, dynamic, or suffix part.
type stepKind uint8

const (
	stepPrefix stepKind = iota
	stepBlock
	stepSuffix
)

type modulePlan struct {
	steps []stepKind
}

// buildModulePlan derives a module's {prefix, block, suffix} shape from
// its command group: VMEReads before the first block-mode read are
// prefix, the block-mode read (if any) is the single dynamic step, and
// VMEReads after it are suffix.
func buildModulePlan(group stackcmd.Group) modulePlan {
	var steps []stepKind
	seenBlock := false
	for _, cmd := range group.Commands {
		if cmd.Kind != stackcmd.VMERead {
			continue
		}
		switch {
		case cmd.Amod.IsBlockMode():
			steps = append(steps, stepBlock)
			seenBlock = true
		case seenBlock:
			steps = append(steps, stepSuffix)
		default:
			steps = append(steps, stepPrefix)
		}
	}
	return modulePlan{steps: steps}
}

// topAction classifies how ParseBuffer's outer loop disposes of an open
// top-level frame's payload words.
type topAction uint8

const (
	actionEvent topAction = iota
	actionSystemEvent
	actionSkip
)

// ReadoutParserState is the parser's resumable state. It carries both the
// outer top-level-frame cursor (stack/continuation/system-event, tracked
// by topOpen/topAction/topRemaining) and the nested event/module/step/block
// cursor, so that ParseBuffer can resume correctly at any word boundary —
// including mid-header or mid-payload splits across separate buffers.
type ReadoutParserState struct {
	cfg cratecfg.CrateConfig

	topOpen      bool
	topAction    topAction
	topRemaining int
	sysEventBuf  []uint32

	inEvent     bool
	eventIndex  int
	moduleIndex int
	stepIndex   int
	block       blockCursor
	modules     []ModuleData

	haveLastSeq bool
	lastSeq     uint32
}

// NewState creates parser state bound to cfg's event/module layout.
func NewState(cfg cratecfg.CrateConfig) *ReadoutParserState {
	return &ReadoutParserState{cfg: cfg}
}

func (s *ReadoutParserState) resetEvent(eventIndex int) {
	s.inEvent = true
	s.eventIndex = eventIndex
	s.moduleIndex = 0
	s.stepIndex = 0
	s.block = blockCursor{}
	groups := s.cfg.Stacks[eventIndex].Builder.Groups
	s.modules = make([]ModuleData, len(groups))
}

// abandon discards an in-progress event — used when a transport-level
// packet gap makes the in-flight event irrecoverable. It also tears down
// the top-level frame cursor: whatever frame was open across the gap is
// no longer trustworthy, so the next word is re-read as a fresh frame
// header instead of being fed to the abandoned event as a continuation.
func (s *ReadoutParserState) abandon() {
	s.inEvent = false
	s.modules = nil
	s.moduleIndex = 0
	s.stepIndex = 0
	s.block = blockCursor{}

	s.topOpen = false
	s.topAction = actionSkip
	s.topRemaining = 0
}

// continueEvent consumes frame words against the current event's module
// plan, resuming from wherever the cursor left off. It returns the number
// of words of frame it consumed and whether the event is now fully
// assembled (with cb.EventData already invoked) — false if frame ran out
// mid-event, with the cursor left in place for the next call.
func (s *ReadoutParserState) continueEvent(frame []mvlcproto.Word, cb Callbacks, counters *Counters) (int, bool) {
	if !s.inEvent {
		// The event this cursor belonged to was abandoned (e.g. a packet
		// gap) between calls; there is nothing left to resume.
		return 0, true
	}

	original := len(frame)
	groups := s.cfg.Stacks[s.eventIndex].Builder.Groups

	for s.moduleIndex < len(groups) {
		plan := buildModulePlan(groups[s.moduleIndex])
		md := &s.modules[s.moduleIndex]

		for s.stepIndex < len(plan.steps) {
			switch plan.steps[s.stepIndex] {
			case stepPrefix:
				if len(frame) == 0 {
					return original - len(frame), false
				}
				md.Prefix = append(md.Prefix, uint32(frame[0]))
				frame = frame[1:]
				s.stepIndex++

			case stepSuffix:
				if len(frame) == 0 {
					return original - len(frame), false
				}
				md.Suffix = append(md.Suffix, uint32(frame[0]))
				frame = frame[1:]
				s.stepIndex++

			case stepBlock:
				if !s.block.active {
					if len(frame) == 0 {
						return original - len(frame), false
					}
					bhdr := mvlcproto.ParseFrameHeader(frame[0])
					if bhdr.Type != mvlcproto.FrameBlockRead {
						counters.ParseResults[ParseResultUnexpectedFrameType]++
						frame = frame[1:]
						s.stepIndex++
						continue
					}
					frame = frame[1:]
					s.block = blockCursor{active: true, wordsLeft: int(bhdr.Length), continues: bhdr.HasFlag(mvlcproto.FlagContinue)}
				}

				for s.block.wordsLeft > 0 && len(frame) > 0 {
					n := s.block.wordsLeft
					if n > len(frame) {
						n = len(frame)
					}
					for _, w := range frame[:n] {
						md.Dynamic = append(md.Dynamic, uint32(w))
					}
					frame = frame[n:]
					s.block.wordsLeft -= n
				}

				if s.block.wordsLeft > 0 {
					return original - len(frame), false
				}

				if s.block.continues {
					s.block.active = false
					continue
				}

				s.block = blockCursor{}
				s.stepIndex++
			}
		}

		counters.recordGroup(s.eventIndex, s.moduleIndex, len(md.Prefix)+len(md.Dynamic)+len(md.Suffix))
		s.moduleIndex++
		s.stepIndex = 0
	}

	if cb.EventData != nil {
		cb.EventData(s.eventIndex, s.modules)
	}
	s.inEvent = false
	s.modules = nil
	return original - len(frame), true
}
