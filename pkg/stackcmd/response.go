package stackcmd

import (
	"errors"
	"fmt"

	"mvlcdaq/pkg/mvlcproto"
)

// Result is the outcome of executing one Command against the controller.
type Result struct {
	Cmd      Command
	Response []mvlcproto.Word
	Err      error
}

// blockCursor tracks the remaining words of the BlockRead frame currently
// being consumed, and whether another BlockRead frame continues it.
type blockCursor struct {
	wordsLeft int
	continues bool
	active    bool
}

// parseState carries the in-progress Result and block cursor across
// StackFrame/StackContinuation boundaries — the resumable state a caller
// would persist if a response arrived split across reads.
type parseState struct {
	partial   Result
	hasPartial bool
	block     blockCursor
}

// ParseResponse walks commands against the words produced by executing
// them, reconstructing one Result per result-producing command. response is
// a sequence of StackFrames, each optionally followed by StackContinuation
// frames (flagged via FlagContinue on the preceding frame).
func ParseResponse(commands []Command, response []mvlcproto.Word) ([]Result, error) {
	if len(commands) == 0 {
		return nil, nil
	}
	if len(response) == 0 {
		return nil, errors.New("stackcmd: empty response buffer")
	}

	cmdIdx := 0
	results := make([]Result, 0, len(commands))
	var st parseState

	pos := 0
	for pos < len(response) && cmdIdx < len(commands) {
		hdr := mvlcproto.ParseFrameHeader(response[pos])
		if hdr.Type != mvlcproto.FrameStack {
			return nil, fmt.Errorf("stackcmd: expected StackFrame header at word %d, got %s", pos, hdr.Type)
		}
		if len(response) < pos+1+int(hdr.Length) {
			return nil, fmt.Errorf("stackcmd: StackFrame length %d exceeds response size", hdr.Length)
		}
		pos++
		frame := response[pos : pos+int(hdr.Length)]
		pos += int(hdr.Length)

		var err error
		cmdIdx, _, err = parseStackFrame(frame, commands, cmdIdx, &st, &results)
		if err != nil {
			return nil, err
		}

		for hdr.HasFlag(mvlcproto.FlagContinue) {
			if pos >= len(response) {
				return nil, errors.New("stackcmd: response ends mid StackContinuation chain")
			}
			hdr = mvlcproto.ParseFrameHeader(response[pos])
			if hdr.Type != mvlcproto.FrameStackContinuation {
				return nil, fmt.Errorf("stackcmd: expected StackContinuation header, got %s", hdr.Type)
			}
			if len(response) < pos+1+int(hdr.Length) {
				return nil, fmt.Errorf("stackcmd: StackContinuation length %d exceeds response size", hdr.Length)
			}
			pos++
			cont := response[pos : pos+int(hdr.Length)]
			pos += int(hdr.Length)

			cmdIdx, _, err = parseStackFrame(cont, commands, cmdIdx, &st, &results)
			if err != nil {
				return nil, err
			}
		}
	}

	return results, nil
}

// parseStackFrame consumes as much of frame as the commands starting at
// cmdIdx demand, emitting completed Results into dest. It returns when
// either the command list or the frame is exhausted; an exhausted frame
// mid-block leaves the partial Result in st for the next frame to resume.
func parseStackFrame(frame []mvlcproto.Word, commands []Command, cmdIdx int, st *parseState, dest *[]Result) (int, []mvlcproto.Word, error) {
	for cmdIdx < len(commands) {
		cmd := commands[cmdIdx]

		switch cmd.Kind {
		case Invalid:
			return cmdIdx, frame, errors.New("stackcmd: invalid stack command type in response")

		case StackStart, StackEnd:
			cmdIdx++

		case SoftwareDelay:
			*dest = append(*dest, Result{Cmd: cmd})
			cmdIdx++

		case VMERead:
			if !cmd.Amod.IsBlockMode() {
				if len(frame) == 0 {
					return cmdIdx, frame, nil
				}
				value := frame[0]
				if cmd.Width == mvlcproto.D16 {
					value &= 0xFFFF
				}
				*dest = append(*dest, Result{Cmd: cmd, Response: []mvlcproto.Word{value}})
				frame = frame[1:]
				cmdIdx++
				continue
			}

			if !st.hasPartial {
				if len(frame) == 0 {
					return cmdIdx, frame, nil
				}
				bhdr := mvlcproto.ParseFrameHeader(frame[0])
				if bhdr.Type != mvlcproto.FrameBlockRead {
					return cmdIdx, frame, fmt.Errorf("stackcmd: expected BlockRead frame, got %s", bhdr.Type)
				}
				st.partial = Result{Cmd: cmd}
				st.hasPartial = true
				st.block = blockCursor{wordsLeft: int(bhdr.Length), continues: bhdr.HasFlag(mvlcproto.FlagContinue), active: true}
				frame = frame[1:]
			}

			for {
				if st.block.wordsLeft == 0 {
					if st.block.continues {
						if len(frame) == 0 {
							return cmdIdx, frame, nil
						}
						bhdr := mvlcproto.ParseFrameHeader(frame[0])
						if bhdr.Type != mvlcproto.FrameBlockRead {
							return cmdIdx, frame, fmt.Errorf("stackcmd: expected BlockRead frame, got %s", bhdr.Type)
						}
						st.block = blockCursor{wordsLeft: int(bhdr.Length), continues: bhdr.HasFlag(mvlcproto.FlagContinue), active: true}
						frame = frame[1:]
						continue
					}
					*dest = append(*dest, st.partial)
					st.hasPartial = false
					st.block = blockCursor{}
					cmdIdx++
					break
				}

				toCopy := st.block.wordsLeft
				if toCopy > len(frame) {
					toCopy = len(frame)
				}
				if toCopy == 0 {
					break
				}
				st.partial.Response = append(st.partial.Response, frame[:toCopy]...)
				st.block.wordsLeft -= toCopy
				frame = frame[toCopy:]
			}

		case VMEWrite:
			*dest = append(*dest, Result{Cmd: cmd})
			cmdIdx++

		case WriteMarker, WriteSpecial:
			if len(frame) == 0 {
				return cmdIdx, frame, nil
			}
			*dest = append(*dest, Result{Cmd: cmd, Response: []mvlcproto.Word{frame[0]}})
			frame = frame[1:]
			cmdIdx++

		default:
			return cmdIdx, frame, fmt.Errorf("stackcmd: unknown command kind %v", cmd.Kind)
		}
	}

	return cmdIdx, frame, nil
}

// GroupedResults maps a flat Result list back onto a Builder's named
// groups, one Group of results per input Group.
type GroupedResults struct {
	Groups []ResultGroup
}

// ResultGroup holds the Results produced by one named Group's commands.
type ResultGroup struct {
	Name    string
	Results []Result
}

// ParseGroupedResponse parses response against builder's flattened command
// list and re-partitions the Results onto builder's groups, attaching the
// i-th execErrors entry to the first Result of the i-th group.
func ParseGroupedResponse(builder *Builder, response []mvlcproto.Word, execErrors []error) (*GroupedResults, error) {
	results, err := ParseResponse(builder.Commands(), response)
	if err != nil {
		return nil, err
	}

	ret := &GroupedResults{}
	idx := 0
	for gi, group := range builder.Groups {
		rg := ResultGroup{Name: group.Name}
		first := true
		for range group.Commands {
			if idx >= len(results) {
				break
			}
			r := results[idx]
			if first && gi < len(execErrors) && execErrors[gi] != nil {
				r.Err = execErrors[gi]
			}
			first = false
			rg.Results = append(rg.Results, r)
			idx++
		}
		ret.Groups = append(ret.Groups, rg)
	}

	return ret, nil
}
