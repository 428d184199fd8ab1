package stackcmd

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"mvlcdaq/pkg/mvlcproto"
	"mvlcdaq/pkg/transport"
)

// Executor runs stack programs over a command pipe by wrapping a group's
// commands in StackStart/StackEnd, writing the encoded opcode stream, and
// parsing the response frame stream it reads back. This is the immediate
// "run these commands now and read the response" execution path.
//
// The register-level protocol for uploading a stack program to controller
// memory for later triggered execution, and for arming/disarming trigger
// sources, is not modeled by pkg/mvlcproto — only the immediate
// execute-and-respond path is real wire protocol. ArmTrigger,
// DisableTriggers, and EnableDataOutput track armed/enabled state locally
// and WriteStackProgram does nothing, so a Worker's start/stop sequence
// completes end to end; none of them drive a real trigger register.
type Executor struct {
	cmdPipe     transport.CommandPipe
	readTimeout time.Duration

	mu      sync.Mutex
	armed   map[int]uint32
	enabled bool
}

// NewExecutor wraps cmdPipe, the command pipe RunStack writes opcodes to
// and reads responses from.
func NewExecutor(cmdPipe transport.CommandPipe, readTimeout time.Duration) *Executor {
	return &Executor{cmdPipe: cmdPipe, readTimeout: readTimeout, armed: make(map[int]uint32)}
}

func encodeCommands(commands []Command) ([]byte, error) {
	var words []mvlcproto.Word
	for _, cmd := range commands {
		w, err := cmd.Encode()
		if err != nil {
			return nil, err
		}
		words = append(words, w...)
	}
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out, nil
}

// readResponse reads from the command pipe until a read times out or
// returns fewer bytes than the read buffer holds, accumulating whatever
// bytes arrived into the response buffer. Stack
// exec responses are small and arrive well within a handful of reads.
func readResponse(pipe transport.CommandPipe, timeout time.Duration) ([]mvlcproto.Word, error) {
	var raw []byte
	buf := make([]byte, 4096)
	for {
		n, err := pipe.Read(buf, timeout)
		if err != nil {
			if err == transport.ErrTimeout {
				break
			}
			return nil, fmt.Errorf("stackcmd: executor: read response: %w", err)
		}
		raw = append(raw, buf[:n]...)
		if n < len(buf) {
			break
		}
	}
	words := make([]mvlcproto.Word, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return words, nil
}

// RunStack wraps group's commands in StackStart/StackEnd, writes the
// encoded opcode stream to the command pipe, reads the response, and
// returns it parsed and re-partitioned onto group's named groups.
func (e *Executor) RunStack(group *Builder) (*GroupedResults, error) {
	full := append([]Command{{Kind: StackStart}}, group.Commands()...)
	full = append(full, Command{Kind: StackEnd})

	payload, err := encodeCommands(full)
	if err != nil {
		return nil, fmt.Errorf("stackcmd: executor: encode: %w", err)
	}
	if _, err := e.cmdPipe.Write(payload); err != nil {
		return nil, fmt.Errorf("stackcmd: executor: write: %w", err)
	}

	response, err := readResponse(e.cmdPipe, e.readTimeout)
	if err != nil {
		return nil, err
	}
	return ParseGroupedResponse(group, response, nil)
}

// WriteStackProgram does nothing and returns nil; neither group nor
// stackIndex is stored. See the Executor doc comment: no register write
// reaches the controller.
func (e *Executor) WriteStackProgram(stackIndex int, group *Builder) error {
	return nil
}

// ArmTrigger records stackIndex's trigger as armed. See the Executor doc
// comment: no register write reaches the controller.
func (e *Executor) ArmTrigger(stackIndex int, trigger uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.armed[stackIndex] = trigger
	return nil
}

// DisableTriggers clears every armed trigger. See the Executor doc
// comment: no register write reaches the controller.
func (e *Executor) DisableTriggers() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.armed = make(map[int]uint32)
	e.enabled = false
	return nil
}

// EnableDataOutput marks the executor as streaming. See the Executor doc
// comment: no register write reaches the controller.
func (e *Executor) EnableDataOutput() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = true
	return nil
}
