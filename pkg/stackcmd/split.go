package stackcmd

import "fmt"

// ErrCommandTooLarge is returned by Split when a single command (plus the
// 2-word StackStart/StackEnd wrapping) exceeds maxStackSize on its own, so
// no progress can be made.
type ErrCommandTooLarge struct {
	Index int
}

func (e *ErrCommandTooLarge) Error() string {
	return fmt.Sprintf("stackcmd: command at index %d exceeds the immediate-stack size bound on its own", e.Index)
}

// Options controls Split's batching policy.
type Options struct {
	// NoBatching, when set, puts each command in its own part.
	NoBatching bool
	// IgnoreDelays, when unset (the default), makes a SoftwareDelay start a
	// new part and stand alone in it.
	IgnoreDelays bool
}

// Split partitions commands into sub-lists whose encoded size — including
// the 2-word StackStart/StackEnd wrapping each part receives when it is
// actually executed — fits within maxStackSize.
//
// A software delay (when IgnoreDelays is unset) always starts a new part
// and is never combined with neighboring commands.
func Split(commands []Command, opts Options, maxStackSize int) ([][]Command, error) {
	if opts.NoBatching {
		result := make([][]Command, 0, len(commands))
		for _, cmd := range commands {
			result = append(result, []Command{cmd})
		}
		return result, nil
	}

	var result [][]Command
	first := 0
	for first < len(commands) {
		encodedSize := 2 // implicit StackStart + StackEnd wrapping
		end := first
		for end < len(commands) {
			cmd := commands[end]
			if cmd.IsSoftwareDelay() && !opts.IgnoreDelays {
				break
			}
			if encodedSize+cmd.EncodedSize() > maxStackSize {
				break
			}
			encodedSize += cmd.EncodedSize()
			end++
		}

		if end == first && commands[first].IsSoftwareDelay() {
			end++
		}

		if end == first {
			return nil, &ErrCommandTooLarge{Index: first}
		}

		part := make([]Command, end-first)
		copy(part, commands[first:end])
		result = append(result, part)
		first = end
	}

	return result, nil
}
