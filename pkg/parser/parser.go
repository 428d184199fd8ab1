package parser

import (
	"context"
	"fmt"
	"time"

	"mvlcdaq/internal/protected"
	"mvlcdaq/pkg/bufferpool"
	"mvlcdaq/pkg/mvlcproto"
)

const (
	ethHeaderWords = 2
	seqModulus     = 1 << 12
)

// ParseBuffer walks one buffer's words, driving cb as complete events and
// system events are assembled, updating counters along the way. The
// top-level frame cursor lives on state, so a StackFrame, a
// StackContinuation chain, or a SystemEvent payload split across two
// buffers resumes correctly across separate ParseBuffer calls — at any
// word boundary, not just on frame boundaries.
func ParseBuffer(state *ReadoutParserState, cb Callbacks, counters *Counters, transportType bufferpool.TransportType, bufferNumber int64, words []uint32) {
	counters.BuffersProcessed++

	stream := words
	if transportType == bufferpool.TransportETH {
		stream = state.assembleEthStream(words, counters)
	}

	pos := 0
	for pos < len(stream) {
		if !state.topOpen {
			hdr := mvlcproto.ParseFrameHeader(stream[pos])
			pos++
			state.topOpen = true
			state.topRemaining = int(hdr.Length)

			switch hdr.Type {
			case mvlcproto.FrameStack:
				if hdr.Length == 0 {
					counters.EmptyStackFrames++
				}
				eventIndex := int(hdr.Stack) - 1
				if eventIndex < 0 || eventIndex >= len(state.cfg.Stacks) {
					counters.ParseResults[ParseResultEventIndexOutOfRange]++
					state.topAction = actionSkip
					break
				}
				counters.EventHits[eventIndex]++
				state.resetEvent(eventIndex)
				state.topAction = actionEvent

			case mvlcproto.FrameStackContinuation:
				if !state.inEvent {
					counters.ParseResults[ParseResultUnexpectedFrameType]++
					state.topAction = actionSkip
					break
				}
				state.topAction = actionEvent

			case mvlcproto.FrameSystemEvent:
				state.topAction = actionSystemEvent
				state.sysEventBuf = state.sysEventBuf[:0]

			default:
				counters.ParseResults[ParseResultUnexpectedFrameType]++
				state.topAction = actionSkip
			}
		}

		avail := len(stream) - pos
		take := state.topRemaining
		if take > avail {
			take = avail
		}
		chunk := stream[pos : pos+take]

		switch state.topAction {
		case actionEvent:
			consumed, done := state.continueEvent(chunk, cb, counters)
			pos += consumed
			state.topRemaining -= consumed
			if done && state.topRemaining > 0 {
				// Event completed before the declared frame length was
				// exhausted; treat the remainder as unused padding.
				counters.UnusedBytes += int64(state.topRemaining * 4)
				state.topAction = actionSkip
			}
			if !done && consumed == len(chunk) && state.topRemaining > 0 {
				// Ran out of buffer mid-event; wait for the next call.
				return
			}

		case actionSystemEvent:
			state.sysEventBuf = append(state.sysEventBuf, chunk...)
			pos += len(chunk)
			state.topRemaining -= len(chunk)

		default: // actionSkip
			pos += len(chunk)
			state.topRemaining -= len(chunk)
		}

		if state.topRemaining == 0 {
			if state.topAction == actionSystemEvent {
				if len(state.sysEventBuf) == 0 {
					counters.ParseResults[ParseResultNoHeader]++
				} else {
					subtype := uint8(state.sysEventBuf[0])
					if int(subtype) < len(counters.SystemEventTypes) {
						counters.SystemEventTypes[subtype]++
					}
					if cb.SystemEvent != nil {
						cb.SystemEvent(subtype, state.sysEventBuf[1:])
					}
				}
			}
			state.topOpen = false
		}
	}
}

// assembleEthStream splits an ETH buffer's payload into UDP packets using
// each packet's 2-word header (sequence mod 2^12, word count), detects
// packet loss by comparing consecutive sequence numbers, and concatenates
// packet payloads into one frame-word stream. A detected gap abandons the
// in-progress event and resyncs on the next frame header.
func (s *ReadoutParserState) assembleEthStream(words []uint32, counters *Counters) []uint32 {
	var out []uint32
	pos := 0
	for pos < len(words) {
		if pos+ethHeaderWords > len(words) {
			counters.ParseResults[ParseResultNoHeader]++
			break
		}
		header := words[pos]
		seq := header & (seqModulus - 1)
		wordCount := int(words[pos+1])
		pos += ethHeaderWords

		if wordCount < 0 || pos+wordCount > len(words) {
			counters.ParseResults[ParseResultNoHeader]++
			break
		}
		packet := words[pos : pos+wordCount]
		pos += wordCount

		counters.EthPacketsProcessed++

		if s.haveLastSeq {
			gap := (seq - s.lastSeq + seqModulus) % seqModulus
			if gap > 1 {
				counters.EthPacketLoss += int64(gap - 1)
				s.abandon()
			}
		}
		s.haveLastSeq = true
		s.lastSeq = seq

		out = append(out, packet...)
	}
	return out
}

// Run drains queues.Filled until an empty sentinel buffer arrives or ctx
// is cancelled, feeding every buffer to ParseBuffer and always returning
// it to queues.Empty — including after a recovered panic, so a parser
// crash never starves the buffer pool.
func Run(ctx context.Context, state *ReadoutParserState, queues *bufferpool.BufferQueues, cb Callbacks, counters *protected.Protected[Counters], outcome *protected.Protected[error]) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		buf, ok := queues.Filled.Dequeue(100 * time.Millisecond)
		if !ok {
			continue
		}
		if buf.Empty() {
			queues.Empty.Enqueue(buf)
			return
		}

		func() {
			defer func() {
				queues.Empty.Enqueue(buf)
				if r := recover(); r != nil {
					counters.With(func(c *Counters) { c.ParserExceptions++ })
					outcome.Set(fmt.Errorf("parser: recovered panic: %v", r))
				}
			}()
			counters.With(func(c *Counters) {
				ParseBuffer(state, cb, c, buf.Type(), buf.Number(), buf.Words())
			})
		}()
	}
}
