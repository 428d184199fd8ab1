// Package readout implements the readout worker: the state machine that
// drives one DAQ run from init through streaming readout to teardown,
// handing filled buffers to the parser via a bounded pool.
package readout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"mvlcdaq/internal/protected"
	"mvlcdaq/pkg/bufferpool"
	"mvlcdaq/pkg/cratecfg"
	"mvlcdaq/pkg/listfile"
	"mvlcdaq/pkg/transport"
)

// Default timeouts, matching the source's fixed 100ms bounds on every
// suspension point so deadlines stay honored.
const (
	DefaultReadTimeout    = 100 * time.Millisecond
	DefaultDequeueTimeout = 100 * time.Millisecond
	terminateDrainTimeout = 100 * time.Millisecond
)

// Outcome captures a run's terminal condition — the clean re-architecture
// of the source's smuggled current-exception pointer. A nil Err means the
// run ended without a fatal error.
type Outcome struct {
	Err error
}

// Sink bundles the WriteHandle the worker streams buffer payloads into
// with whatever must be closed, in order, once the run stops.
type Sink struct {
	Handle          listfile.WriteHandle
	EntryCloser     io.Closer // the lz4 frame, if compression is lz4; nil otherwise
	ContainerCloser io.Closer // the archive file (ZipCreator or PassthroughHandle)
}

// Worker drives one readout run against a Controller and Transport,
// streaming buffers through a listfile Sink and into a BufferQueues pool.
type Worker struct {
	xport         transport.Transport
	transportType bufferpool.TransportType
	controller    Controller
	queues        *bufferpool.BufferQueues
	writer        *listfile.CountingHandle
	sink          Sink
	cfg           cratecfg.CrateConfig

	state    *stateBox
	counters *protected.Protected[Counters]
	outcome  *protected.Protected[Outcome]

	bufferNumber int64
	usbCarry     []byte

	pauseCh  chan struct{}
	resumeCh chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWorker assembles a Worker. transportType selects USB vs ETH framing
// behavior in the run loop.
func NewWorker(
	xport transport.Transport,
	transportType bufferpool.TransportType,
	controller Controller,
	queues *bufferpool.BufferQueues,
	sink Sink,
	cfg cratecfg.CrateConfig,
) *Worker {
	return &Worker{
		xport:         xport,
		transportType: transportType,
		controller:    controller,
		queues:        queues,
		writer:        listfile.NewCountingHandle(sink.Handle),
		sink:          sink,
		cfg:           cfg,
		state:         newStateBox(Idle),
		counters:      protected.New(newCounters()),
		outcome:       protected.New(Outcome{}),
		pauseCh:       make(chan struct{}, 1),
		resumeCh:      make(chan struct{}, 1),
		stopCh:        make(chan struct{}, 1),
		doneCh:        make(chan struct{}),
	}
}

// State returns the worker's current state.
func (w *Worker) State() State { return w.state.Get() }

// WaitFor blocks until predicate holds for the worker's state or ctx ends.
func (w *Worker) WaitFor(ctx context.Context, predicate func(State) bool) error {
	return w.state.WaitFor(ctx, predicate)
}

// Counters returns a snapshot of the worker's stats.
func (w *Worker) Counters() Counters { return w.counters.Copy() }

// Outcome returns the run's terminal condition, valid once Idle.
func (w *Worker) Outcome() Outcome { return w.outcome.Copy() }

// Stop requests an early stop of a running or paused worker.
func (w *Worker) Stop() {
	select {
	case w.stopCh <- struct{}{}:
	default:
	}
}

// Pause requests the worker suspend streaming without tearing down.
func (w *Worker) Pause() {
	select {
	case w.pauseCh <- struct{}{}:
	default:
	}
}

// Resume requests a paused worker resume streaming.
func (w *Worker) Resume() {
	select {
	case w.resumeCh <- struct{}{}:
	default:
	}
}

// Start runs the init sequence synchronously and, on success, launches the
// run loop in a goroutine bounded by duration. It returns once the init
// sequence completes (or fails); callers observe run completion via
// WaitFor(ctx, Idle-predicate) or Done().
func (w *Worker) Start(ctx context.Context, duration time.Duration) error {
	if w.state.Get() != Idle {
		return fmt.Errorf("readout: start: worker is not Idle")
	}
	w.state.Set(Starting)

	if _, err := w.controller.RunStack(w.cfg.InitCommands); err != nil {
		w.state.Set(Idle)
		return fmt.Errorf("readout: init commands: %w", err)
	}
	if _, err := w.controller.RunStack(w.cfg.InitTriggerIO); err != nil {
		w.state.Set(Idle)
		return fmt.Errorf("readout: init trigger io: %w", err)
	}

	if err := listfile.WritePreamble(w.writer, w.cfg); err != nil {
		w.state.Set(Idle)
		return fmt.Errorf("readout: write preamble: %w", err)
	}

	for i, stack := range w.cfg.Stacks {
		if err := w.controller.WriteStackProgram(i, stack.Builder); err != nil {
			w.state.Set(Idle)
			return fmt.Errorf("readout: write stack program %d: %w", i, err)
		}
		if err := w.controller.ArmTrigger(i, stack.Trigger); err != nil {
			w.state.Set(Idle)
			return fmt.Errorf("readout: arm trigger %d: %w", i, err)
		}
	}

	if err := w.controller.EnableDataOutput(); err != nil {
		w.state.Set(Idle)
		return fmt.Errorf("readout: enable data output: %w", err)
	}

	w.counters.With(func(c *Counters) { c.TStart = time.Now() })
	w.state.Set(Running)

	go w.runLoop(ctx, duration)
	return nil
}

// Done returns a channel closed once the worker reaches Idle after Start.
func (w *Worker) Done() <-chan struct{} { return w.doneCh }

func (w *Worker) runLoop(ctx context.Context, duration time.Duration) {
	deadline := time.Now().Add(duration)
	paused := false

	defer func() {
		w.stopSequence()
		close(w.doneCh)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-w.pauseCh:
			paused = true
			w.state.Set(Paused)
		case <-w.resumeCh:
			if paused {
				paused = false
				w.state.Set(Running)
			}
		default:
		}

		if time.Now().After(deadline) {
			return
		}

		if paused {
			time.Sleep(DefaultDequeueTimeout)
			continue
		}

		if fatal := w.stepOnce(); fatal != nil {
			w.outcome.Set(Outcome{Err: fatal})
			return
		}
	}
}

// stepOnce dequeues a free buffer, fills it from the transport, applies
// USB frame-boundary trimming if needed, flushes it to the listfile, and
// hands it to the filled queue. A non-nil return is a fatal transport or
// listfile error.
func (w *Worker) stepOnce() error {
	buf, ok := w.queues.Empty.Dequeue(DefaultDequeueTimeout)
	if !ok {
		// Pool exhausted: rather than block the worker indefinitely, skip
		// this iteration and count the miss.
		w.counters.With(func(c *Counters) { c.SnoopMissedBuffers++ })
		return nil
	}
	buf.Reset()
	buf.SetType(w.transportType)

	if w.transportType == bufferpool.TransportUSB && len(w.usbCarry) > 0 {
		copy(buf.Free(), w.usbCarry)
		buf.Grow(len(w.usbCarry))
		w.usbCarry = nil
	}

	for buf.Used() < buf.Capacity() {
		free := buf.Free()
		wantLen := len(free)
		n, err := w.xport.Read(free, DefaultReadTimeout)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				w.counters.With(func(c *Counters) { c.ReadTimeouts++ })
				break
			}
			return fmt.Errorf("readout: transport read: %w", err)
		}
		buf.Grow(n)
		w.counters.With(func(c *Counters) { c.BytesRead += int64(n) })
		if n < wantLen {
			// a short read: the buffer is as full as this cycle will get
			break
		}
	}

	if w.transportType == bufferpool.TransportUSB {
		used, carry := trimUSBFrameBoundary(buf.Bytes())
		if len(carry) > maxUSBCarry {
			return fmt.Errorf("readout: usb carry of %d bytes exceeds bound %d", len(carry), maxUSBCarry)
		}
		w.usbCarry = append([]byte(nil), carry...)
		w.counters.With(func(c *Counters) { c.UsbTempMovedBytes = int64(len(w.usbCarry)) })
		buf.SetUsed(used)
	}

	if buf.Used() == 0 {
		// Nothing read this cycle (idle poll / read timeout with no bytes).
		// An ordinary idle buffer goes straight back to the empty queue;
		// only the shutdown sequence's deliberately cleared buffer belongs
		// on the filled queue as the end-of-stream sentinel.
		w.queues.Empty.Enqueue(buf)
		return nil
	}

	if _, err := w.writer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("readout: listfile write: %w", err)
	}
	w.counters.With(func(c *Counters) { c.BuffersFlushed++ })

	w.bufferNumber++
	buf.SetNumber(w.bufferNumber)
	w.queues.Filled.Enqueue(buf)
	w.counters.With(func(c *Counters) { c.BuffersRead++ })

	return nil
}

// stopSequence disables triggers, drains briefly, writes the end-of-file
// SystemEvent, closes the archive, and returns the worker to Idle.
func (w *Worker) stopSequence() {
	w.state.Set(Stopping)

	if err := w.controller.DisableTriggers(); err != nil {
		w.outcome.With(func(o *Outcome) {
			if o.Err == nil {
				o.Err = fmt.Errorf("readout: disable triggers: %w", err)
			}
		})
	}

	drainDeadline := time.Now().Add(terminateDrainTimeout)
	for time.Now().Before(drainDeadline) {
		if err := w.stepOnce(); err != nil {
			break
		}
	}

	if err := listfile.WriteEndOfFile(w.writer); err != nil {
		w.outcome.With(func(o *Outcome) {
			if o.Err == nil {
				o.Err = fmt.Errorf("readout: write end of file: %w", err)
			}
		})
	}

	if w.sink.EntryCloser != nil {
		_ = w.sink.EntryCloser.Close()
	}
	if w.sink.ContainerCloser != nil {
		_ = w.sink.ContainerCloser.Close()
	}

	w.counters.With(func(c *Counters) { c.TTerminateStart = time.Now() })
	w.state.Set(Idle)
}
