package readout

import (
	"bytes"
	"context"
	"testing"
	"time"

	"mvlcdaq/pkg/bufferpool"
	"mvlcdaq/pkg/cratecfg"
	"mvlcdaq/pkg/stackcmd"
)

// fakeTransport copies as much of data as fits into each Read call; once
// data is drained, every Read sleeps a millisecond and returns zero bytes
// with no error.
type fakeTransport struct {
	data []byte
}

func (f *fakeTransport) Read(dst []byte, timeout time.Duration) (int, error) {
	if len(f.data) == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	n := copy(dst, f.data)
	f.data = f.data[n:]
	return n, nil
}

func (f *fakeTransport) Close() error { return nil }

type fakeController struct{}

func (fakeController) RunStack(group *stackcmd.Builder) (*stackcmd.GroupedResults, error) {
	return &stackcmd.GroupedResults{}, nil
}
func (fakeController) WriteStackProgram(stackIndex int, group *stackcmd.Builder) error { return nil }
func (fakeController) ArmTrigger(stackIndex int, trigger uint32) error                 { return nil }
func (fakeController) DisableTriggers() error                                         { return nil }
func (fakeController) EnableDataOutput() error                                        { return nil }

type bufWriteHandle struct {
	buf bytes.Buffer
}

func (h *bufWriteHandle) Write(p []byte) (int, error) { return h.buf.Write(p) }

func testCfg() cratecfg.CrateConfig {
	return cratecfg.CrateConfig{
		Transport:     cratecfg.TransportConfig{Kind: cratecfg.TransportETH, ETHHost: "mvlc-1"},
		InitCommands:  stackcmd.NewBuilder(),
		InitTriggerIO: stackcmd.NewBuilder(),
		Stacks: []cratecfg.StackConfig{
			{Name: "event0", Trigger: 1, Builder: stackcmd.NewBuilder()},
		},
	}
}

func TestWorkerStartRunsToCompletion(t *testing.T) {
	xport := &fakeTransport{data: bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 16)}
	queues := bufferpool.NewBufferQueues(256, 4)
	sink := Sink{Handle: &bufWriteHandle{}}

	w := NewWorker(xport, bufferpool.TransportETH, fakeController{}, queues, sink, testCfg())

	if err := w.Start(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish")
	}

	if w.State() != Idle {
		t.Fatalf("expected Idle after completion, got %v", w.State())
	}
	if outcome := w.Outcome(); outcome.Err != nil {
		t.Fatalf("unexpected outcome error: %v", outcome.Err)
	}
	counters := w.Counters()
	if counters.BuffersRead == 0 {
		t.Fatalf("expected at least one buffer read")
	}
}

func TestWorkerPauseResume(t *testing.T) {
	xport := &fakeTransport{}
	queues := bufferpool.NewBufferQueues(256, 4)
	sink := Sink{Handle: &bufWriteHandle{}}

	w := NewWorker(xport, bufferpool.TransportETH, fakeController{}, queues, sink, testCfg())

	if err := w.Start(context.Background(), 200*time.Millisecond); err != nil {
		t.Fatalf("Start: %v", err)
	}

	w.Pause()
	if err := w.WaitFor(context.Background(), func(s State) bool { return s == Paused }); err != nil {
		t.Fatalf("WaitFor Paused: %v", err)
	}

	w.Resume()
	if err := w.WaitFor(context.Background(), func(s State) bool { return s == Running }); err != nil {
		t.Fatalf("WaitFor Running: %v", err)
	}

	w.Stop()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish after Stop")
	}
	if w.State() != Idle {
		t.Fatalf("expected Idle after Stop, got %v", w.State())
	}
}

func TestWorkerRejectsDoubleStart(t *testing.T) {
	xport := &fakeTransport{}
	queues := bufferpool.NewBufferQueues(256, 4)
	sink := Sink{Handle: &bufWriteHandle{}}

	w := NewWorker(xport, bufferpool.TransportETH, fakeController{}, queues, sink, testCfg())

	if err := w.Start(context.Background(), 200*time.Millisecond); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Start(context.Background(), 200*time.Millisecond); err == nil {
		t.Fatalf("expected error starting an already-running worker")
	}
	w.Stop()
	<-w.Done()
}
