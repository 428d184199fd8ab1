package transport

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// USBTransport reads from the controller's single USB bulk-style endpoint.
// Unlike Ethernet, USB never preserves frame boundaries across a single
// Read: a read can end mid-frame, and the caller (the readout worker) is
// responsible for carrying the trailing partial frame into the next
// buffer ("tempMovedBytes").
type USBTransport struct {
	mu   sync.Mutex
	port serial.Port

	counters PipeCounters
}

// USBSelector names which USB MVLC to open: by explicit port path, by
// attach-order index, or by device serial number. Exactly one of these is
// meaningful for a given selector, mirroring the CLI's mutually exclusive
// --mvlc-usb / --mvlc-usb-index / --mvlc-usb-serial flags.
type USBSelector struct {
	PortPath string
	Index    int // -1 if unused
	Serial   string
}

// OpenUSB opens the serial port named by the resolved port path in sel.
// Port resolution from Index/Serial to a concrete path is the external
// device-enumeration collaborator's job; OpenUSB itself only
// opens what PortPath already names.
func OpenUSB(sel USBSelector) (*USBTransport, error) {
	if sel.PortPath == "" {
		return nil, fmt.Errorf("transport: usb: no port path resolved for selector %+v", sel)
	}
	port, err := serial.Open(sel.PortPath, &serial.Mode{BaudRate: 0})
	if err != nil {
		return nil, fmt.Errorf("transport: usb: open %s: %w", sel.PortPath, err)
	}
	return &USBTransport{port: port}, nil
}

func (t *USBTransport) Read(dst []byte, timeout time.Duration) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.port.SetReadTimeout(timeout); err != nil {
		return 0, fmt.Errorf("transport: usb: set read timeout: %w", err)
	}

	t.counters.Reads++
	n, err := t.port.Read(dst)
	if err != nil {
		return n, fmt.Errorf("transport: usb: read: %w", err)
	}
	if n == 0 {
		t.counters.Timeouts++
		return 0, ErrTimeout
	}
	t.counters.BytesRead += int64(n)
	if n < len(dst) {
		t.counters.ShortReads++
	}
	return n, nil
}

// Write sends p over the same USB endpoint Read consumes from — on USB
// the command and data paths share one bulk pipe.
func (t *USBTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("transport: usb: write: %w", err)
	}
	return n, nil
}

func (t *USBTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port.Close()
}

// Counters returns a snapshot of the pipe's receive counters.
func (t *USBTransport) Counters() PipeCounters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters
}
