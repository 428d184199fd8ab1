package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"flag"

	"golang.org/x/term"

	"mvlcdaq/internal/ffi"
	"mvlcdaq/internal/protected"
	"mvlcdaq/pkg/bufferpool"
	"mvlcdaq/pkg/cratecfg"
	"mvlcdaq/pkg/listfile"
	"mvlcdaq/pkg/parser"
	"mvlcdaq/pkg/readout"
	"mvlcdaq/pkg/stackcmd"
	"mvlcdaq/pkg/transport"
)

var Version = "dev"

func main() {
	mvlcETH := flag.String("mvlc-eth", "", "connect over Ethernet to the given host")
	ethPort := flag.Int("mvlc-eth-port", 0x8001, "ETH command-pipe base port; the data pipe is this port+1")
	mvlcUSB := flag.String("mvlc-usb", "", "connect over USB at the given serial port path")
	usbIndex := flag.Int("mvlc-usb-index", -1, "connect to the Nth USB MVLC in attach order")
	usbSerial := flag.String("mvlc-usb-serial", "", "connect to the USB MVLC with this serial number")

	noListfile := flag.Bool("no-listfile", false, "disable listfile output entirely")
	listfilePath := flag.String("listfile", "", "listfile output path (default: <crateConfig base>.zip)")
	compressionType := flag.String("listfile-compression-type", "zip", "listfile compression: zip, lz4, or none")
	compressionLevel := flag.Int("listfile-compression-level", 1, "compression level (0 = store/fastest)")

	verbose := flag.Bool("v", false, "show a live status line on stderr")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mini-daq [flags] <crateConfig.yaml> <secondsToRun>\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	cfgPath := flag.Arg(0)
	seconds, err := strconv.ParseFloat(flag.Arg(1), 64)
	if err != nil || seconds <= 0 {
		fmt.Fprintf(os.Stderr, "error: secondsToRun must be a positive number, got %q\n", flag.Arg(1))
		os.Exit(1)
	}
	duration := time.Duration(seconds * float64(time.Second))

	ethSelected := *mvlcETH != ""
	usbSelectorCount := 0
	if *mvlcUSB != "" {
		usbSelectorCount++
	}
	if *usbIndex >= 0 {
		usbSelectorCount++
	}
	if *usbSerial != "" {
		usbSelectorCount++
	}
	if usbSelectorCount > 1 {
		fmt.Fprintln(os.Stderr, "error: -mvlc-usb, -mvlc-usb-index, -mvlc-usb-serial are mutually exclusive")
		os.Exit(1)
	}
	if (ethSelected && usbSelectorCount > 0) || (!ethSelected && usbSelectorCount == 0) {
		fmt.Fprintln(os.Stderr, "error: exactly one of -mvlc-eth or -mvlc-usb/-mvlc-usb-index/-mvlc-usb-serial is required")
		os.Exit(1)
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		log.Fatalf("read crate config: %v", err)
	}
	cfg, err := cratecfg.FromYAML(data)
	if err != nil {
		log.Fatalf("parse crate config: %v", err)
	}

	var (
		dataTransport  transport.Transport
		cmdPipe        transport.CommandPipe
		transportType  bufferpool.TransportType
		closeTransport func() error
	)

	switch {
	case ethSelected:
		eth, err := transport.DialETH(*mvlcETH, *ethPort)
		if err != nil {
			log.Fatalf("dial eth %s: %v", *mvlcETH, err)
		}
		dataTransport = eth
		cmdPipe = eth.Command
		transportType = bufferpool.TransportETH
		closeTransport = eth.Close

	case *mvlcUSB != "":
		usb, err := transport.OpenUSB(transport.USBSelector{PortPath: *mvlcUSB})
		if err != nil {
			log.Fatalf("open usb %s: %v", *mvlcUSB, err)
		}
		dataTransport = usb
		cmdPipe = usb
		transportType = bufferpool.TransportUSB
		closeTransport = usb.Close

	default:
		log.Fatalf("usb device selection by index or serial number requires device enumeration, which this module does not implement; pass -mvlc-usb <port path> directly")
	}
	defer func() { _ = closeTransport() }()

	sink, sinkDescription := openListfileSink(*noListfile, *listfilePath, cfgPath, *compressionType, *compressionLevel)
	executor := stackcmd.NewExecutor(cmdPipe, readout.DefaultReadTimeout)
	queues := bufferpool.NewBufferQueues(bufferpool.DefaultCapacity, bufferpool.DefaultCount)

	worker := readout.NewWorker(dataTransport, transportType, executor, queues, sink, cfg)

	var eventsSeen int64
	cb := ffi.AdaptCallbacks(ffi.Callbacks{
		EventData: func(eventIndex int32, modules [ffi.MaxModulesPerEvent]ffi.ModuleView, moduleCount int32) {
			atomic.AddInt64(&eventsSeen, 1)
			_ = modules
			_ = eventIndex
			_ = moduleCount
		},
	})

	parserState := parser.NewState(cfg)
	parserCounters := protected.New(parser.NewCounters())
	parserOutcome := protected.New[error](nil)

	ctx, cancel := context.WithTimeout(context.Background(), duration+5*time.Second)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Printf("signal received, stopping early")
		worker.Stop()
	}()

	parserDone := make(chan struct{})
	go func() {
		parser.Run(ctx, parserState, queues, cb, parserCounters, parserOutcome)
		close(parserDone)
	}()

	enableTerminalStatus()
	showStatus := *verbose && term.IsTerminal(int(os.Stderr.Fd()))

	log.Printf("starting readout via %s → %s, running for %s", describeTransport(*mvlcETH, *mvlcUSB), sinkDescription, duration)

	if err := worker.Start(ctx, duration); err != nil {
		log.Fatalf("start readout: %v", err)
	}

	lastStatus := time.Now()
	for {
		select {
		case <-worker.Done():
			goto stopped
		case <-time.After(100 * time.Millisecond):
			if showStatus && time.Since(lastStatus) >= time.Second {
				c := worker.Counters()
				fmt.Fprintf(os.Stderr, "\rbuffers: %d  bytes: %d  read timeouts: %d          ", c.BuffersRead, c.BytesRead, c.ReadTimeouts)
				lastStatus = time.Now()
			}
		}
	}
stopped:
	if showStatus {
		fmt.Fprintln(os.Stderr)
	}

	// Sentinel hand-off: once the worker is idle, push one empty buffer onto
	// the filled queue so the parser's Run loop sees end-of-stream and
	// returns, then wait for it to drain.
	if empty, ok := queues.Empty.Dequeue(time.Second); ok {
		empty.Reset()
		queues.Filled.Enqueue(empty)
	}
	select {
	case <-parserDone:
	case <-time.After(5 * time.Second):
		log.Printf("parser did not shut down in time")
	}

	printReport(worker.Counters(), worker.Outcome(), parserCounters.Copy(), eventsSeen, ffi.ModulesOverflowCount())

	if err := worker.Outcome().Err; err != nil {
		os.Exit(1)
	}
}

func describeTransport(eth, usb string) string {
	if eth != "" {
		return "eth:" + eth
	}
	return "usb:" + usb
}

// openListfileSink builds the readout.Sink the worker streams buffer
// payloads into, per the -no-listfile / -listfile-compression-type flags.
func openListfileSink(disabled bool, path, cfgPath, compressionType string, level int) (readout.Sink, string) {
	if disabled {
		return readout.Sink{Handle: io.Discard}, "(no listfile)"
	}

	if path == "" {
		ext := filepath.Ext(cfgPath)
		path = strings.TrimSuffix(cfgPath, ext) + ".zip"
	}

	variant, err := ffi.ParseCompressionVariant(compressionType)
	if err != nil {
		log.Fatal(err)
	}

	zc, err := listfile.CreateArchive(path)
	if err != nil {
		log.Fatalf("create listfile %s: %v", path, err)
	}

	switch variant {
	case ffi.CompressionLZ4:
		h, err := zc.CreateLZ4Entry(level)
		if err != nil {
			log.Fatalf("create lz4 listfile entry: %v", err)
		}
		closer, _ := h.(io.Closer)
		return readout.Sink{Handle: h, EntryCloser: closer, ContainerCloser: zc}, path

	case ffi.CompressionNone:
		h, err := zc.CreateZIPEntry(0)
		if err != nil {
			log.Fatalf("create listfile entry: %v", err)
		}
		return readout.Sink{Handle: h, ContainerCloser: zc}, path

	default: // ffi.CompressionZip
		h, err := zc.CreateZIPEntry(level)
		if err != nil {
			log.Fatalf("create listfile entry: %v", err)
		}
		return readout.Sink{Handle: h, ContainerCloser: zc}, path
	}
}

func printReport(wc readout.Counters, outcome readout.Outcome, pc parser.Counters, eventsSeen, modulesOverflow int64) {
	fmt.Fprintf(os.Stderr, "\n--- run summary ---\n")
	fmt.Fprintf(os.Stderr, "buffers read:       %d\n", wc.BuffersRead)
	fmt.Fprintf(os.Stderr, "buffers flushed:    %d\n", wc.BuffersFlushed)
	fmt.Fprintf(os.Stderr, "bytes read:         %d\n", wc.BytesRead)
	fmt.Fprintf(os.Stderr, "read timeouts:      %d\n", wc.ReadTimeouts)
	fmt.Fprintf(os.Stderr, "pool misses:        %d\n", wc.SnoopMissedBuffers)
	if wc.UsbTempMovedBytes > 0 {
		fmt.Fprintf(os.Stderr, "usb carry bytes:    %d\n", wc.UsbTempMovedBytes)
	}
	if !wc.TStart.IsZero() && !wc.TTerminateStart.IsZero() {
		fmt.Fprintf(os.Stderr, "run duration:       %s\n", wc.TTerminateStart.Sub(wc.TStart))
	}
	fmt.Fprintf(os.Stderr, "buffers parsed:     %d\n", pc.BuffersProcessed)
	fmt.Fprintf(os.Stderr, "events assembled:   %d\n", eventsSeen)
	fmt.Fprintf(os.Stderr, "eth packet loss:    %d\n", pc.EthPacketLoss)
	fmt.Fprintf(os.Stderr, "parser exceptions:  %d\n", pc.ParserExceptions)
	if modulesOverflow > 0 {
		fmt.Fprintf(os.Stderr, "events truncated to %d modules: %d\n", ffi.MaxModulesPerEvent, modulesOverflow)
	}
	if outcome.Err != nil {
		fmt.Fprintf(os.Stderr, "terminal error:     %v\n", outcome.Err)
	}
}
