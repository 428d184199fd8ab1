//go:build unix

package transport

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/creack/goselect"
	"golang.org/x/sys/unix"
)

// EthPipeCounters extends PipeCounters with the UDP-specific receive
// diagnostics the Ethernet transport reports.
type EthPipeCounters struct {
	PipeCounters

	ReceiveAttempts    int64
	ReceivedPackets    int64
	ReceivedBytes      int64
	ShortPackets       int64
	PacketsWithResidue int64
	NoHeader           int64
	HeaderOutOfRange   int64
	LostPackets        int64
}

// ethHeaderWords is the 2-word packet header: sequence number modulo 2^12,
// plus a word count.
const ethHeaderWords = 2

const seqModulus = 1 << 12

// EthPipe is one of the two independent UDP sockets (command, data) an
// Ethernet-connected controller exposes.
type EthPipe struct {
	mu   sync.Mutex
	conn *net.UDPConn

	haveSeq  bool
	lastSeq  uint32
	counters EthPipeCounters
}

// DialEthPipe opens a UDP socket to host:port and tunes its receive buffer
// via golang.org/x/sys/unix socket options.
func DialEthPipe(host string, port int) (*EthPipe, error) {
	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("transport: eth: resolve %s:%d: %w", host, port, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("transport: eth: dial %s:%d: %w", host, port, err)
	}

	if raw, rerr := conn.SyscallConn(); rerr == nil {
		_ = raw.Control(func(fd uintptr) {
			_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, 1<<20)
		})
	}

	return &EthPipe{conn: conn}, nil
}

// Read waits up to timeout for the socket to become readable, then reads
// one UDP datagram into dst. A readiness timeout with nothing ready
// returns ErrTimeout.
func (p *EthPipe) Read(dst []byte, timeout time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counters.ReceiveAttempts++

	raw, err := p.conn.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("transport: eth: syscall conn: %w", err)
	}

	var fd uintptr
	_ = raw.Control(func(f uintptr) { fd = f })

	readSet := goselect.NewFDSet()
	readSet.Set(fd)

	ready, err := goselect.Select(int(fd)+1, readSet, nil, nil, timeout)
	if err != nil {
		return 0, fmt.Errorf("transport: eth: select: %w", err)
	}
	if ready == 0 {
		p.counters.Timeouts++
		return 0, ErrTimeout
	}

	n, _, err := p.conn.ReadFromUDP(dst)
	if err != nil {
		return n, fmt.Errorf("transport: eth: read: %w", err)
	}
	p.counters.Reads++
	p.counters.BytesRead += int64(n)
	p.counters.ReceivedPackets++
	p.counters.ReceivedBytes += int64(n)

	p.trackSequence(dst[:n])

	return n, nil
}

// trackSequence inspects a packet's 2-word header and bumps LostPackets on
// any forward gap in the sequence number (mod 2^12).
func (p *EthPipe) trackSequence(packet []byte) {
	if len(packet) < ethHeaderWords*4 {
		p.counters.ShortPackets++
		p.counters.NoHeader++
		return
	}

	header := binary.LittleEndian.Uint32(packet[0:4])
	seq := header & (seqModulus - 1)
	wordCount := binary.LittleEndian.Uint32(packet[4:8])

	expectedBytes := ethHeaderWords*4 + int(wordCount)*4
	if expectedBytes > len(packet) {
		p.counters.HeaderOutOfRange++
		return
	}
	if expectedBytes < len(packet) {
		p.counters.PacketsWithResidue++
	}

	if p.haveSeq {
		gap := (seq - p.lastSeq + seqModulus) % seqModulus
		if gap > 1 {
			p.counters.LostPackets += int64(gap - 1)
		}
	}
	p.haveSeq = true
	p.lastSeq = seq
}

// Write sends p as a single UDP datagram.
func (p *EthPipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.conn.Write(b)
	if err != nil {
		return n, fmt.Errorf("transport: eth: write: %w", err)
	}
	return n, nil
}

// Close releases the underlying socket.
func (p *EthPipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.Close()
}

// Counters returns a snapshot of the pipe's receive counters.
func (p *EthPipe) Counters() EthPipeCounters {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters
}

// ETHTransport bundles the command and data UDP pipes for an
// Ethernet-connected controller. The Transport interface methods operate
// on the data pipe, the one the readout worker streams from; Command is
// used separately for synchronous request/response exchanges.
type ETHTransport struct {
	Command *EthPipe
	Data    *EthPipe
}

// DialETH opens both pipes to host. MVLC convention: the command pipe is
// the base port, the data pipe is base+1.
func DialETH(host string, basePort int) (*ETHTransport, error) {
	cmd, err := DialEthPipe(host, basePort)
	if err != nil {
		return nil, err
	}
	data, err := DialEthPipe(host, basePort+1)
	if err != nil {
		_ = cmd.Close()
		return nil, err
	}
	return &ETHTransport{Command: cmd, Data: data}, nil
}

func (t *ETHTransport) Read(dst []byte, timeout time.Duration) (int, error) {
	return t.Data.Read(dst, timeout)
}

func (t *ETHTransport) Close() error {
	err1 := t.Command.Close()
	err2 := t.Data.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
