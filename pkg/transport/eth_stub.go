//go:build !unix

package transport

import (
	"fmt"
	"time"
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

// EthPipe is unsupported on non-unix platforms: the readiness-select path
// relies on golang.org/x/sys/unix socket options.
type EthPipe struct{}

func DialEthPipe(host string, port int) (*EthPipe, error) {
	return nil, fmt.Errorf("transport: eth: not supported on this platform")
}

func (p *EthPipe) Read(dst []byte, timeout time.Duration) (int, error) {
	return 0, fmt.Errorf("transport: eth: not supported on this platform")
}

func (p *EthPipe) Write(b []byte) (int, error) {
	return 0, fmt.Errorf("transport: eth: not supported on this platform")
}

func (p *EthPipe) Close() error { return nil }

func (p *EthPipe) Counters() EthPipeCounters { return EthPipeCounters{} }

// ETHTransport bundles the command and data UDP pipes for an
// Ethernet-connected controller.
type ETHTransport struct {
	Command *EthPipe
	Data    *EthPipe
}

func DialETH(host string, basePort int) (*ETHTransport, error) {
	return nil, fmt.Errorf("transport: eth: not supported on this platform")
}

func (t *ETHTransport) Read(dst []byte, timeout time.Duration) (int, error) {
	return 0, fmt.Errorf("transport: eth: not supported on this platform")
}

func (t *ETHTransport) Close() error { return nil }
