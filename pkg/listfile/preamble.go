package listfile

import (
	"encoding/binary"
	"fmt"

	"mvlcdaq/pkg/cratecfg"
	"mvlcdaq/pkg/mvlcproto"
)

const magicLen = 8

// magicFor returns the 8-byte, space-padded magic for the transport the
// buffers in this run came from.
func magicFor(kind cratecfg.TransportKind) []byte {
	m := make([]byte, magicLen)
	for i := range m {
		m[i] = ' '
	}
	var s string
	switch kind {
	case cratecfg.TransportETH:
		s = "MVLC_ETH"
	default:
		s = "MVLC_USB"
	}
	copy(m, s)
	return m
}

// systemEventFrame builds one SystemEvent frame: a header word (length
// covers subtype + payload), the subtype word, then the payload words.
// Contents that would overflow the 12-bit length field are split across
// several SystemEvent frames; every frame but the last carries
// FlagContinue, and only the first carries the subtype word. Listfile
// preambles and EOF markers are small enough in practice to never need
// this.
func systemEventFrame(subtype mvlcproto.SystemEventType, payload []mvlcproto.Word) []mvlcproto.Word {
	var out []mvlcproto.Word
	words := append([]mvlcproto.Word{mvlcproto.Word(subtype)}, payload...)

	for len(words) > 0 {
		n := len(words)
		flags := uint16(0)
		if n > mvlcproto.MaxFrameLen {
			n = mvlcproto.MaxFrameLen
			flags = mvlcproto.FlagContinue
		}
		hdr := mvlcproto.FrameHeader{Type: mvlcproto.FrameSystemEvent, Length: uint16(n), Flags: flags}
		out = append(out, hdr.Encode())
		out = append(out, words[:n]...)
		words = words[n:]
	}
	return out
}

// bytesToWords packs a byte slice into little-endian words, padding the
// final word with zero bytes.
func bytesToWords(b []byte) []mvlcproto.Word {
	n := (len(b) + 3) / 4
	words := make([]mvlcproto.Word, n)
	padded := make([]byte, n*4)
	copy(padded, b)
	for i := 0; i < n; i++ {
		words[i] = binary.LittleEndian.Uint32(padded[i*4:])
	}
	return words
}

func wordsToBytes(words []mvlcproto.Word) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// WritePreamble writes the magic bytes followed by a SystemEvent frame
// embedding cfg serialized back to YAML.
func WritePreamble(h WriteHandle, cfg cratecfg.CrateConfig) error {
	magic := magicFor(cfg.Transport.Kind)
	if _, err := h.Write(magic); err != nil {
		return fmt.Errorf("listfile: write magic: %w", err)
	}

	yamlBytes, err := cratecfg.ToYAML(cfg)
	if err != nil {
		return fmt.Errorf("listfile: serialize crate config: %w", err)
	}

	frame := systemEventFrame(mvlcproto.SystemEventConfig, bytesToWords(yamlBytes))
	if _, err := h.Write(wordsToBytes(frame)); err != nil {
		return fmt.Errorf("listfile: write preamble frame: %w", err)
	}
	return nil
}

// WriteEndOfFile writes the closing end-of-file SystemEvent frame.
func WriteEndOfFile(h WriteHandle) error {
	frame := systemEventFrame(mvlcproto.SystemEventEndOfFile, nil)
	if _, err := h.Write(wordsToBytes(frame)); err != nil {
		return fmt.Errorf("listfile: write end-of-file frame: %w", err)
	}
	return nil
}
