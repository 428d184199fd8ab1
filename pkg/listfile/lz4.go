package listfile

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4EntryHandle frames writes through an LZ4 stream encoder into a
// Stored (uncompressed, so the framing is preserved byte-for-byte) zip
// entry. github.com/pierrec/lz4/v4 is the ecosystem's de facto framed LZ4
// writer, chosen over a raw block coder since this needs a self-delimited
// stream, not just compressed blocks.
type lz4EntryHandle struct {
	zw *lz4.Writer
}

// CreateLZ4Entry opens the archive's single entry and wraps it with an
// LZ4 frame writer at the given compression level (0 = fastest).
func (c *ZipCreator) CreateLZ4Entry(level int) (WriteHandle, error) {
	raw, err := c.rawEntryWriter()
	if err != nil {
		return nil, fmt.Errorf("listfile: create lz4 entry: %w", err)
	}

	zw := lz4.NewWriter(raw)
	opts := []lz4.Option{lz4.BlockChecksumOption(true)}
	if level > 0 {
		opts = append(opts, lz4.CompressionLevelOption(lz4.CompressionLevel(level)))
	}
	if err := zw.Apply(opts...); err != nil {
		return nil, fmt.Errorf("listfile: configure lz4 writer: %w", err)
	}

	return &lz4EntryHandle{zw: zw}, nil
}

func (h *lz4EntryHandle) Write(p []byte) (int, error) {
	return h.zw.Write(p)
}

// Close flushes and closes the LZ4 frame. Call before ZipCreator.Close.
func (h *lz4EntryHandle) Close() error {
	return h.zw.Close()
}

var _ io.Closer = (*lz4EntryHandle)(nil)
