package listfile

import (
	"fmt"
	"os"
)

// PassthroughHandle writes raw bytes directly to a file, no archive
// envelope. Nothing in this module constructs one: the CLI's
// --no-listfile path uses io.Discard, and every compression type it
// offers writes into a zip archive.
type PassthroughHandle struct {
	f *os.File
}

// CreatePassthrough creates (truncating) a raw file at path.
func CreatePassthrough(path string) (*PassthroughHandle, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("listfile: create %s: %w", path, err)
	}
	return &PassthroughHandle{f: f}, nil
}

func (h *PassthroughHandle) Write(p []byte) (int, error) { return h.f.Write(p) }

func (h *PassthroughHandle) Close() error { return h.f.Close() }
