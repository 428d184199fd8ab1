package listfile

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

// entryName is the single archive member every listfile carries.
const entryName = "listfile.mvlclst"

// ZipCreator owns a zip-format archive on disk and the single streaming
// entry written into it, using archive/zip as the container writer — no
// custom zip format is implemented here.
type ZipCreator struct {
	file *os.File
	zw   *zip.Writer
}

// CreateArchive creates (truncating) the zip file at path.
func CreateArchive(path string) (*ZipCreator, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("listfile: create archive %s: %w", path, err)
	}
	return &ZipCreator{file: f, zw: zip.NewWriter(f)}, nil
}

// zipEntryHandle streams into one zip.Writer entry.
type zipEntryHandle struct {
	w io.Writer
}

func (h *zipEntryHandle) Write(p []byte) (int, error) { return h.w.Write(p) }

// CreateZIPEntry opens the archive's single entry, compressed with
// DEFLATE unless level is 0 (stored, uncompressed).
func (c *ZipCreator) CreateZIPEntry(level int) (WriteHandle, error) {
	hdr := &zip.FileHeader{Name: entryName}
	if level == 0 {
		hdr.Method = zip.Store
	} else {
		hdr.Method = zip.Deflate
	}

	w, err := c.zw.CreateHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("listfile: create zip entry: %w", err)
	}
	return &zipEntryHandle{w: w}, nil
}

// rawEntryWriter exposes the zip.Writer's Store-mode entry as an
// io.Writer, for lz4EntryHandle to wrap with its own framing.
func (c *ZipCreator) rawEntryWriter() (io.Writer, error) {
	hdr := &zip.FileHeader{Name: entryName, Method: zip.Store}
	return c.zw.CreateHeader(hdr)
}

// Close finalizes the zip central directory and closes the underlying file.
func (c *ZipCreator) Close() error {
	if err := c.zw.Close(); err != nil {
		_ = c.file.Close()
		return fmt.Errorf("listfile: close zip writer: %w", err)
	}
	return c.file.Close()
}
