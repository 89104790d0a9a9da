package xlsx

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/klauspost/compress/flate"
)

// zipPartReader gives sequential access to the entries of an XLSX package.
// Exactly one entry is open at a time. Entry position is readable from
// another goroutine for progress reporting.
type zipPartReader struct {
	archive *zip.Reader
	closer  io.Closer

	entry    io.ReadCloser
	entryLen int64
	entryPos atomic.Int64
	done     bool
}

func openZipReader(path string) (*zipPartReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	zr, err := newZipReader(f, st.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	zr.closer = f
	return zr, nil
}

func newZipReader(ra io.ReaderAt, size int64) (*zipPartReader, error) {
	archive, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("opening xlsx archive: %w", err)
	}
	archive.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
	return &zipPartReader{archive: archive}, nil
}

// HasEntry reports whether the archive contains an entry with this name.
func (z *zipPartReader) HasEntry(name string) bool {
	for _, f := range z.archive.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// TryOpenEntry opens the named entry for sequential reading. It returns
// false if the entry does not exist.
func (z *zipPartReader) TryOpenEntry(name string) bool {
	if z.entry != nil {
		z.CloseEntry()
	}
	for _, f := range z.archive.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return false
			}
			z.entry = rc
			z.entryLen = int64(f.UncompressedSize64)
			z.entryPos.Store(0)
			z.done = false
			return true
		}
	}
	return false
}

// CloseEntry closes the currently open entry.
func (z *zipPartReader) CloseEntry() {
	if z.entry != nil {
		z.entry.Close()
		z.entry = nil
	}
	z.done = true
}

// Read implements io.Reader over the open entry, keeping the position
// counter current.
func (z *zipPartReader) Read(p []byte) (int, error) {
	if z.entry == nil {
		return 0, io.EOF
	}
	n, err := z.entry.Read(p)
	z.entryPos.Add(int64(n))
	if err == io.EOF {
		z.done = true
	}
	return n, err
}

// EntryPos returns the number of uncompressed bytes consumed from the open
// entry so far.
func (z *zipPartReader) EntryPos() int64 {
	return z.entryPos.Load()
}

// EntryLen returns the uncompressed size of the open entry.
func (z *zipPartReader) EntryLen() int64 {
	return z.entryLen
}

// IsDone reports whether the open entry has been fully consumed.
func (z *zipPartReader) IsDone() bool {
	return z.done
}

// Close releases the archive.
func (z *zipPartReader) Close() error {
	z.CloseEntry()
	if z.closer != nil {
		err := z.closer.Close()
		z.closer = nil
		return err
	}
	return nil
}

// zipPartWriter writes the entries of an XLSX package in order. Entries are
// deflated; directories are stored.
type zipPartWriter struct {
	zw     *zip.Writer
	closer io.Closer
	cur    io.Writer
	err    error
}

func createZipWriter(path string) (*zipPartWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	zw := newZipWriter(f)
	zw.closer = f
	return zw, nil
}

func newZipWriter(w io.Writer) *zipPartWriter {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
	return &zipPartWriter{zw: zw}
}

// AddDirectory records a directory entry. The name must end in a slash.
func (z *zipPartWriter) AddDirectory(name string) {
	if z.err != nil {
		return
	}
	_, z.err = z.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
}

// BeginFile starts a new file entry. Any previously open entry is flushed.
func (z *zipPartWriter) BeginFile(name string) {
	if z.err != nil {
		return
	}
	z.cur, z.err = z.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
}

// EndFile finishes the open file entry.
func (z *zipPartWriter) EndFile() {
	z.cur = nil
}

// Write appends bytes to the open file entry.
func (z *zipPartWriter) Write(p []byte) {
	if z.err != nil || z.cur == nil {
		return
	}
	_, z.err = z.cur.Write(p)
}

// WriteString appends a string to the open file entry.
func (z *zipPartWriter) WriteString(s string) {
	if z.err != nil || z.cur == nil {
		return
	}
	_, z.err = io.WriteString(z.cur, s)
}

// Finalize writes the central directory and closes the underlying file.
func (z *zipPartWriter) Finalize() error {
	err := z.zw.Close()
	if z.err == nil {
		z.err = err
	}
	if z.closer != nil {
		cerr := z.closer.Close()
		if z.err == nil {
			z.err = cerr
		}
		z.closer = nil
	}
	return z.err
}
