package sink

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/fluhus/ngstream/common"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const fileBufSize = 1 << 16

// File is a regular file sink, optionally compressed.
type File struct {
	path   string
	mode   Mode
	comp   Compression
	f      *os.File
	bw     *bufio.Writer
	w      io.WriteCloser // Compressor over bw, or a no-op closer.
	key    string         // Registry key.
	n      int64
	closed bool
}

// NewFile returns an unopened file sink.
func NewFile(path string, mode Mode, comp Compression) *File {
	return &File{path: path, mode: mode, comp: comp.canonical()}
}

func (f *File) Path() string   { return f.path }
func (f *File) Written() int64 { return f.n }

func (f *File) open() error {
	key, err := claim(f.path)
	if err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if f.mode == Append {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	fl, err := os.OpenFile(f.path, flags, 0o644)
	if err != nil {
		release(key)
		return common.IOError(err, "open %s", f.path)
	}
	f.f, f.key = fl, key
	f.bw = bufio.NewWriterSize(fl, fileBufSize)
	f.w, err = compressor(f.bw, f.comp)
	if err != nil {
		return common.IOError(err, "open %s", f.path)
	}
	return nil
}

// Wraps w with the given compression.
func compressor(w io.Writer, comp Compression) (io.WriteCloser, error) {
	switch comp {
	case None:
		return nopCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w)
	}
	return nil, common.IOError(nil, "unsupported compression %q", comp)
}

func (f *File) Write(p []byte) (int, error) {
	if f.closed {
		return 0, common.IOError(os.ErrClosed, "write %s", f.path)
	}
	if f.f == nil {
		if err := f.open(); err != nil {
			return 0, err
		}
	}
	n, err := f.w.Write(p)
	f.n += int64(n)
	if err != nil {
		return n, common.IOError(err, "write %s", f.path)
	}
	return n, nil
}

// Close flushes and closes the file. Calling Close more than once has no
// effect.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.f == nil {
		return nil
	}
	defer release(f.key)
	var errs []error
	if f.w != nil {
		errs = append(errs, f.w.Close())
	}
	errs = append(errs, f.bw.Flush(), f.f.Close())
	if err := errors.Join(errs...); err != nil {
		return common.IOError(err, "close %s", f.path)
	}
	return nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
