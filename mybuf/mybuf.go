// Package mybuf provides a zstd-compressed in-memory output buffer.
package mybuf

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/klauspost/compress/zstd"
)

// Buffer accumulates written bytes in compressed form. It can be read after
// Close, any number of times.
type Buffer struct {
	data   []byte
	buf    *bytes.Buffer
	zw     *zstd.Encoder
	n      int64 // Uncompressed bytes written.
	closed bool
}

func (b *Buffer) Write(p []byte) (int, error) {
	if b.closed {
		return 0, fmt.Errorf("write to closed buffer")
	}
	if b.zw == nil {
		b.buf = bytes.NewBuffer(nil)
		var err error
		b.zw, err = zstd.NewWriter(b.buf, zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return 0, err
		}
	}
	n, err := b.zw.Write(p)
	b.n += int64(n)
	return n, err
}

// Close finishes the compressed stream. Calling Close more than once has no
// effect.
func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.zw != nil {
		if err := b.zw.Close(); err != nil {
			return err
		}
		b.data = slices.Clip(b.buf.Bytes())
		b.zw = nil
		b.buf = nil
	}
	return nil
}

// Len returns the number of uncompressed bytes written.
func (b *Buffer) Len() int64 {
	return b.n
}

// CompressedLen returns the size of the compressed data, available after Close.
func (b *Buffer) CompressedLen() int {
	return len(b.data)
}

// Reader returns a reader over the uncompressed content.
func (b *Buffer) Reader() io.Reader {
	if !b.closed {
		return &errReader{fmt.Errorf("called Reader without closing the buffer first")}
	}
	if len(b.data) == 0 {
		return bytes.NewReader(nil)
	}
	r, err := zstd.NewReader(bytes.NewReader(b.data), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return &errReader{err}
	}
	return r.IOReadCloser()
}

// Bytes returns the uncompressed content.
func (b *Buffer) Bytes() ([]byte, error) {
	return io.ReadAll(b.Reader())
}

type errReader struct {
	err error
}

func (r *errReader) Read([]byte) (int, error) {
	return 0, r.err
}
