package sink

import (
	"io"

	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/mybuf"
)

// Buffer is an in-memory sink, readable after Close.
type Buffer struct {
	name string
	buf  mybuf.Buffer
}

// NewBuffer returns an in-memory sink with the given display name.
func NewBuffer(name string) *Buffer {
	return &Buffer{name: name}
}

func (b *Buffer) Path() string   { return b.name }
func (b *Buffer) Written() int64 { return b.buf.Len() }

func (b *Buffer) Write(p []byte) (int, error) {
	n, err := b.buf.Write(p)
	if err != nil {
		return n, common.IOError(err, "write %s", b.name)
	}
	return n, nil
}

func (b *Buffer) Close() error {
	return b.buf.Close()
}

// Reader returns the written content. Valid after Close.
func (b *Buffer) Reader() io.Reader {
	return b.buf.Reader()
}

// Bytes returns the written content. Valid after Close.
func (b *Buffer) Bytes() ([]byte, error) {
	return b.buf.Bytes()
}
