//go:build !unix

package sink

import (
	"errors"
	"time"

	"github.com/fluhus/ngstream/common"
)

// FIFO is a named-pipe sink. Named pipes are not supported on this platform.
type FIFO struct {
	path string
}

// NewFIFO returns a sink that fails on write.
func NewFIFO(path, buffer string, grace time.Duration) *FIFO {
	return &FIFO{path: path}
}

func (f *FIFO) Path() string   { return f.path }
func (f *FIFO) Written() int64 { return 0 }
func (f *FIFO) Close() error   { return nil }
func (f *FIFO) Running() bool  { return false }

func (f *FIFO) Write(p []byte) (int, error) {
	return 0, common.IOError(errors.ErrUnsupported, "create fifo %s", f.path)
}
