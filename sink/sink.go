// Package sink writes fragment batches to output destinations: plain or
// compressed files, named pipes fed by a buffer process, or memory.
package sink

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fluhus/ngstream/common"
)

// Sink is an output destination. Sinks open lazily on the first write and
// can be closed any number of times.
type Sink interface {
	io.Writer
	Path() string   // Destination path or name.
	Written() int64 // Bytes written, before compression.
	Close() error
}

// Mode is the open mode of file sinks.
type Mode string

const (
	Write  Mode = "w" // Truncate existing files.
	Append Mode = "a" // Append to existing files.
)

// Compression is a compression format name.
type Compression string

const (
	None Compression = ""
	Gzip Compression = "gz"
	Zstd Compression = "zst"
)

// DefaultBuffer is the command that relieves backpressure on FIFOs.
const DefaultBuffer = "pv -q -B 64M"

// DefaultGrace is how long closing a FIFO sink waits for the buffer process to
// drain before terminating it.
const DefaultGrace = 10 * time.Second

// ParseCompression parses a compression format name. "none" and "" mean no
// compression, "gzip" is an alias of "gz" and "zstd" of "zst".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return None, nil
	case "gz", "gzip":
		return Gzip, nil
	case "zst", "zstd":
		return Zstd, nil
	}
	return None, common.IOError(nil, "unsupported compression %q", s)
}

// Config describes how sinks are created from paths.
type Config struct {
	Mode        Mode
	Compression Compression // Ignored for FIFOs.
	FIFO        bool
	Buffer      string        // Buffer command for FIFOs.
	Grace       time.Duration // Drain timeout for FIFOs.
}

// DefaultConfig returns a config for gzip-compressed files.
func DefaultConfig() Config {
	return Config{Mode: Write, Compression: Gzip, Buffer: DefaultBuffer,
		Grace: DefaultGrace}
}

// Validate checks the config's fields.
func (c Config) Validate() error {
	if c.Mode != Write && c.Mode != Append {
		return common.IOError(nil, "bad output mode %q, want w or a", c.Mode)
	}
	if _, err := ParseCompression(string(c.Compression)); err != nil {
		return err
	}
	if c.FIFO && strings.TrimSpace(c.Buffer) == "" {
		return common.IOError(nil, "no buffer command for fifos")
	}
	return nil
}

// Returns the canonical name of c, or c itself if it is not a known alias.
func (c Compression) canonical() Compression {
	if cc, err := ParseCompression(string(c)); err == nil {
		return cc
	}
	return c
}

// Ext returns the file extension of sinks made by this config.
func (c Config) Ext() string {
	if c.FIFO {
		return "fq.fifo"
	}
	comp := c.Compression.canonical()
	if comp == None {
		return "fq"
	}
	return "fq." + string(comp)
}

// New returns an unopened sink for the given path.
func (c Config) New(path string) Sink {
	if c.FIFO {
		return NewFIFO(path, c.Buffer, c.Grace)
	}
	return NewFile(path, c.Mode, c.Compression)
}

// Paths returns the output paths for n mates (1 or 2) under prefix.
func (c Config) Paths(prefix string, n int) []string {
	if n == 1 {
		return []string{fmt.Sprintf("%s.%s", prefix, c.Ext())}
	}
	var paths []string
	for i := 1; i <= n; i++ {
		paths = append(paths, fmt.Sprintf("%s_%d.%s", prefix, i, c.Ext()))
	}
	return paths
}
