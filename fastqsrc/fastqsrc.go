// Package fastqsrc streams reads from local FASTQ files.
package fastqsrc

import (
	"bytes"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/fluhus/gostuff/aio"
	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/protocol"
	"github.com/fluhus/ngstream/record"
)

// Reader streams one FASTQ file (single-end) or two mate files (paired-end).
// Gzip input is detected by the .gz suffix.
type Reader struct {
	name    string
	nexts   []func() (*record.Record, error, bool)
	stops   []func()
	closers []io.Closer
	done    bool
	closed  bool
}

// Open opens the given files.
func Open(files ...string) (*Reader, error) {
	if len(files) != 1 && len(files) != 2 {
		return nil, common.ConnectionError(nil,
			"need 1 or 2 fastq files, got %d", len(files))
	}
	r := &Reader{name: Name(files[0])}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			r.Close()
			return nil, common.ConnectionError(err, "open %s", f)
		}
		in, err := aio.Open(f)
		if err != nil {
			r.Close()
			return nil, common.ConnectionError(err, "open %s", f)
		}
		next, stop := iter.Pull2(record.Reader(in))
		r.nexts = append(r.nexts, next)
		r.stops = append(r.stops, stop)
		r.closers = append(r.closers, in)
	}
	return r, nil
}

// Name returns the base name of a FASTQ file without its extensions and mate
// suffix.
func Name(file string) string {
	name := filepath.Base(file)
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	for _, suf := range []string{"_1", "_2", "_R1", "_R2"} {
		if s, ok := strings.CutSuffix(name, suf); ok && s != "" {
			return s
		}
	}
	return name
}

func (r *Reader) Accession() string { return r.name }
func (r *Reader) ReadCount() int    { return protocol.Unbounded }
func (r *Reader) Paired() bool      { return len(r.nexts) == 2 }

func (r *Reader) Next() (record.Fragment, error) {
	if r.done || r.closed {
		return nil, io.EOF
	}
	f := make(record.Fragment, 0, len(r.nexts))
	ended := 0
	for _, next := range r.nexts {
		rec, err, ok := next()
		if !ok {
			ended++
			continue
		}
		if err != nil {
			r.done = true
			return nil, err
		}
		f = append(f, rec)
	}
	if ended == len(r.nexts) {
		r.done = true
		return nil, io.EOF
	}
	if ended > 0 {
		r.done = true
		return nil, common.FormatError(nil, "mate files of %s have different lengths", r.name)
	}
	if f.Paired() && !sameSpot(f[0].Name, f[1].Name) {
		r.done = true
		return nil, common.FormatError(nil, "mates %q and %q do not match",
			f[0].Name, f[1].Name)
	}
	return f, nil
}

// Compares read names up to the first space and without a /1 /2 suffix.
func sameSpot(a, b []byte) bool {
	trim := func(s []byte) []byte {
		if i := bytes.IndexByte(s, ' '); i >= 0 {
			s = s[:i]
		}
		if len(s) > 2 && s[len(s)-2] == '/' {
			s = s[:len(s)-2]
		}
		return s
	}
	return bytes.Equal(trim(a), trim(b))
}

func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	for _, stop := range r.stops {
		stop()
	}
	for _, c := range r.closers {
		c.Close()
	}
	return nil
}
