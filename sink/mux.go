package sink

import (
	"errors"

	"github.com/fluhus/gostuff/gnum"
	"github.com/fluhus/gostuff/snm"
	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/record"
)

// Mux routes fragments to sinks: mate i of each fragment goes to sink i, or
// all mates go to a single sink when interleaved. Each batch is serialized
// and then written with one call per sink.
type Mux struct {
	sinks      []Sink
	interleave bool
	bufs       [][]byte
	closed     bool
}

// NewMux returns a multiplexer over one sink (single-end) or two sinks
// (paired-end).
func NewMux(sinks ...Sink) (*Mux, error) {
	if len(sinks) != 1 && len(sinks) != 2 {
		return nil, common.IOError(nil, "need 1 or 2 sinks, got %d", len(sinks))
	}
	return &Mux{sinks: sinks, bufs: make([][]byte, len(sinks))}, nil
}

// NewInterleaved returns a multiplexer that writes all mates to s.
func NewInterleaved(s Sink) *Mux {
	return &Mux{sinks: []Sink{s}, interleave: true, bufs: make([][]byte, 1)}
}

// WriteBatch writes the given fragments. Any failure is returned as is and
// leaves the sinks partially written.
func (m *Mux) WriteBatch(frags []record.Fragment) error {
	if m.closed {
		return common.IOError(nil, "write to closed output")
	}
	for i := range m.bufs {
		m.bufs[i] = m.bufs[i][:0]
	}
	for _, f := range frags {
		if m.interleave {
			for _, r := range f {
				m.bufs[0] = record.Append(m.bufs[0], r)
			}
			continue
		}
		if len(f) != len(m.sinks) {
			return common.FormatError(nil,
				"fragment %q has %d reads, output expects %d",
				f[0].Name, len(f), len(m.sinks))
		}
		for i, r := range f {
			m.bufs[i] = record.Append(m.bufs[i], r)
		}
	}
	for i, s := range m.sinks {
		if len(m.bufs[i]) == 0 {
			continue
		}
		if _, err := s.Write(m.bufs[i]); err != nil {
			return common.IOError(err, "write %s", s.Path())
		}
	}
	return nil
}

// Close closes all sinks, even if some fail. Calling Close more than once has
// no effect.
func (m *Mux) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.bufs = nil
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Sinks returns the underlying sinks.
func (m *Mux) Sinks() []Sink {
	return m.sinks
}

// Paths returns the sinks' paths.
func (m *Mux) Paths() []string {
	paths := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		paths[i] = s.Path()
	}
	return paths
}

// Written returns the total bytes written to all sinks.
func (m *Mux) Written() int64 {
	return gnum.Sum(snm.Slice(len(m.sinks), func(i int) int64 {
		return m.sinks[i].Written()
	}))
}
