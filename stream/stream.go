// Package stream runs reads from a source through range selection and
// batching into output sinks.
//
// A session owns its reader and the sinks it creates. Sinks are created when
// the first batch is emitted, once it is known whether fragments are paired.
package stream

import (
	"context"
	"errors"
	"io"

	"github.com/fluhus/ngstream/batch"
	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/protocol"
	"github.com/fluhus/ngstream/selector"
	"github.com/fluhus/ngstream/sink"
	"github.com/fluhus/ngstream/stats"
)

// Options configures a session.
type Options struct {
	Range       selector.Spec
	ItemLimit   int    // Maximal fragments to select, or selector.Unbounded.
	Prefix      string // Output path prefix, defaults to the accession.
	Sink        sink.Config
	Interleaved bool // Write both mates to one sink.
	Progress    bool

	// Sinks, if set, are used instead of creating sinks from Prefix. There
	// should be one per mate, or one if Interleaved.
	Sinks []sink.Sink
}

// DefaultOptions returns options that select all reads into gzip files.
func DefaultOptions() Options {
	return Options{
		Range:     selector.DefaultSpec(),
		ItemLimit: selector.Unbounded,
		Sink:      sink.DefaultConfig(),
		Progress:  true,
	}
}

// Validate checks the options. It does no I/O.
func (o Options) Validate() error {
	if err := o.Range.Validate(); err != nil {
		return err
	}
	if o.ItemLimit != selector.Unbounded && o.ItemLimit < 0 {
		return common.RangeError("item limit %d is negative", o.ItemLimit)
	}
	if o.Sinks != nil {
		if len(o.Sinks) != 1 && len(o.Sinks) != 2 {
			return common.IOError(nil, "need 1 or 2 sinks, got %d", len(o.Sinks))
		}
		return nil
	}
	return o.Sink.Validate()
}

// Session streams one reader to its sinks.
type Session struct {
	r       protocol.Reader
	opts    Options
	sel     *selector.Selector
	bat     *batch.Batcher
	mux     *sink.Mux
	tracker *stats.Tracker
	paired  bool
	result  *stats.Result
	closed  bool
}

// New returns a session over r. The session takes ownership of r only if no
// error is returned.
func New(r protocol.Reader, opts Options) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Prefix == "" {
		opts.Prefix = r.Accession()
	}
	return &Session{r: r, opts: opts}, nil
}

// Run streams until the selection is complete or an error occurs. The
// session should be closed afterwards either way.
func (s *Session) Run(ctx context.Context) error {
	if s.closed {
		return common.IOError(nil, "run on closed session")
	}
	if s.sel != nil {
		return common.IOError(nil, "session already ran")
	}
	sel, err := selector.New(ctx, s.r, s.opts.Range, s.opts.ItemLimit)
	if err != nil {
		return err
	}
	bat, err := batch.New(sel, s.opts.Range.Size, s.opts.Range.Step)
	if err != nil {
		return err
	}
	s.sel, s.bat = sel, bat
	s.tracker = stats.NewTracker(
		s.opts.Range.Expected(s.r.ReadCount(), s.opts.ItemLimit), s.opts.Progress)
	defer s.tracker.Done()
	bat.OnSkip = func(b *batch.Batch) { s.tracker.Batch(b.Len(), false) }

	for {
		b, err := bat.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.write(b); err != nil {
			return err
		}
		s.tracker.Batch(b.Len(), true)
	}
}

// Writes an emitted batch, creating the sinks on first use.
func (s *Session) write(b *batch.Batch) error {
	if s.mux == nil {
		mux, err := s.newMux(len(b.Fragments[0]))
		if err != nil {
			return err
		}
		s.mux = mux
	}
	return s.mux.WriteBatch(b.Fragments)
}

// Creates the multiplexer for fragments with the given number of mates.
func (s *Session) newMux(mates int) (*sink.Mux, error) {
	s.paired = mates == 2
	sinks := s.opts.Sinks
	if sinks == nil {
		n := mates
		if s.opts.Interleaved {
			n = 1
		}
		for _, p := range s.opts.Sink.Paths(s.opts.Prefix, n) {
			sinks = append(sinks, s.opts.Sink.New(p))
		}
	}
	if s.opts.Interleaved || (len(sinks) == 1 && mates == 2) {
		if len(sinks) != 1 {
			return nil, common.IOError(nil, "interleaved output needs 1 sink, got %d",
				len(sinks))
		}
		return sink.NewInterleaved(sinks[0]), nil
	}
	if len(sinks) != mates {
		return nil, common.IOError(nil, "%d sinks for fragments of %d reads",
			len(sinks), mates)
	}
	return sink.NewMux(sinks...)
}

// Close closes the sinks and the reader. Calling Close more than once has no
// effect.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	if s.mux != nil {
		errs = append(errs, s.mux.Close())
	}
	errs = append(errs, s.r.Close())
	s.result = s.makeResult()
	return errors.Join(errs...)
}

func (s *Session) makeResult() *stats.Result {
	r := &stats.Result{
		Accession: s.r.Accession(),
		Paired:    s.paired || s.r.Paired(),
		Written:   s.tracker.Written(),
		Files:     []string{},
	}
	if s.sel != nil {
		r.ReadCount = s.sel.Count()
		r.Stop = s.sel.StopReason()
		r.Batches = s.bat.Batches()
	}
	_, r.Emitted = s.tracker.Batches()
	if s.mux != nil {
		r.Bytes = s.mux.Written()
		r.Files = s.mux.Paths()
	}
	return r
}

// Result returns the session's summary, or nil if it was not closed.
func (s *Session) Result() *stats.Result {
	return s.result
}

// Dump opens a reader, streams it and closes everything, also on error. The
// options are validated before the reader is opened. The result is returned
// even if streaming failed, to report partial output.
func Dump(ctx context.Context, open func(context.Context) (protocol.Reader, error),
	opts Options) (*stats.Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	r, err := open(ctx)
	if err != nil {
		return nil, err
	}
	s, err := New(r, opts)
	if err != nil {
		r.Close()
		return nil, err
	}
	err = s.Run(ctx)
	if cerr := s.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return s.Result(), err
}
