// Package cli holds the output flags shared by the streaming programs.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/selector"
	"github.com/fluhus/ngstream/sink"
	"github.com/fluhus/ngstream/stats"
	"github.com/fluhus/ngstream/stream"
)

// Output holds the values of the output flags.
type Output struct {
	fifos         bool
	noCompression bool
	noProgress    bool
	interleaved   bool
	first         int
	last          int
	maxReads      int
	size          int
	step          int
	mode          string
	prefix        string
	slice         string
	buffer        string
	compression   string
	json          string
	grace         time.Duration
}

// Register adds the output flags to fs. Flags with a short form are
// registered under both names.
func Register(fs *flag.FlagSet) *Output {
	o := &Output{}
	both := func(short, long string, f func(name string)) {
		f(short)
		f(long)
	}
	both("F", "first-read", func(n string) {
		fs.IntVar(&o.first, n, 0, "First read `index` to stream, 0-based")
	})
	both("L", "last-read", func(n string) {
		fs.IntVar(&o.last, n, selector.Unbounded,
			"Last read `index` to stream, inclusive (default: no limit)")
	})
	both("M", "max-reads", func(n string) {
		fs.IntVar(&o.maxReads, n, selector.Unbounded,
			"Maximal `number` of reads to stream (default: no limit)")
	})
	both("O", "output-mode", func(n string) {
		fs.StringVar(&o.mode, n, string(sink.Write), "Output `mode`: w or a")
	})
	both("p", "prefix", func(n string) {
		fs.StringVar(&o.prefix, n, "", "Output `prefix` (default: the accession)")
	})
	both("S", "batch-size", func(n string) {
		fs.IntVar(&o.size, n, selector.DefaultSize, "Reads per `batch`")
	})
	both("T", "batch-step", func(n string) {
		fs.IntVar(&o.step, n, selector.DefaultStep, "Write every `n`-th batch")
	})
	both("j", "json", func(n string) {
		fs.StringVar(&o.json, n, "", "Write a JSON summary to this `file`")
	})
	fs.StringVar(&o.slice, "slice", "",
		"Read range as `FIRST:LAST:SIZE:STEP`, overrides -F -L -S -T")
	fs.BoolVar(&o.fifos, "fifos", false, "Write to named pipes instead of files")
	fs.StringVar(&o.buffer, "buffer", sink.DefaultBuffer,
		"Buffer `command` that feeds named pipes")
	fs.DurationVar(&o.grace, "grace", sink.DefaultGrace,
		"How long to wait for buffer commands to drain on exit, after which\n"+
			"they are killed and output to attached readers is truncated")
	fs.BoolVar(&o.noCompression, "nocompression", false, "Write uncompressed output")
	fs.StringVar(&o.compression, "compression", string(sink.Gzip),
		"Compression `format`: gz or zst")
	fs.BoolVar(&o.noProgress, "noprogress", false, "Do not show progress")
	fs.BoolVar(&o.interleaved, "interleaved", false,
		"Write paired reads to a single interleaved file")
	return o
}

// Options returns the session options given by the flags.
func (o *Output) Options() (stream.Options, error) {
	opts := stream.DefaultOptions()
	opts.Range = selector.Spec{First: o.first, Last: o.last, Size: o.size,
		Step: o.step}
	if o.slice != "" {
		spec, err := selector.ParseSlice(o.slice)
		if err != nil {
			return stream.Options{}, err
		}
		opts.Range = spec
	}
	opts.ItemLimit = o.maxReads
	opts.Prefix = o.prefix
	opts.Interleaved = o.interleaved
	opts.Progress = !o.noProgress

	comp, err := sink.ParseCompression(o.compression)
	if err != nil {
		return stream.Options{}, err
	}
	opts.Sink = sink.Config{
		Mode:        sink.Mode(o.mode),
		Compression: common.If(o.noCompression, sink.None, comp),
		FIFO:        o.fifos,
		Buffer:      o.buffer,
		Grace:       o.grace,
	}
	return opts, opts.Validate()
}

// Context returns a context that is canceled on interrupt, so that sessions
// tear down their outputs.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Finish reports the result of a dump and exits on error.
func (o *Output) Finish(res *stats.Result, err error) {
	if res != nil {
		fmt.Fprintln(os.Stderr, res)
		if res.ReadCount > 0 {
			fmt.Fprintf(os.Stderr, "Wrote %s of the selected reads in %d of %d batches\n",
				common.Percf(res.Written, res.ReadCount, 1), res.Emitted, res.Batches)
		}
	}
	common.Die(err)
	if o.json != "" {
		common.Die(res.Save(o.json))
	}
}
