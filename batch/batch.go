// Package batch groups a fragment stream into fixed-size batches and decides
// which batches are emitted.
package batch

import (
	"io"

	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/record"
	"github.com/fluhus/ngstream/selector"
)

// Batch is a group of consecutive fragments.
type Batch struct {
	Index     int // Sequential, starting at 0.
	Fragments []record.Fragment
}

// Len returns the number of fragments in the batch.
func (b *Batch) Len() int {
	return len(b.Fragments)
}

// Batcher reads fragments into batches of size and keeps batches whose index
// is divisible by step. It holds at most one batch in memory.
type Batcher struct {
	// OnSkip, if set, is called with every discarded batch.
	OnSkip func(*Batch)

	src     selector.Source
	size    int
	step    int
	buf     []record.Fragment
	index   int
	skipped int // Fragments in discarded batches.
	done    bool
}

// New returns a batcher over src.
func New(src selector.Source, size, step int) (*Batcher, error) {
	if size < 1 {
		return nil, common.RangeError("batch size %d is less than 1", size)
	}
	if step < 1 {
		return nil, common.RangeError("batch step %d is less than 1", step)
	}
	return &Batcher{src: src, size: size, step: step,
		buf: make([]record.Fragment, 0, size)}, nil
}

// Next returns the next emitted batch, or io.EOF when the source is exhausted.
// The returned batch is valid until the next call.
func (b *Batcher) Next() (*Batch, error) {
	for !b.done {
		bt, err := b.fill()
		if err != nil {
			return nil, err
		}
		if bt == nil {
			break
		}
		if bt.Index%b.step == 0 {
			return bt, nil
		}
		b.skipped += bt.Len()
		if b.OnSkip != nil {
			b.OnSkip(bt)
		}
	}
	return nil, io.EOF
}

// Reads up to size fragments into a new batch. Returns nil at the end of the
// stream.
func (b *Batcher) fill() (*Batch, error) {
	b.buf = b.buf[:0]
	for len(b.buf) < b.size {
		f, err := b.src.Next()
		if err == io.EOF {
			b.done = true
			break
		}
		if err != nil {
			return nil, err
		}
		b.buf = append(b.buf, f)
	}
	if len(b.buf) == 0 {
		return nil, nil
	}
	bt := &Batch{Index: b.index, Fragments: b.buf}
	b.index++
	return bt, nil
}

// Batches returns the number of batches formed so far, emitted or not.
func (b *Batcher) Batches() int {
	return b.index
}

// Skipped returns the number of fragments in discarded batches.
func (b *Batcher) Skipped() int {
	return b.skipped
}
